// Content HTTP handlers.
//
// This file exposes REST endpoints for the dedup store:
//   - POST   /content/check          (windowed duplicate check, read-only)
//   - POST   /content                (record published content)
//   - POST   /content/insert-if-new  (atomic check + record)
//   - GET    /content                (list, paginated, ETag support)
//   - GET    /content/stats          (store summary)
//   - DELETE /content                (retention purge)
//
// Handlers are transport-thin: they decode base64 media from JSON, apply the
// configured window/retention defaults, call the DedupService, and translate
// storage failures into 503 responses.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// write exists for (client, key), the record endpoints return that stored
// record with `Idempotency-Replayed: true` and write nothing.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-content-dedup/internal/domain"
	"github.com/tbourn/go-content-dedup/internal/http/middleware"
	"github.com/tbourn/go-content-dedup/internal/services"
	"github.com/tbourn/go-content-dedup/internal/utils"
)

//
// Service contracts (context-aware)
//

// DedupService defines the content store operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type DedupService interface {
	// Check reports whether matching content was recorded within withinDays.
	Check(ctx context.Context, c domain.Candidate, withinDays int) (domain.CheckResult, error)
	// Remember records content unconditionally.
	Remember(ctx context.Context, in domain.RecordInput) (*domain.ContentRecord, error)
	// InsertIfNew records content only when no match exists in the window.
	InsertIfNew(ctx context.Context, in domain.RecordInput, withinDays int) (domain.CheckResult, *domain.ContentRecord, error)
	// Purge deletes records older than olderThanDays and returns the count.
	Purge(ctx context.Context, olderThanDays int) (int64, error)
	// Stats summarizes the store.
	Stats(ctx context.Context) (domain.ContentStats, error)
	// ListPage returns a newest-first page of records and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.ContentRecord, int64, error)
	// Version returns (count, newest id) for conditional listing responses.
	Version(ctx context.Context) (int64, int64, error)
}

// IdempotencyStore maps (client, Idempotency-Key) to a stored record.
type IdempotencyStore interface {
	// Replay returns the stored record or (nil, nil) when none exists.
	Replay(ctx context.Context, clientID, key string) (*domain.ContentRecord, error)
	// Save remembers that (clientID, key) produced recordID.
	Save(ctx context.Context, clientID, key string, recordID int64, status int) error
}

//
// Handler wiring
//

// Defaults holds the window and retention applied when a request omits them.
type Defaults struct {
	WindowDays    int
	RetentionDays int
}

// Handlers groups HTTP endpoints for the content store.
type Handlers struct {
	svc      DedupService
	idem     IdempotencyStore
	defaults Defaults
}

// New constructs a Handlers instance. idem may be nil to disable replays.
func New(svc DedupService, idem IdempotencyStore, d Defaults) *Handlers {
	return &Handlers{svc: svc, idem: idem, defaults: d}
}

//
// DTOs
//

// CheckRequest is the JSON payload for a duplicate check. Every field is
// optional; absent content carries no fingerprint and never matches.
type CheckRequest struct {
	// Text is compared case- and whitespace-insensitively.
	Text string `json:"text" example:"Launch day!"`
	// Image is the raw image, base64-encoded. Matching is byte-exact.
	Image []byte `json:"image,omitempty" swaggertype:"string" format:"base64"`
	// Video is the raw video, base64-encoded. Matching is byte-exact.
	Video []byte `json:"video,omitempty" swaggertype:"string" format:"base64"`
	// WithinDays overrides the configured window. Values <= 0 never match.
	WithinDays *int `json:"within_days,omitempty" example:"15"`
}

// RecordRequest is the JSON payload for recording published content.
type RecordRequest struct {
	Text      string `json:"text" example:"Launch day!"`
	Image     []byte `json:"image,omitempty" swaggertype:"string" format:"base64"`
	Video     []byte `json:"video,omitempty" swaggertype:"string" format:"base64"`
	Platform  string `json:"platform,omitempty" binding:"max=64" example:"twitter"`
	SourceURL string `json:"source_url,omitempty" binding:"omitempty,max=2048" example:"https://example.com/post/1"`
	Note      string `json:"note,omitempty" binding:"max=1024" example:"weekly digest"`
	// WithinDays is used by insert-if-new only.
	WithinDays *int `json:"within_days,omitempty" example:"15"`
}

// PurgeResponse reports a retention purge.
type PurgeResponse struct {
	Deleted       int64 `json:"deleted" example:"12"`
	OlderThanDays int   `json:"older_than_days" example:"30"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListContentResponse wraps a page of records and pagination information.
type ListContentResponse struct {
	Records    []domain.ContentRecord `json:"records"`
	Pagination Pagination             `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

func (h *Handlers) windowOr(v *int) int {
	if v == nil {
		return h.defaults.WindowDays
	}
	return *v
}

// bindJSON decodes the body into dst and writes the 400/413 response itself.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body (media must be base64)")
	return false
}

// storeFailure maps a service error to 503 when the store is unavailable and
// 500 otherwise. The underlying error is attached to the Gin context so the
// access log carries it without exposing it to the client.
func storeFailure(c *gin.Context, err error, code string) {
	_ = c.Error(err)
	if errors.Is(err, services.ErrStorageUnavailable) {
		fail(c, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "content store unavailable")
		return
	}
	fail(c, http.StatusInternalServerError, code, "internal error")
}

// replay serves a stored idempotent result when one exists.
func (h *Handlers) replay(c *gin.Context) bool {
	key, present := middleware.GetIdempotencyKey(c)
	if !present || h.idem == nil {
		return false
	}
	prev, err := h.idem.Replay(c.Request.Context(), middleware.ClientID(c), key)
	if err != nil {
		// Lookup failures fall through to normal processing.
		middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
		return false
	}
	if prev == nil {
		return false
	}
	c.Header("Idempotency-Replayed", "true")
	ok(c, http.StatusOK, prev)
	return true
}

// remember stores the idempotency mapping for a freshly written record.
func (h *Handlers) remember(c *gin.Context, rec *domain.ContentRecord, status int) {
	key, present := middleware.GetIdempotencyKey(c)
	if !present || h.idem == nil {
		return
	}
	if err := h.idem.Save(c.Request.Context(), middleware.ClientID(c), key, rec.ID, status); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Int64("record_id", rec.ID).Msg("idempotency save failed")
	}
}

func recordInput(req RecordRequest) domain.RecordInput {
	return domain.RecordInput{
		Candidate: domain.Candidate{Text: req.Text, Image: req.Image, Video: req.Video},
		Platform:  strings.TrimSpace(req.Platform),
		SourceURL: strings.TrimSpace(req.SourceURL),
		Note:      req.Note,
	}
}

//
// Handlers
//

// CheckContent godoc
// @ID          checkContent
// @Summary     Check for duplicate content
// @Description Reports whether content with the same normalized text, or byte-identical image or video,
// @Description was recorded within the window. Read-only.
// @Tags        Content
// @Accept      json
// @Produce     json
//
// @Param       X-Client-ID  header  string  false "Caller identity"  example(publisher-bot)
// @Param       body         body    handlers.CheckRequest  true  "Candidate content"
//
// @Success     200  {object}  domain.CheckResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     413  {object}  handlers.ErrorResponse  "Body too large"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /content/check [post]
func (h *Handlers) CheckContent(c *gin.Context) {
	var req CheckRequest
	if !bindJSON(c, &req) {
		return
	}
	cand := domain.Candidate{Text: req.Text, Image: req.Image, Video: req.Video}

	res, err := h.svc.Check(c.Request.Context(), cand, h.windowOr(req.WithinDays))
	if err != nil {
		storeFailure(c, err, ErrCodeCheckFailed)
		return
	}
	ok(c, http.StatusOK, res)
}

// RememberContent godoc
// @ID          rememberContent
// @Summary     Record published content
// @Description Stores fingerprints for content that was published. Does not check for duplicates.
// @Description Supports idempotency via the Idempotency-Key header (same key → same record).
// @Tags        Content
// @Accept      json
// @Produce     json
//
// @Param       X-Client-ID      header  string  false "Caller identity"  example(publisher-bot)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.RecordRequest  true  "Published content"
//
// @Success     201  {object}  domain.ContentRecord  "Recorded"
// @Success     200  {object}  domain.ContentRecord  "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     413  {object}  handlers.ErrorResponse  "Body too large"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /content [post]
func (h *Handlers) RememberContent(c *gin.Context) {
	var req RecordRequest
	if !bindJSON(c, &req) {
		return
	}
	if h.replay(c) {
		return
	}

	rec, err := h.svc.Remember(c.Request.Context(), recordInput(req))
	if err != nil {
		storeFailure(c, err, ErrCodeCreateFailed)
		return
	}
	h.remember(c, rec, http.StatusCreated)
	ok(c, http.StatusCreated, rec)
}

// InsertIfNew godoc
// @ID          insertContentIfNew
// @Summary     Record content unless it is a duplicate
// @Description Atomically checks the window and records the content only when no match exists.
// @Description Concurrent callers with the same content cannot both succeed.
// @Tags        Content
// @Accept      json
// @Produce     json
//
// @Param       X-Client-ID      header  string  false "Caller identity"  example(publisher-bot)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.RecordRequest  true  "Candidate content and provenance"
//
// @Success     201  {object}  domain.ContentRecord  "Recorded"
// @Success     200  {object}  domain.ContentRecord  "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  domain.CheckResult      "Duplicate within window"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /content/insert-if-new [post]
func (h *Handlers) InsertIfNew(c *gin.Context) {
	var req RecordRequest
	if !bindJSON(c, &req) {
		return
	}
	if h.replay(c) {
		return
	}

	res, rec, err := h.svc.InsertIfNew(c.Request.Context(), recordInput(req), h.windowOr(req.WithinDays))
	if err != nil {
		storeFailure(c, err, ErrCodeCreateFailed)
		return
	}
	if res.Duplicate {
		ok(c, http.StatusConflict, res)
		return
	}
	h.remember(c, rec, http.StatusCreated)
	ok(c, http.StatusCreated, rec)
}

// ListContent godoc
// @ID          listContent
// @Summary     List recorded content (paginated)
// @Description Returns records newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Content
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"content:3:42:1:20\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListContentResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     503  {object} handlers.ErrorResponse "Store unavailable"
// @Router      /content [get]
func (h *Handlers) ListContent(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, latest, err := h.svc.Version(ctx); err == nil {
		etag := fmt.Sprintf(`W/"content:%d:%d:%d:%d"`, count, latest, page, pageSize)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.svc.ListPage(ctx, page, pageSize)
	if err != nil {
		storeFailure(c, err, ErrCodeListFailed)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListContentResponse{
		Records: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// ContentStats godoc
// @ID          contentStats
// @Summary     Store statistics
// @Description Total records, oldest and newest timestamps, and per-platform counts ("-" for unknown).
// @Tags        Content
// @Produce     json
// @Success     200  {object} domain.ContentStats
// @Failure     503  {object} handlers.ErrorResponse "Store unavailable"
// @Router      /content/stats [get]
func (h *Handlers) ContentStats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		storeFailure(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, st)
}

// PurgeContent godoc
// @ID          purgeContent
// @Summary     Purge old records
// @Description Deletes records created more than older_than_days days ago. Repeating the call is harmless.
// @Tags        Content
// @Produce     json
//
// @Param       older_than_days  query  int  false "Age cutoff in days (defaults to configured retention)"  minimum(0)
//
// @Success     200  {object} handlers.PurgeResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     503  {object} handlers.ErrorResponse "Store unavailable"
// @Router      /content [delete]
func (h *Handlers) PurgeContent(c *gin.Context) {
	days := h.defaults.RetentionDays
	if raw, present := c.GetQuery("older_than_days"); present {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 0 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "older_than_days must be a non-negative integer")
			return
		}
		days = n
	}

	n, err := h.svc.Purge(c.Request.Context(), days)
	if err != nil {
		storeFailure(c, err, ErrCodePurgeFailed)
		return
	}
	middleware.LoggerFrom(c).Info().Int64("deleted", n).Int("older_than_days", days).Msg("content purged")
	ok(c, http.StatusOK, PurgeResponse{Deleted: n, OlderThanDays: days})
}
