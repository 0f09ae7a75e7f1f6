// Package services – DedupService
//
// This file implements DedupService, the content deduplication store. It
// fingerprints candidate posts, answers "was equivalent content published
// within the last N days?", records published content, and prunes records
// past their retention age.
//
// Each call borrows one pooled connection for its duration and holds no state
// between calls, so several processes may share the same SQLite file.
// Check followed by Remember is NOT atomic: two concurrent callers can both
// pass Check before either records. InsertIfNew closes that gap by running
// both steps in one write transaction.
//
// Observability: public methods are OpenTelemetry-instrumented and feed the
// dedup_* Prometheus counters.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-content-dedup/internal/domain"
	"github.com/tbourn/go-content-dedup/internal/fingerprint"
	"github.com/tbourn/go-content-dedup/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultWindowDays is the recency window used when callers do not pick one.
	DefaultWindowDays = 15
	// DefaultRetentionDays is the purge age used when callers do not pick one.
	DefaultRetentionDays = 30

	secondsPerDay = 86400
	tracerName    = "services/DedupService"
	timeLayout    = "2006-01-02 15:04:05"
)

// DedupService persists content fingerprints and answers windowed duplicate
// queries. It is safe for concurrent use.
type DedupService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Now returns the current time; tests replace it to place records in the past.
	Now func() time.Time

	// WindowDays and RetentionDays are the defaults the transport and CLI
	// layers apply when a request omits them.
	WindowDays    int
	RetentionDays int

	// insertMu serializes InsertIfNew within this process so concurrent
	// callers queue here rather than on the SQLite write lock.
	insertMu sync.Mutex
}

// NewDedupService constructs a DedupService over an already-migrated database.
func NewDedupService(db *gorm.DB) *DedupService {
	return &DedupService{
		DB:            db,
		Now:           time.Now,
		WindowDays:    DefaultWindowDays,
		RetentionDays: DefaultRetentionDays,
	}
}

// OpenDedupStore opens (or creates) the SQLite file at path, ensures the
// schema exists, and returns a ready service. Failures are wrapped in
// ErrStorageUnavailable.
func OpenDedupStore(path string) (*DedupService, error) {
	db, err := repo.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStorageUnavailable, path, err)
	}
	if err := repo.Migrate(db); err != nil {
		_ = repo.Close(db)
		return nil, fmt.Errorf("%w: migrate %s: %w", ErrStorageUnavailable, path, err)
	}
	return NewDedupService(db), nil
}

// Close releases the underlying connection pool.
func (s *DedupService) Close() error {
	return repo.Close(s.DB)
}

// Check reports whether content matching c by text, image or video
// fingerprint was recorded within the last withinDays days.
//
// Semantics:
//   - withinDays <= 0 is an empty window: never a duplicate, no query issued.
//   - Absent inputs contribute no fingerprint and never match, including
//     against stored NULLs. A fully empty candidate never reaches the store.
//   - Windows reaching past the epoch cover every stored record.
//   - On a match, the most recent record is reported and Explanation reads
//     "duplicate within <N>d (was YYYY-MM-DD HH:MM:SS UTC, platform=<p|->)".
//
// Check has no side effects on the store.
func (s *DedupService) Check(ctx context.Context, c domain.Candidate, withinDays int) (domain.CheckResult, error) {
	tr := otel.Tracer(tracerName)
	ctx, span := tr.Start(ctx, "Check",
		trace.WithAttributes(
			attribute.Int("dedup.within_days", withinDays),
			attribute.Int("dedup.text_len", utf8.RuneCountInString(c.Text)),
			attribute.Int("dedup.image_bytes", len(c.Image)),
			attribute.Int("dedup.video_bytes", len(c.Video)),
		),
	)
	defer span.End()

	res, err := s.check(ctx, s.DB, c, withinDays)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "check failed")
		return res, err
	}
	span.SetAttributes(attribute.Bool("dedup.duplicate", res.Duplicate))
	return res, nil
}

// Remember records in as published content with created_at = now. It does
// not look for duplicates; call Check first, or use InsertIfNew.
func (s *DedupService) Remember(ctx context.Context, in domain.RecordInput) (*domain.ContentRecord, error) {
	tr := otel.Tracer(tracerName)
	ctx, span := tr.Start(ctx, "Remember",
		trace.WithAttributes(attribute.String("dedup.platform", in.Platform)),
	)
	defer span.End()

	rec := s.newRecord(in)
	if err := repo.InsertRecord(ctx, s.DB, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, storageErr("remember", err)
	}
	recordsTotal.Inc()

	log.Debug().
		Int64("record_id", rec.ID).
		Str("text_fp", fingerprint.Short(rec.TextHash)).
		Str("img_fp", fingerprint.Short(rec.ImgHash)).
		Str("vid_fp", fingerprint.Short(rec.VidHash)).
		Str("platform", in.Platform).
		Msg("content recorded")
	return rec, nil
}

// InsertIfNew atomically checks in against the window and, when no match is
// found, records it. On a duplicate the returned record is nil and nothing is
// written.
//
// Concurrency & atomicity:
//   - The check and insert share one transaction that takes the SQLite write
//     lock before reading, so a concurrent writer in another process waits
//     (busy_timeout) and then sees this row.
//   - Within a process, calls are serialized by a mutex.
func (s *DedupService) InsertIfNew(ctx context.Context, in domain.RecordInput, withinDays int) (domain.CheckResult, *domain.ContentRecord, error) {
	tr := otel.Tracer(tracerName)
	ctx, span := tr.Start(ctx, "InsertIfNew",
		trace.WithAttributes(
			attribute.Int("dedup.within_days", withinDays),
			attribute.String("dedup.platform", in.Platform),
		),
	)
	defer span.End()

	s.insertMu.Lock()
	defer s.insertMu.Unlock()

	var (
		res domain.CheckResult
		rec *domain.ContentRecord
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.AcquireWriteLock(ctx, tx); err != nil {
			return err
		}
		r, err := s.check(ctx, tx, in.Candidate, withinDays)
		if err != nil {
			return err
		}
		res = r
		if r.Duplicate {
			return nil
		}
		candidate := s.newRecord(in)
		if err := repo.InsertRecord(ctx, tx, candidate); err != nil {
			return err
		}
		rec = candidate
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert-if-new failed")
		if errors.Is(err, ErrStorageUnavailable) {
			return domain.CheckResult{WithinDays: withinDays}, nil, err
		}
		return domain.CheckResult{WithinDays: withinDays}, nil, storageErr("insert_if_new", err)
	}
	if rec != nil {
		recordsTotal.Inc()
	}
	span.SetAttributes(attribute.Bool("dedup.duplicate", res.Duplicate))
	return res, rec, nil
}

// Purge deletes every record created more than olderThanDays days ago and
// returns how many were removed. Negative ages are treated as 0. Repeating
// the call with no newly aged data returns 0.
func (s *DedupService) Purge(ctx context.Context, olderThanDays int) (int64, error) {
	tr := otel.Tracer(tracerName)
	ctx, span := tr.Start(ctx, "Purge",
		trace.WithAttributes(attribute.Int("dedup.older_than_days", olderThanDays)),
	)
	defer span.End()

	if olderThanDays < 0 {
		olderThanDays = 0
	}
	cutoff := daysBefore(s.now().Unix(), olderThanDays)
	n, err := repo.DeleteOlderThan(ctx, s.DB, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "purge failed")
		return 0, storageErr("purge", err)
	}
	purgedTotal.Add(float64(n))
	span.SetAttributes(attribute.Int64("dedup.deleted", n))
	return n, nil
}

// ExpireIdempotency removes idempotency keys whose TTL has elapsed.
func (s *DedupService) ExpireIdempotency(ctx context.Context) (int64, error) {
	n, err := repo.PurgeExpiredIdempotency(ctx, s.DB, s.now().UTC())
	if err != nil {
		return 0, storageErr("expire_idempotency", err)
	}
	return n, nil
}

// Stats summarizes the store contents.
func (s *DedupService) Stats(ctx context.Context) (domain.ContentStats, error) {
	st, err := repo.ContentStats(ctx, s.DB)
	if err != nil {
		return st, storageErr("stats", err)
	}
	return st, nil
}

// ListPage returns a page of records (newest first) and the total count.
// Invalid page/pageSize fall back to 1 and 20.
func (s *DedupService) ListPage(ctx context.Context, page, pageSize int) ([]domain.ContentRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountRecords(ctx, s.DB)
	if err != nil {
		return nil, 0, storageErr("list", err)
	}
	if total == 0 {
		return []domain.ContentRecord{}, 0, nil
	}

	items, err := repo.ListRecordsPage(ctx, s.DB, offset, pageSize)
	if err != nil {
		return nil, 0, storageErr("list", err)
	}
	return items, total, nil
}

// Version returns (count, newest id). Both change whenever the store is
// written or purged, so the pair can key a listing ETag.
func (s *DedupService) Version(ctx context.Context) (int64, int64, error) {
	count, err := repo.CountRecords(ctx, s.DB)
	if err != nil {
		return 0, 0, storageErr("version", err)
	}
	latest, err := repo.LatestRecordID(ctx, s.DB)
	if err != nil {
		return 0, 0, storageErr("version", err)
	}
	return count, latest, nil
}

// check runs the windowed lookup against db, which may be a transaction.
func (s *DedupService) check(ctx context.Context, db *gorm.DB, c domain.Candidate, withinDays int) (domain.CheckResult, error) {
	res := domain.CheckResult{WithinDays: withinDays}
	if withinDays <= 0 {
		checksTotal.WithLabelValues(outcomeEmpty).Inc()
		return res, nil
	}

	if c.IsEmpty() {
		checksTotal.WithLabelValues(outcomeUnique).Inc()
		return res, nil
	}

	textFP := fingerprint.Text(c.Text)
	imgFP := fingerprint.Bytes(c.Image)
	vidFP := fingerprint.Bytes(c.Video)

	cutoff := daysBefore(s.now().Unix(), withinDays)
	match, err := repo.FindRecentMatch(ctx, db, cutoff, textFP, imgFP, vidFP)
	if errors.Is(err, repo.ErrNotFound) {
		checksTotal.WithLabelValues(outcomeUnique).Inc()
		return res, nil
	}
	if err != nil {
		return res, storageErr("check", err)
	}

	checksTotal.WithLabelValues(outcomeDuplicate).Inc()
	res.Duplicate = true
	res.Match = match
	res.Explanation = Explain(withinDays, *match)
	return res, nil
}

// daysBefore returns the unix time days whole days before now. Spans reaching
// past the epoch saturate to math.MinInt64, which puts every stored record
// inside a check window and none before a purge cutoff.
func daysBefore(now int64, days int) int64 {
	if now < 0 || int64(days) > now/secondsPerDay {
		return math.MinInt64
	}
	return now - int64(days)*secondsPerDay
}

// Explain renders the human-readable reason for a duplicate verdict.
func Explain(withinDays int, match domain.ContentRecord) string {
	return fmt.Sprintf("duplicate within %dd (was %s UTC, platform=%s)",
		withinDays, match.CreatedTime().Format(timeLayout), match.PlatformOrDash())
}

func (s *DedupService) newRecord(in domain.RecordInput) *domain.ContentRecord {
	return &domain.ContentRecord{
		CreatedAt: s.now().Unix(),
		TextHash:  fingerprint.Text(in.Text),
		ImgHash:   fingerprint.Bytes(in.Image),
		VidHash:   fingerprint.Bytes(in.Video),
		Platform:  nullable(in.Platform),
		TextLen:   utf8.RuneCountInString(in.Text),
		SourceURL: nullable(in.SourceURL),
		Note:      nullable(in.Note),
	}
}

func (s *DedupService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// storageErr counts the failure and wraps err in ErrStorageUnavailable.
func storageErr(op string, err error) error {
	storeErrors.WithLabelValues(op).Inc()
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

// nullable maps "" to NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
