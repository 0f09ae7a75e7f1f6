package handlers

// Error codes carried in ErrorResponse.Code. Clients branch on these rather
// than on messages.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodePayloadTooLarge  = "payload_too_large"
	ErrCodeRateLimited      = "rate_limited" // emitted by middleware.RateLimiter
	ErrCodeInternal         = "internal_error"

	// Content store:
	ErrCodeStorageUnavailable = "storage_unavailable"
	ErrCodeCheckFailed        = "check_failed"
	ErrCodeCreateFailed       = "create_failed"
	ErrCodeListFailed         = "list_failed"
	ErrCodePurgeFailed        = "purge_failed"
)
