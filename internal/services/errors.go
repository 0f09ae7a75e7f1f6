// Package services defines the business logic of the content dedup store.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrStorageUnavailable wraps any failure of the backing store: the file
	// cannot be opened or created, the schema cannot be applied, or a query
	// fails. It is never retried internally. The underlying error remains
	// reachable through errors.Unwrap / errors.As.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
