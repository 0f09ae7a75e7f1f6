package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-content-dedup/internal/domain"
	"github.com/tbourn/go-content-dedup/internal/repo"
)

// DefaultIdempotencyTTL bounds how long a stored key can be replayed.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyService remembers which content record a (client, key) pair
// produced so retried POSTs replay the original record instead of appending
// a second row.
type IdempotencyService struct {
	DB  *gorm.DB
	TTL time.Duration
}

// NewIdempotencyService builds a service over db. ttl <= 0 uses
// DefaultIdempotencyTTL.
func NewIdempotencyService(db *gorm.DB, ttl time.Duration) *IdempotencyService {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyService{DB: db, TTL: ttl}
}

// Exists reports whether an unexpired result is stored for (clientID, key).
// Its signature matches middleware.IdempotencyLookup.
func (s *IdempotencyService) Exists(ctx context.Context, clientID, key string, now time.Time) (bool, error) {
	_, err := repo.GetIdempotency(ctx, s.DB, clientID, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Replay returns the record stored for (clientID, key), or (nil, nil) when
// there is nothing to replay. A stored key whose record has since been purged
// is treated as absent.
func (s *IdempotencyService) Replay(ctx context.Context, clientID, key string) (*domain.ContentRecord, error) {
	if key == "" {
		return nil, nil
	}
	idem, err := repo.GetIdempotency(ctx, s.DB, clientID, key, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("idempotency_lookup", err)
	}
	rec, err := repo.GetRecord(ctx, s.DB, idem.RecordID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("idempotency_lookup", err)
	}
	return rec, nil
}

// Save stores the (clientID, key) -> record mapping. A concurrent save for
// the same pair is not an error: the first writer wins.
func (s *IdempotencyService) Save(ctx context.Context, clientID, key string, recordID int64, status int) error {
	if key == "" {
		return nil
	}
	_, err := repo.CreateIdempotency(ctx, s.DB, clientID, key, recordID, status, s.TTL)
	if err == nil || errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return storageErr("idempotency_save", err)
}
