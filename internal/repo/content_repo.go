// Package repo implements the data persistence layer for the dedup store,
// backed by GORM. This file provides repository functions for ContentRecord.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They hold
// no business logic: window and cutoff arithmetic belongs to the caller.
//
// Error semantics:
//   - When no row matches, lookups return gorm.ErrRecordNotFound (also
//     exported here as ErrNotFound).
//   - All other DB errors are propagated unchanged.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-content-dedup/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// InsertRecord appends rec to the posts table. rec.ID is populated from the
// store-assigned key on success.
func InsertRecord(ctx context.Context, db *gorm.DB, rec *domain.ContentRecord) error {
	return db.WithContext(ctx).Create(rec).Error
}

// GetRecord loads one record by id.
func GetRecord(ctx context.Context, db *gorm.DB, id int64) (*domain.ContentRecord, error) {
	var rec domain.ContentRecord
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindRecentMatch returns the most recent record created at or after cutoff
// whose text, image or video fingerprint equals one of the supplied values.
//
// Nil fingerprints are left out of the predicate entirely, so a NULL column
// never matches an absent input. When all three are nil the call returns
// ErrNotFound without touching the database.
//
// Ties on created_at resolve to the later insert (highest id).
func FindRecentMatch(ctx context.Context, db *gorm.DB, cutoff int64, textHash, imgHash, vidHash *string) (*domain.ContentRecord, error) {
	var (
		clauses []string
		args    []any
	)
	if textHash != nil {
		clauses = append(clauses, "text_hash = ?")
		args = append(args, *textHash)
	}
	if imgHash != nil {
		clauses = append(clauses, "img_hash = ?")
		args = append(args, *imgHash)
	}
	if vidHash != nil {
		clauses = append(clauses, "vid_hash = ?")
		args = append(args, *vidHash)
	}
	if len(clauses) == 0 {
		return nil, ErrNotFound
	}

	var rec domain.ContentRecord
	err := db.WithContext(ctx).
		Where("created_at >= ?", cutoff).
		Where("("+strings.Join(clauses, " OR ")+")", args...).
		Order("created_at DESC").
		Order("id DESC").
		Take(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteOlderThan removes every record with created_at strictly before cutoff
// and returns the number of rows deleted.
func DeleteOlderThan(ctx context.Context, db *gorm.DB, cutoff int64) (int64, error) {
	res := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.ContentRecord{})
	return res.RowsAffected, res.Error
}

// CountRecords returns the total number of stored records.
func CountRecords(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ContentRecord{}).
		Count(&total).Error
	return total, err
}

// ListRecordsPage returns a page of records, newest first. Use CountRecords to
// obtain the total for pagination metadata.
func ListRecordsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.ContentRecord, error) {
	var out []domain.ContentRecord
	err := db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// AcquireWriteLock promotes the surrounding transaction to a write
// transaction before any read happens, giving BEGIN IMMEDIATE semantics on a
// driver that only issues deferred BEGINs. Concurrent writers then queue on
// busy_timeout instead of failing at commit.
func AcquireWriteLock(ctx context.Context, tx *gorm.DB) error {
	return tx.WithContext(ctx).Exec("UPDATE posts SET id = id WHERE 0").Error
}
