// Package repo implements the data persistence layer for the dedup store,
// backed by GORM. This file provides small aggregate queries used by the
// stats endpoint and for conditional responses (ETag generation) in the HTTP
// layer.
package repo

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-content-dedup/internal/domain"
)

// ContentStats returns the record count, the oldest and newest creation
// times, and a per-platform breakdown. Records without a platform are
// counted under "-". An empty store yields Total 0 and nil timestamps.
func ContentStats(ctx context.Context, db *gorm.DB) (domain.ContentStats, error) {
	out := domain.ContentStats{ByPlatform: map[string]int64{}}

	var agg struct {
		Total  int64
		Oldest sql.NullInt64
		Newest sql.NullInt64
	}
	err := db.WithContext(ctx).
		Model(&domain.ContentRecord{}).
		Select("COUNT(*) AS total, MIN(created_at) AS oldest, MAX(created_at) AS newest").
		Scan(&agg).Error
	if err != nil {
		return out, err
	}
	out.Total = agg.Total
	if out.Total == 0 {
		return out, nil
	}
	if agg.Oldest.Valid {
		t := time.Unix(agg.Oldest.Int64, 0).UTC()
		out.OldestAt = &t
	}
	if agg.Newest.Valid {
		t := time.Unix(agg.Newest.Int64, 0).UTC()
		out.NewestAt = &t
	}

	var rows []struct {
		Platform string
		N        int64
	}
	err = db.WithContext(ctx).
		Model(&domain.ContentRecord{}).
		Select("COALESCE(NULLIF(platform, ''), '-') AS platform, COUNT(*) AS n").
		Group("COALESCE(NULLIF(platform, ''), '-')").
		Scan(&rows).Error
	if err != nil {
		return out, err
	}
	for _, r := range rows {
		out.ByPlatform[r.Platform] = r.N
	}
	return out, nil
}

// LatestRecordID returns the highest record id, or 0 for an empty store.
// Together with CountRecords it changes on every insert and purge, which is
// what the listing ETag needs.
func LatestRecordID(ctx context.Context, db *gorm.DB) (int64, error) {
	var id sql.NullInt64
	err := db.WithContext(ctx).
		Model(&domain.ContentRecord{}).
		Select("MAX(id)").
		Scan(&id).Error
	if err != nil || !id.Valid {
		return 0, err
	}
	return id.Int64, nil
}
