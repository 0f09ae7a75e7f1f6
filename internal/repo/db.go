// Package repo implements the data persistence layer for the dedup store,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and idempotent schema creation.
package repo

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// connPragmas are applied by the driver to every pooled connection, so a
// connection opened after startup behaves the same as the first one.
// busy_timeout goes first so the WAL switch itself waits on a locked file.
var connPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
}

// schema is executed statement by statement; multi-statement Exec is not
// reliable on this driver. Every statement is IF NOT EXISTS so concurrent
// processes may run it against the same file.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at  INTEGER NOT NULL,
		text_hash   TEXT NULL,
		img_hash    TEXT NULL,
		vid_hash    TEXT NULL,
		platform    TEXT NULL,
		text_len    INTEGER NOT NULL DEFAULT 0,
		src_url     TEXT NULL,
		note        TEXT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_text ON posts(text_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_img ON posts(img_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_vid ON posts(vid_hash)`,
	`CREATE TABLE IF NOT EXISTS idempotency (
		id          TEXT     NOT NULL PRIMARY KEY,
		client_id   TEXT     NOT NULL,
		key         TEXT     NOT NULL,
		record_id   INTEGER  NOT NULL,
		status      INTEGER  NOT NULL,
		created_at  DATETIME NOT NULL,
		expires_at  DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_client_key ON idempotency(client_id, key)`,
	`CREATE INDEX IF NOT EXISTS idx_idempotency_expires_at ON idempotency(expires_at)`,
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(withPragmas(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	// Force a real open so unreadable or corrupt files surface here.
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// EnableTracing registers the GORM OpenTelemetry plugin so each query is
// recorded as a child span of the calling request.
func EnableTracing(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// Migrate creates the posts and idempotency tables and their indexes.
// It is safe to call repeatedly and from several processes at once.
func Migrate(db *gorm.DB) error {
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// withPragmas appends the per-connection PRAGMAs to a path or file: URI.
func withPragmas(path string) string {
	var b strings.Builder
	b.WriteString(path)
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	for _, p := range connPragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}
