// Package domain defines the persistence models for the content deduplication
// store. These types are mapped with GORM and shared across the repository,
// service, and transport layers.
package domain

import "time"

// ContentRecord is one previously processed candidate. Rows are append-only:
// they are created by Remember/InsertIfNew, read by Check, and only ever
// removed by age-based purging.
//
// Fingerprint columns are NULL when the corresponding content was absent.
// CreatedAt is stored as Unix seconds.
type ContentRecord struct {
	ID        int64   `json:"id"                   gorm:"column:id;primaryKey;autoIncrement"`
	CreatedAt int64   `json:"created_at"           gorm:"column:created_at;not null;autoCreateTime:false;index:idx_posts_created"`
	TextHash  *string `json:"text_hash,omitempty"  gorm:"column:text_hash;index:idx_posts_text"`
	ImgHash   *string `json:"img_hash,omitempty"   gorm:"column:img_hash;index:idx_posts_img"`
	VidHash   *string `json:"vid_hash,omitempty"   gorm:"column:vid_hash;index:idx_posts_vid"`
	Platform  *string `json:"platform,omitempty"   gorm:"column:platform"`
	TextLen   int     `json:"text_len"             gorm:"column:text_len;not null"`
	SourceURL *string `json:"source_url,omitempty" gorm:"column:src_url"`
	Note      *string `json:"note,omitempty"       gorm:"column:note"`
}

// TableName returns the database table name for ContentRecord.
func (ContentRecord) TableName() string { return "posts" }

// CreatedTime returns CreatedAt as a UTC time.
func (r ContentRecord) CreatedTime() time.Time { return time.Unix(r.CreatedAt, 0).UTC() }

// PlatformOrDash returns the platform label, or "-" when none was recorded.
func (r ContentRecord) PlatformOrDash() string {
	if r.Platform == nil || *r.Platform == "" {
		return "-"
	}
	return *r.Platform
}

// Candidate is content proposed for publication. Any field may be empty;
// empty fields carry no fingerprint and never match stored content.
type Candidate struct {
	Text  string
	Image []byte
	Video []byte
}

// IsEmpty reports whether the candidate carries no content at all.
func (c Candidate) IsEmpty() bool {
	return c.Text == "" && len(c.Image) == 0 && len(c.Video) == 0
}

// RecordInput is a candidate plus the provenance recorded alongside it.
// Empty strings are persisted as NULL.
type RecordInput struct {
	Candidate
	Platform  string
	SourceURL string
	Note      string
}

// CheckResult is the outcome of a windowed duplicate check.
type CheckResult struct {
	Duplicate   bool           `json:"duplicate"`
	Explanation string         `json:"explanation,omitempty"`
	WithinDays  int            `json:"within_days"`
	Match       *ContentRecord `json:"match,omitempty"`
}

// ContentStats summarizes the store for the stats endpoint and CLI.
type ContentStats struct {
	Total      int64            `json:"total"`
	OldestAt   *time.Time       `json:"oldest_at,omitempty"`
	NewestAt   *time.Time       `json:"newest_at,omitempty"`
	ByPlatform map[string]int64 `json:"by_platform"`
}
