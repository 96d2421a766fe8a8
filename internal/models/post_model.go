package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PlatformPostIDs maps a platform name to the remote post identifier
// returned by the delivery call. Stored as JSONB.
type PlatformPostIDs map[string]string

func (p PlatformPostIDs) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

func (p *PlatformPostIDs) Scan(src interface{}) error {
	if src == nil {
		*p = PlatformPostIDs{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into PlatformPostIDs", src)
	}
	return json.Unmarshal(b, p)
}

type Post struct {
	ID              int64           `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"user_id"`
	Content         string          `db:"content" json:"content"`
	Title           string          `db:"title" json:"title"` // mandatory for reddit
	Platform        string          `db:"platform" json:"platform"`
	Status          string          `db:"status" json:"status"`
	ScheduledAt     sql.NullTime    `db:"scheduled_at" json:"scheduled_at"`
	PublishedAt     sql.NullTime    `db:"published_at" json:"published_at"`
	ImageURL        string          `db:"image_url" json:"image_url"`
	PlatformPostIDs PlatformPostIDs `db:"platform_post_ids" json:"platform_post_ids"`
	ErrorMessage    string          `db:"error_message" json:"error_message"`
	RetryCount      int             `db:"retry_count" json:"retry_count"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft      = "draft"
	PostStatusScheduled  = "scheduled"
	PostStatusReady      = "ready_for_posting"
	PostStatusProcessing = "processing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
	PostStatusCancelled  = "cancelled"
)

const (
	PlatformTwitter   = "twitter"
	PlatformLinkedin  = "linkedin"
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
	PlatformReddit    = "reddit"
)

// Platforms lists every platform a post may target. A post targets exactly
// one platform; multi-platform publishing is one row per platform.
var Platforms = []string{
	PlatformTwitter,
	PlatformLinkedin,
	PlatformInstagram,
	PlatformFacebook,
	PlatformReddit,
}

func IsValidPlatform(platform string) bool {
	for _, p := range Platforms {
		if p == platform {
			return true
		}
	}
	return false
}

// StatusCount is one row of the status monitor's per-status aggregation.
type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}

// PlatformStatusCount is one row of the per-platform outcome aggregation.
type PlatformStatusCount struct {
	Platform string `db:"platform" json:"platform"`
	Status   string `db:"status" json:"status"`
	Count    int    `db:"count" json:"count"`
}

type MediaAsset struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileType  string    `db:"file_type" json:"file_type"`
	FileURL   string    `db:"file_url" json:"file_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
