package models

import "time"

// DeliveryAttempt is one append-only record per delivery call, successful
// or not. Recovery tooling reads it to decide whether a retry is offered.
type DeliveryAttempt struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	Platform     string    `db:"platform" json:"platform"`
	RemotePostID string    `db:"remote_post_id" json:"remote_post_id"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
