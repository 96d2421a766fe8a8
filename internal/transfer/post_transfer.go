package transfer

// PostCreation is the multipart form payload for creating a post. Date and
// time are the user's local wall clock; normalization happens in the
// service, never in handlers.
type PostCreation struct {
	Content       string `json:"content"`
	Title         string `json:"title"`
	Platform      string `json:"platform"`
	ScheduledDate string `json:"scheduled_date"`
	ScheduledTime string `json:"scheduled_time"`
	Draft         bool   `json:"draft"`
}

// PostRetry re-arms a failed post with a new schedule.
type PostRetry struct {
	PostID        int64  `json:"post_id"`
	ScheduledDate string `json:"scheduled_date"`
	ScheduledTime string `json:"scheduled_time"`
}
