package transfer

import "postpilot/internal/models"

// OverduePost is one entry of the stuck-post report: a post that should
// have gone out already but has not reached a terminal status.
type OverduePost struct {
	PostID         int64  `json:"post_id"`
	Platform       string `json:"platform"`
	Status         string `json:"status"`
	ScheduledDate  string `json:"scheduled_date"`
	ScheduledTime  string `json:"scheduled_time"`
	MinutesOverdue int64  `json:"minutes_overdue"`
}

// PipelineSummary is the status monitor's full view of the pipeline.
type PipelineSummary struct {
	ByStatus   []*models.StatusCount         `json:"by_status"`
	ByPlatform []*models.PlatformStatusCount `json:"by_platform"`
	Overdue    []*OverduePost                `json:"overdue"`
}
