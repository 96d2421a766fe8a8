package service

import (
	"context"
	"fmt"

	"postpilot/internal/models"
	"postpilot/internal/repository"
	"postpilot/internal/schedule"
	"postpilot/internal/transfer"
)

type MonitorService interface {
	// PipelineSummary aggregates the user's posts by status and by
	// platform outcome, and lists posts that are past due but not yet in
	// a terminal status. All three sections tolerate an empty table.
	PipelineSummary(ctx context.Context, userID int64) (*transfer.PipelineSummary, error)
}

type monitorService struct {
	pr repository.PostRepository
}

func NewMonitorService(pr repository.PostRepository) MonitorService {
	return &monitorService{pr: pr}
}

func (s *monitorService) PipelineSummary(ctx context.Context, userID int64) (*transfer.PipelineSummary, error) {
	byStatus, err := s.pr.CountByStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error counting posts by status")
	}

	byPlatform, err := s.pr.CountByPlatform(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error counting posts by platform")
	}

	now := schedule.Now()
	overduePosts, err := s.pr.ListOverdue(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("Error listing overdue posts")
	}

	overdue := make([]*transfer.OverduePost, 0, len(overduePosts))
	for _, post := range overduePosts {
		if !post.ScheduledAt.Valid {
			continue
		}

		dateStr, timeStr := schedule.Display(post.ScheduledAt.Time)
		overdue = append(overdue, &transfer.OverduePost{
			PostID:         post.ID,
			Platform:       post.Platform,
			Status:         post.Status,
			ScheduledDate:  dateStr,
			ScheduledTime:  timeStr,
			MinutesOverdue: int64(now.Sub(post.ScheduledAt.Time).Minutes()),
		})
	}

	return &transfer.PipelineSummary{
		ByStatus:   orDefault(byStatus),
		ByPlatform: orDefaultPlatform(byPlatform),
		Overdue:    overdue,
	}, nil
}

// orDefault keeps the JSON shape stable when the user has no posts.
func orDefault(counts []*models.StatusCount) []*models.StatusCount {
	if counts == nil {
		return []*models.StatusCount{}
	}
	return counts
}

func orDefaultPlatform(counts []*models.PlatformStatusCount) []*models.PlatformStatusCount {
	if counts == nil {
		return []*models.PlatformStatusCount{}
	}
	return counts
}
