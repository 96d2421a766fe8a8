package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postpilot/internal/models"
	"postpilot/internal/repository"
	"postpilot/internal/schedule"
)

type stubMonitorRepo struct {
	repository.PostRepository
	byStatus      []*models.StatusCount
	byPlatform    []*models.PlatformStatusCount
	overdue       []*models.Post
	overdueUserID int64
}

func (s *stubMonitorRepo) CountByStatus(ctx context.Context, userID int64) ([]*models.StatusCount, error) {
	return s.byStatus, nil
}

func (s *stubMonitorRepo) CountByPlatform(ctx context.Context, userID int64) ([]*models.PlatformStatusCount, error) {
	return s.byPlatform, nil
}

func (s *stubMonitorRepo) ListOverdue(ctx context.Context, userID int64, now time.Time) ([]*models.Post, error) {
	s.overdueUserID = userID
	return s.overdue, nil
}

func TestPipelineSummaryEmptyPipeline(t *testing.T) {
	s := NewMonitorService(&stubMonitorRepo{})

	summary, err := s.PipelineSummary(context.Background(), 7)
	require.NoError(t, err)

	assert.NotNil(t, summary.ByStatus)
	assert.NotNil(t, summary.ByPlatform)
	assert.Empty(t, summary.ByStatus)
	assert.Empty(t, summary.ByPlatform)
	assert.Empty(t, summary.Overdue)
}

func TestPipelineSummaryReportsOverdueMinutes(t *testing.T) {
	scheduledAt := schedule.Now().Add(-90 * time.Minute)
	s := NewMonitorService(&stubMonitorRepo{
		overdue: []*models.Post{
			{
				ID:          3,
				UserID:      7,
				Platform:    models.PlatformTwitter,
				Status:      models.PostStatusReady,
				ScheduledAt: sql.NullTime{Time: scheduledAt, Valid: true},
			},
		},
	})

	summary, err := s.PipelineSummary(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, summary.Overdue, 1)

	entry := summary.Overdue[0]
	assert.Equal(t, int64(3), entry.PostID)
	assert.Equal(t, models.PostStatusReady, entry.Status)
	assert.Equal(t, int64(90), entry.MinutesOverdue)

	dateStr, timeStr := schedule.Display(scheduledAt)
	assert.Equal(t, dateStr, entry.ScheduledDate)
	assert.Equal(t, timeStr, entry.ScheduledTime)
}

func TestPipelineSummaryScopesOverdueToUser(t *testing.T) {
	scheduledAt := schedule.Now().Add(-10 * time.Minute)
	repo := &stubMonitorRepo{
		overdue: []*models.Post{
			{ID: 1, UserID: 7, Status: models.PostStatusScheduled, ScheduledAt: sql.NullTime{Time: scheduledAt, Valid: true}},
		},
	}
	s := NewMonitorService(repo)

	summary, err := s.PipelineSummary(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, summary.Overdue, 1)
	assert.Equal(t, int64(1), summary.Overdue[0].PostID)
	assert.Equal(t, int64(7), repo.overdueUserID)
}

func TestPipelineSummaryPassesThroughCounts(t *testing.T) {
	s := NewMonitorService(&stubMonitorRepo{
		byStatus: []*models.StatusCount{
			{Status: models.PostStatusScheduled, Count: 2},
			{Status: models.PostStatusPublished, Count: 5},
		},
		byPlatform: []*models.PlatformStatusCount{
			{Platform: models.PlatformReddit, Status: models.PostStatusFailed, Count: 1},
		},
	})

	summary, err := s.PipelineSummary(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, summary.ByStatus, 2)
	assert.Len(t, summary.ByPlatform, 1)
	assert.Equal(t, 5, summary.ByStatus[1].Count)
}
