package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postpilot/internal/models"
	"postpilot/internal/repository"
	"postpilot/internal/schedule"
	"postpilot/internal/transfer"
)

// stubPostRepo overrides only the methods a test exercises; calling
// anything else panics through the embedded nil interface.
type stubPostRepo struct {
	repository.PostRepository
	createFn     func(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	cancelFn     func(ctx context.Context, postID, userID int64, now time.Time) (bool, error)
	rescheduleFn func(ctx context.Context, postID, userID int64, scheduledAt, now time.Time) (bool, error)
	scheduleFn   func(ctx context.Context, postID, userID int64, scheduledAt, now time.Time) (bool, error)
}

func (s *stubPostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	return s.createFn(ctx, tx, post)
}

func (s *stubPostRepo) Cancel(ctx context.Context, postID, userID int64, now time.Time) (bool, error) {
	return s.cancelFn(ctx, postID, userID, now)
}

func (s *stubPostRepo) Reschedule(ctx context.Context, postID, userID int64, scheduledAt, now time.Time) (bool, error) {
	return s.rescheduleFn(ctx, postID, userID, scheduledAt, now)
}

func (s *stubPostRepo) ScheduleDraft(ctx context.Context, postID, userID int64, scheduledAt, now time.Time) (bool, error) {
	return s.scheduleFn(ctx, postID, userID, scheduledAt, now)
}

func newPostService(t *testing.T, pr repository.PostRepository) (PostService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostService(db, pr, nil, nil, nil, nil), mock
}

func creation(platform string, at time.Time) *transfer.PostCreation {
	dateStr, timeStr := schedule.Display(at)
	return &transfer.PostCreation{
		Content:       "hello world",
		Platform:      platform,
		ScheduledDate: dateStr,
		ScheduledTime: timeStr,
	}
}

func TestCreatePostSchedulesWithLeadTime(t *testing.T) {
	var created *models.Post
	pr := &stubPostRepo{
		createFn: func(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
			created = post
			return 42, nil
		},
	}

	s, mock := newPostService(t, pr)
	mock.ExpectBegin()
	mock.ExpectCommit()

	id, delay, err := s.CreatePost(context.Background(), 7, creation(models.PlatformTwitter, schedule.Now().Add(2*time.Minute)), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	require.NotNil(t, created)
	assert.Equal(t, models.PostStatusScheduled, created.Status)
	assert.True(t, created.ScheduledAt.Valid)

	// The stored wall clock is truncated to the minute, so the delay lands
	// somewhere between the minimum lead and the requested two minutes.
	assert.GreaterOrEqual(t, delay, time.Minute)
	assert.LessOrEqual(t, delay, 2*time.Minute)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePostRejectsShortLeadTime(t *testing.T) {
	s, _ := newPostService(t, &stubPostRepo{})

	_, _, err := s.CreatePost(context.Background(), 7, creation(models.PlatformTwitter, schedule.Now().Add(30*time.Second)), nil)
	require.Error(t, err)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "at least 1 minute")
}

func TestCreatePostRejectsFarFuture(t *testing.T) {
	s, _ := newPostService(t, &stubPostRepo{})

	_, _, err := s.CreatePost(context.Background(), 7, creation(models.PlatformTwitter, schedule.Now().Add(2*365*24*time.Hour)), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 1 year")
}

func TestCreatePostRejectsMalformedSchedule(t *testing.T) {
	s, _ := newPostService(t, &stubPostRepo{})

	pc := &transfer.PostCreation{
		Content:       "hello",
		Platform:      models.PlatformTwitter,
		ScheduledDate: "03/01/2026",
		ScheduledTime: "9pm",
	}

	_, _, err := s.CreatePost(context.Background(), 7, pc, nil)
	require.Error(t, err)

	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCreatePostRejectsEmptyContent(t *testing.T) {
	s, _ := newPostService(t, &stubPostRepo{})

	pc := creation(models.PlatformTwitter, schedule.Now().Add(5*time.Minute))
	pc.Content = ""

	_, _, err := s.CreatePost(context.Background(), 7, pc, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content")
}

func TestCreatePostRejectsUnknownPlatform(t *testing.T) {
	s, _ := newPostService(t, &stubPostRepo{})

	_, _, err := s.CreatePost(context.Background(), 7, creation("myspace", schedule.Now().Add(5*time.Minute)), nil)
	require.Error(t, err)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "platform", verr.Field)
}

func TestCreateRedditPostRequiresTitle(t *testing.T) {
	s, _ := newPostService(t, &stubPostRepo{})

	_, _, err := s.CreatePost(context.Background(), 7, creation(models.PlatformReddit, schedule.Now().Add(5*time.Minute)), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")
}

func TestCreateInstagramPostRequiresImage(t *testing.T) {
	s, _ := newPostService(t, &stubPostRepo{})

	_, _, err := s.CreatePost(context.Background(), 7, creation(models.PlatformInstagram, schedule.Now().Add(5*time.Minute)), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image")
}

func TestCreateDraftSkipsSchedule(t *testing.T) {
	var created *models.Post
	pr := &stubPostRepo{
		createFn: func(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
			created = post
			return 9, nil
		},
	}

	s, mock := newPostService(t, pr)
	mock.ExpectBegin()
	mock.ExpectCommit()

	pc := &transfer.PostCreation{
		Content:  "draft content",
		Platform: models.PlatformLinkedin,
		Draft:    true,
	}

	_, delay, err := s.CreatePost(context.Background(), 7, pc, nil)
	require.NoError(t, err)
	assert.Zero(t, delay)

	require.NotNil(t, created)
	assert.Equal(t, models.PostStatusDraft, created.Status)
	assert.False(t, created.ScheduledAt.Valid)
}

func TestCreateRedditPostWithTitleSucceeds(t *testing.T) {
	pr := &stubPostRepo{
		createFn: func(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
			return 11, nil
		},
	}

	s, mock := newPostService(t, pr)
	mock.ExpectBegin()
	mock.ExpectCommit()

	pc := creation(models.PlatformReddit, schedule.Now().Add(5*time.Minute))
	pc.Title = "a proper title"

	id, _, err := s.CreatePost(context.Background(), 7, pc, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
}

func TestScheduleArmsDraft(t *testing.T) {
	pr := &stubPostRepo{
		scheduleFn: func(ctx context.Context, postID, userID int64, scheduledAt, now time.Time) (bool, error) {
			return true, nil
		},
	}
	s, _ := newPostService(t, pr)

	dateStr, timeStr := schedule.Display(schedule.Now().Add(10 * time.Minute))
	delay, err := s.Schedule(context.Background(), 7, &transfer.PostRetry{
		PostID:        5,
		ScheduledDate: dateStr,
		ScheduledTime: timeStr,
	})
	require.NoError(t, err)
	assert.Greater(t, delay, time.Duration(0))
}

func TestScheduleRejectsNonDraft(t *testing.T) {
	pr := &stubPostRepo{
		scheduleFn: func(ctx context.Context, postID, userID int64, scheduledAt, now time.Time) (bool, error) {
			return false, nil
		},
	}
	s, _ := newPostService(t, pr)

	dateStr, timeStr := schedule.Display(schedule.Now().Add(10 * time.Minute))
	_, err := s.Schedule(context.Background(), 7, &transfer.PostRetry{
		PostID:        5,
		ScheduledDate: dateStr,
		ScheduledTime: timeStr,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only drafts")
}

func TestRetryReschedulesFailedPost(t *testing.T) {
	pr := &stubPostRepo{
		rescheduleFn: func(ctx context.Context, postID, userID int64, scheduledAt, now time.Time) (bool, error) {
			return true, nil
		},
	}
	s, _ := newPostService(t, pr)

	dateStr, timeStr := schedule.Display(schedule.Now().Add(10 * time.Minute))
	delay, err := s.Retry(context.Background(), 7, &transfer.PostRetry{
		PostID:        3,
		ScheduledDate: dateStr,
		ScheduledTime: timeStr,
	})
	require.NoError(t, err)
	assert.Greater(t, delay, time.Duration(0))
}

func TestRetryRejectsNonFailedPost(t *testing.T) {
	pr := &stubPostRepo{
		rescheduleFn: func(ctx context.Context, postID, userID int64, scheduledAt, now time.Time) (bool, error) {
			return false, nil
		},
	}
	s, _ := newPostService(t, pr)

	dateStr, timeStr := schedule.Display(schedule.Now().Add(10 * time.Minute))
	_, err := s.Retry(context.Background(), 7, &transfer.PostRetry{
		PostID:        3,
		ScheduledDate: dateStr,
		ScheduledTime: timeStr,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only failed posts")
}

func TestRetryValidatesNewSchedule(t *testing.T) {
	s, _ := newPostService(t, &stubPostRepo{})

	dateStr, timeStr := schedule.Display(schedule.Now().Add(-time.Hour))
	_, err := s.Retry(context.Background(), 7, &transfer.PostRetry{
		PostID:        3,
		ScheduledDate: dateStr,
		ScheduledTime: timeStr,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 1 minute")
}

func TestCancelOutsideWindow(t *testing.T) {
	pr := &stubPostRepo{
		cancelFn: func(ctx context.Context, postID, userID int64, now time.Time) (bool, error) {
			return false, nil
		},
	}
	s, _ := newPostService(t, pr)

	err := s.Cancel(context.Background(), 7, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can no longer be cancelled")
}

func TestCancelScheduledPost(t *testing.T) {
	pr := &stubPostRepo{
		cancelFn: func(ctx context.Context, postID, userID int64, now time.Time) (bool, error) {
			assert.Equal(t, int64(3), postID)
			assert.Equal(t, int64(7), userID)
			return true, nil
		},
	}
	s, _ := newPostService(t, pr)

	require.NoError(t, s.Cancel(context.Background(), 7, 3))
}

func TestCancelSurfacesStoreError(t *testing.T) {
	storeErr := errors.New("connection reset")
	pr := &stubPostRepo{
		cancelFn: func(ctx context.Context, postID, userID int64, now time.Time) (bool, error) {
			return false, storeErr
		},
	}
	s, _ := newPostService(t, pr)

	err := s.Cancel(context.Background(), 7, 3)
	assert.ErrorIs(t, err, storeErr)
}
