package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postpilot/internal/models"
)

func newMockRepo(t *testing.T) (PostRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostRepository(db), mock
}

func TestClaimMovesReadyRowToProcessing(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE posts`).
		WithArgs(models.PostStatusProcessing, now, int64(3), models.PostStatusReady).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Claim(context.Background(), 3, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimConflictWhenRowAlreadyTaken(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	// Zero rows affected means another processor already flipped the row.
	mock.ExpectExec(`UPDATE posts`).
		WithArgs(models.PostStatusProcessing, now, int64(3), models.PostStatusReady).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Claim(context.Background(), 3, now)
	assert.ErrorIs(t, err, models.ErrClaimConflict)
}

func TestMarkDueReadySelectsDueBatch(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE posts`).
		WithArgs(models.PostStatusReady, now, models.PostStatusScheduled, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))

	ids, err := repo.MarkDueReady(context.Background(), now, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDueReadyUnbounded(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	// limit <= 0 drops the LIMIT subquery and promotes everything due.
	mock.ExpectQuery(`UPDATE posts`).
		WithArgs(models.PostStatusReady, now, models.PostStatusScheduled).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	ids, err := repo.MarkDueReady(context.Background(), now, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, ids)
}

func TestMarkDueReadyNothingDue(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE posts`).
		WithArgs(models.PostStatusReady, now, models.PostStatusScheduled, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	ids, err := repo.MarkDueReady(context.Background(), now, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMarkDueReadyBoundedRechecksStatusOnUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	// The bounded variant must carry the status and due-time predicates on
	// the UPDATE itself, not only inside the LIMIT subquery. Otherwise a
	// row cancelled between the subquery snapshot and the row lock would
	// be flipped back to ready_for_posting and delivered.
	mock.ExpectQuery(`WHERE status = \$3 AND scheduled_at <= \$2 AND id IN`).
		WithArgs(models.PostStatusReady, now, models.PostStatusScheduled, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))

	ids, err := repo.MarkDueReady(context.Background(), now, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoteDueIsIdempotent(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE posts`).
		WithArgs(models.PostStatusReady, now, int64(5), models.PostStatusScheduled).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE posts`).
		WithArgs(models.PostStatusReady, now, int64(5), models.PostStatusScheduled).
		WillReturnResult(sqlmock.NewResult(0, 0))

	promoted, err := repo.PromoteDue(context.Background(), 5, now)
	require.NoError(t, err)
	assert.True(t, promoted)

	promoted, err = repo.PromoteDue(context.Background(), 5, now)
	require.NoError(t, err)
	assert.False(t, promoted)
}

func TestMarkPublishedKeepsFirstTimestamp(t *testing.T) {
	repo, mock := newMockRepo(t)
	publishedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	// COALESCE keeps an existing published_at; the jsonb merge adds the
	// platform id without replacing earlier entries.
	mock.ExpectExec(`COALESCE\(published_at`).
		WithArgs(models.PostStatusPublished, publishedAt, models.PlatformTwitter, "190123", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkPublished(context.Background(), 3, models.PlatformTwitter, "190123", publishedAt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPublishedKeepsExistingRemoteID(t *testing.T) {
	repo, mock := newMockRepo(t)
	publishedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	// In a jsonb concatenation the right operand wins on duplicate keys,
	// so the stored map must be the right operand: a second MarkPublished
	// for the same platform keeps the first remote id.
	mock.ExpectExec(`jsonb_build_object\(\$3::text, \$4::text\) \|\| COALESCE\(platform_post_ids`).
		WithArgs(models.PostStatusPublished, publishedAt, models.PlatformTwitter, "190456", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkPublished(context.Background(), 3, models.PlatformTwitter, "190456", publishedAt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailedIncrementsRetryCount(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`retry_count = retry_count \+ 1`).
		WithArgs(models.PostStatusFailed, "reddit delivery failed: rate limited", now, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkFailed(context.Background(), 3, "reddit delivery failed: rate limited", now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleOnlyTouchesFailedRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	scheduledAt := now.Add(time.Hour)

	mock.ExpectExec(`UPDATE posts`).
		WithArgs(models.PostStatusScheduled, scheduledAt, now, int64(3), int64(7), models.PostStatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rescheduled, err := repo.Reschedule(context.Background(), 3, 7, scheduledAt, now)
	require.NoError(t, err)
	assert.False(t, rescheduled)
}

func TestCancelWindow(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE posts`).
		WithArgs(models.PostStatusCancelled, now, int64(3), int64(7), models.PostStatusScheduled, models.PostStatusReady).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cancelled, err := repo.Cancel(context.Background(), 3, 7, now)
	require.NoError(t, err)
	assert.True(t, cancelled)
}

func TestCountByStatusEmptyTable(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT status, COUNT`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}))

	counts, err := repo.CountByStatus(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestCountByPlatform(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT platform, status, COUNT`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"platform", "status", "count"}).
			AddRow(models.PlatformTwitter, models.PostStatusPublished, 4).
			AddRow(models.PlatformReddit, models.PostStatusFailed, 1))

	counts, err := repo.CountByPlatform(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, models.PlatformReddit, counts[1].Platform)
	assert.Equal(t, 1, counts[1].Count)
}

func TestListReadyOrdersByDueTime(t *testing.T) {
	repo, mock := newMockRepo(t)
	scheduledAt := time.Date(2026, 5, 1, 11, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "content", "title", "platform", "status", "scheduled_at",
		"published_at", "image_url", "platform_post_ids", "error_message",
		"retry_count", "created_at", "updated_at",
	}).AddRow(
		int64(3), int64(7), "hello", "", models.PlatformTwitter, models.PostStatusReady,
		scheduledAt, nil, "", []byte(`{}`), "", 0, scheduledAt, scheduledAt,
	)

	mock.ExpectQuery(`SELECT .+ FROM posts WHERE status = \$1 ORDER BY scheduled_at ASC`).
		WithArgs(models.PostStatusReady, 10).
		WillReturnRows(rows)

	posts, err := repo.ListReady(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(3), posts[0].ID)
	assert.True(t, posts[0].ScheduledAt.Valid)
	assert.False(t, posts[0].PublishedAt.Valid)
}

func TestListOverdueScopedToUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	scheduledAt := now.Add(-time.Hour)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "content", "title", "platform", "status", "scheduled_at",
		"published_at", "image_url", "platform_post_ids", "error_message",
		"retry_count", "created_at", "updated_at",
	}).AddRow(
		int64(5), int64(7), "late post", "", models.PlatformLinkedin, models.PostStatusScheduled,
		scheduledAt, nil, "", []byte(`{}`), "", 0, scheduledAt, scheduledAt,
	)

	mock.ExpectQuery(`SELECT .+ FROM posts WHERE user_id = \$1 AND status IN`).
		WithArgs(int64(7), models.PostStatusScheduled, models.PostStatusReady, now).
		WillReturnRows(rows)

	posts, err := repo.ListOverdue(context.Background(), 7, now)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(5), posts[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
