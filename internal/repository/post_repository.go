package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"postpilot/internal/models"
)

const postColumns = `id, user_id, content, title, platform, status, scheduled_at, published_at, image_url, platform_post_ids, error_message, retry_count, created_at, updated_at`

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) error

	// MarkDueReady promotes scheduled posts whose scheduled_at has passed
	// to ready_for_posting, oldest due first. limit <= 0 means all
	// currently-due rows (the manual force-ready path). Running it twice
	// on the same set is a no-op: promoted rows no longer match the
	// status predicate.
	MarkDueReady(ctx context.Context, now time.Time, limit int) ([]int64, error)

	// PromoteDue is the single-row variant used by the delayed promotion
	// task. Zero rows affected is not an error; the row was already
	// promoted, delivered or cancelled.
	PromoteDue(ctx context.Context, postID int64, now time.Time) (bool, error)

	ListReady(ctx context.Context, limit int) ([]*models.Post, error)

	// Claim moves one ready_for_posting row to processing. The update is
	// the sole claim mechanism: zero rows affected means another
	// processor won and the caller gets models.ErrClaimConflict.
	Claim(ctx context.Context, postID int64, now time.Time) error

	MarkPublished(ctx context.Context, postID int64, platform, remoteID string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, postID int64, errorMessage string, now time.Time) error

	// ReleaseClaim puts a claimed row back to ready_for_posting after a
	// store-side failure, so the next poll cycle retries it.
	ReleaseClaim(ctx context.Context, postID int64, now time.Time) error

	// Reschedule re-arms a failed post: failed -> scheduled with a new
	// scheduled_at. Zero rows affected means the post was not in failed.
	Reschedule(ctx context.Context, postID, userID int64, scheduledAt, now time.Time) (bool, error)

	// ScheduleDraft arms a draft: draft -> scheduled. Zero rows affected
	// means the post was not a draft.
	ScheduleDraft(ctx context.Context, postID, userID int64, scheduledAt, now time.Time) (bool, error)

	// Cancel is effective only while the post is still waiting in
	// scheduled or ready_for_posting.
	Cancel(ctx context.Context, postID, userID int64, now time.Time) (bool, error)

	CountByStatus(ctx context.Context, userID int64) ([]*models.StatusCount, error)
	CountByPlatform(ctx context.Context, userID int64) ([]*models.PlatformStatusCount, error)
	ListOverdue(ctx context.Context, userID int64, now time.Time) ([]*models.Post, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, content, title, platform, status, scheduled_at, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.UserID, post.Content, post.Title, post.Platform, post.Status, post.ScheduledAt, post.ImageURL).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.UserID, post.Content, post.Title, post.Platform, post.Status, post.ScheduledAt, post.ImageURL).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func scanPost(row interface{ Scan(...interface{}) error }) (*models.Post, error) {
	var post models.Post
	err := row.Scan(&post.ID, &post.UserID, &post.Content, &post.Title, &post.Platform,
		&post.Status, &post.ScheduledAt, &post.PublishedAt, &post.ImageURL,
		&post.PlatformPostIDs, &post.ErrorMessage, &post.RetryCount,
		&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) MarkDueReady(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	// The outer WHERE repeats the status and due-time predicates. Under
	// read committed the row lock recheck re-evaluates only the outer
	// WHERE; a row cancelled after the subquery snapshot must not match.
	query := `
		UPDATE posts
		SET status = $1, updated_at = $2
		WHERE status = $3 AND scheduled_at <= $2 AND id IN (
			SELECT id FROM posts
			WHERE status = $3 AND scheduled_at <= $2
			ORDER BY scheduled_at ASC
			LIMIT $4
		)
		RETURNING id
	`
	args := []interface{}{models.PostStatusReady, now, models.PostStatusScheduled, limit}

	if limit <= 0 {
		query = `
		UPDATE posts
		SET status = $1, updated_at = $2
		WHERE status = $3 AND scheduled_at <= $2
		RETURNING id
	`
		args = args[:3]
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postRepository) PromoteDue(ctx context.Context, postID int64, now time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND scheduled_at <= $2
	`
	res, err := r.db.ExecContext(ctx, query, models.PostStatusReady, now, postID, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) ListReady(ctx context.Context, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE status = $1 ORDER BY scheduled_at ASC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusReady, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) Claim(ctx context.Context, postID int64, now time.Time) error {
	query := `
		UPDATE posts
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query, models.PostStatusProcessing, now, postID, models.PostStatusReady)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrClaimConflict
	}
	return nil
}

func (r *postRepository) MarkPublished(ctx context.Context, postID int64, platform, remoteID string, publishedAt time.Time) error {
	// published_at and platform_post_ids are write-once: a later retry of
	// an already-published post never overwrites them. In the jsonb
	// concatenation the right operand wins on duplicate keys, so the
	// stored map goes on the right to keep the existing remote id.
	query := `
		UPDATE posts
		SET status = $1,
			published_at = COALESCE(published_at, $2),
			platform_post_ids = jsonb_build_object($3::text, $4::text) || COALESCE(platform_post_ids, '{}'::jsonb),
			error_message = '',
			updated_at = $2
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusPublished, publishedAt, platform, remoteID, postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) MarkFailed(ctx context.Context, postID int64, errorMessage string, now time.Time) error {
	query := `
		UPDATE posts
		SET status = $1,
			error_message = $2,
			retry_count = retry_count + 1,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusFailed, errorMessage, now, postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) ReleaseClaim(ctx context.Context, postID int64, now time.Time) error {
	query := `
		UPDATE posts
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusReady, now, postID, models.PostStatusProcessing)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Reschedule(ctx context.Context, postID, userID int64, scheduledAt, now time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1, scheduled_at = $2, error_message = '', updated_at = $3
		WHERE id = $4 AND user_id = $5 AND status = $6
	`
	res, err := r.db.ExecContext(ctx, query, models.PostStatusScheduled, scheduledAt, now, postID, userID, models.PostStatusFailed)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) ScheduleDraft(ctx context.Context, postID, userID int64, scheduledAt, now time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1, scheduled_at = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5 AND status = $6
	`
	res, err := r.db.ExecContext(ctx, query, models.PostStatusScheduled, scheduledAt, now, postID, userID, models.PostStatusDraft)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) Cancel(ctx context.Context, postID, userID int64, now time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4 AND status IN ($5, $6)
	`
	res, err := r.db.ExecContext(ctx, query, models.PostStatusCancelled, now, postID, userID, models.PostStatusScheduled, models.PostStatusReady)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) CountByStatus(ctx context.Context, userID int64) ([]*models.StatusCount, error) {
	query := `SELECT status, COUNT(*) FROM posts WHERE user_id = $1 GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var counts []*models.StatusCount
	for rows.Next() {
		var c models.StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		counts = append(counts, &c)
	}
	return counts, rows.Err()
}

func (r *postRepository) CountByPlatform(ctx context.Context, userID int64) ([]*models.PlatformStatusCount, error) {
	query := `SELECT platform, status, COUNT(*) FROM posts WHERE user_id = $1 GROUP BY platform, status`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var counts []*models.PlatformStatusCount
	for rows.Next() {
		var c models.PlatformStatusCount
		if err := rows.Scan(&c.Platform, &c.Status, &c.Count); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		counts = append(counts, &c)
	}
	return counts, rows.Err()
}

func (r *postRepository) ListOverdue(ctx context.Context, userID int64, now time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 AND status IN ($2, $3) AND scheduled_at <= $4 ORDER BY scheduled_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, models.PostStatusScheduled, models.PostStatusReady, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}
