package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"postpilot/internal/models"
)

type DeliveryHistoryRepository interface {
	Create(ctx context.Context, da *models.DeliveryAttempt) (int64, error)
	GetByPostID(ctx context.Context, postID int64) ([]*models.DeliveryAttempt, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.DeliveryAttempt, error)
}

type deliveryHistoryRepository struct {
	db *sql.DB
}

func NewDeliveryHistoryRepository(db *sql.DB) DeliveryHistoryRepository {
	return &deliveryHistoryRepository{db: db}
}

func (r *deliveryHistoryRepository) Create(ctx context.Context, da *models.DeliveryAttempt) (int64, error) {
	query := `
		INSERT INTO delivery_history (user_id, post_id, platform, remote_post_id, error_message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, da.UserID, da.PostID, da.Platform, da.RemotePostID, da.ErrorMessage).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *deliveryHistoryRepository) GetByPostID(ctx context.Context, postID int64) ([]*models.DeliveryAttempt, error) {
	query := `SELECT id, user_id, post_id, platform, remote_post_id, error_message, created_at FROM delivery_history WHERE post_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.DeliveryAttempt
	for rows.Next() {
		var da models.DeliveryAttempt
		err := rows.Scan(&da.ID, &da.UserID, &da.PostID, &da.Platform, &da.RemotePostID, &da.ErrorMessage, &da.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		attempts = append(attempts, &da)
	}
	return attempts, rows.Err()
}

func (r *deliveryHistoryRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.DeliveryAttempt, error) {
	query := `SELECT id, user_id, post_id, platform, remote_post_id, error_message, created_at FROM delivery_history WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.DeliveryAttempt
	for rows.Next() {
		var da models.DeliveryAttempt
		err := rows.Scan(&da.ID, &da.UserID, &da.PostID, &da.Platform, &da.RemotePostID, &da.ErrorMessage, &da.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		attempts = append(attempts, &da)
	}
	return attempts, rows.Err()
}
