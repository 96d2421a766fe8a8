package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"postpilot/internal/models"
	"postpilot/internal/repository"
	"postpilot/internal/schedule"
	"postpilot/internal/transfer"
)

type PostService interface {
	// CreatePost validates and stores a new post. For scheduled posts the
	// returned delay is how long until the post is due; the caller uses it
	// to arm the delayed promotion task. Drafts return a zero delay.
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, file *multipart.FileHeader) (int64, time.Duration, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	History(ctx context.Context, postID, userID int64) ([]*models.DeliveryAttempt, error)
	Cancel(ctx context.Context, userID, postID int64) error
	// Schedule arms an existing draft with a future time and returns the
	// delay until it is due.
	Schedule(ctx context.Context, userID int64, pr *transfer.PostRetry) (time.Duration, error)
	// Retry re-arms a failed post with a fresh schedule and returns the
	// delay until the new due time.
	Retry(ctx context.Context, userID int64, pr *transfer.PostRetry) (time.Duration, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db *sql.DB
	pr repository.PostRepository
	ac repository.SocialAccountRepository
	ma repository.MediaAssetRepository
	dh repository.DeliveryHistoryRepository
	r2 *R2Service
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	ac repository.SocialAccountRepository,
	ma repository.MediaAssetRepository,
	dh repository.DeliveryHistoryRepository,
	r2 *R2Service) PostService {
	return &postService{
		db: db,
		pr: pr,
		ac: ac,
		ma: ma,
		dh: dh,
		r2: r2,
	}
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, file *multipart.FileHeader) (int64, time.Duration, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, 0, err
	}
	if pc.Content == "" {
		return 0, 0, models.NewValidationError("content", "cannot be empty")
	}
	if !models.IsValidPlatform(pc.Platform) {
		return 0, 0, models.NewValidationError("platform", fmt.Sprintf("%q is not a supported platform", pc.Platform))
	}

	// Platform constraints that would fail at delivery are rejected here,
	// while the user can still fix them.
	if pc.Platform == models.PlatformReddit && pc.Title == "" {
		return 0, 0, models.NewValidationError("title", "reddit posts require a title")
	}
	if pc.Platform == models.PlatformInstagram && file == nil {
		return 0, 0, models.NewValidationError("image", "instagram posts require an image")
	}

	post := models.Post{
		UserID:   userID,
		Content:  pc.Content,
		Title:    pc.Title,
		Platform: pc.Platform,
		Status:   models.PostStatusDraft,
	}

	var delay time.Duration
	if !pc.Draft {
		scheduledAt, err := schedule.Normalize(pc.ScheduledDate, pc.ScheduledTime)
		if err != nil {
			slog.Info(err.Error())
			return 0, 0, err
		}

		now := schedule.Now()
		if err := schedule.ValidateLeadTime(scheduledAt, now); err != nil {
			slog.Info(err.Error())
			return 0, 0, err
		}

		post.Status = models.PostStatusScheduled
		post.ScheduledAt = sql.NullTime{Time: scheduledAt, Valid: true}
		delay = scheduledAt.Sub(now)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	if file != nil {
		imageURL, uploadErr := s.saveImage(ctx, tx, userID, file)
		if uploadErr != nil {
			err = uploadErr
			return 0, 0, err
		}
		post.ImageURL = imageURL
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating post: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return postID, delay, nil
}

func (s *postService) saveImage(ctx context.Context, tx *sql.Tx, userID int64, file *multipart.FileHeader) (string, error) {
	allowedTypes := map[string]struct{}{
		"jpeg": {}, "jpg": {}, "png": {},
	}

	fileContent, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("error opening file: %w", err)
	}
	defer fileContent.Close()

	fileBytes, err := io.ReadAll(fileContent)
	if err != nil {
		return "", fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return "", models.NewValidationError("image", "unsupported file type")
	}
	if _, ok := allowedTypes[fileType.Extension]; !ok {
		return "", models.NewValidationError("image", fmt.Sprintf("file type %s is not allowed", fileType.Extension))
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	if err := s.r2.UploadToR2(ctx, id, fileBytes, fileType.MIME.Value); err != nil {
		return "", fmt.Errorf("error uploading file: %w", err)
	}

	fileURL := s.r2.PublicFileURL(id)

	ma := models.MediaAsset{
		UserID:   userID,
		FileName: id,
		FileType: fileType.MIME.Value,
		FileURL:  fileURL,
	}
	if _, err := s.ma.Create(ctx, tx, &ma); err != nil {
		return "", fmt.Errorf("error saving media file: %w", err)
	}

	return fileURL, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting posts")
	}
	return posts, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	var err error

	if userID == 0 {
		err = errors.New("User is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	if postID == 0 {
		err = errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("Error getting post info")
	}

	return post, nil
}

func (s *postService) History(ctx context.Context, postID, userID int64) ([]*models.DeliveryAttempt, error) {
	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	attempts, err := s.dh.GetByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("Error getting delivery history")
	}

	return attempts, nil
}

func (s *postService) Cancel(ctx context.Context, userID, postID int64) error {
	cancelled, err := s.pr.Cancel(ctx, postID, userID, schedule.Now())
	if err != nil {
		return err
	}

	if !cancelled {
		err = errors.New("post can no longer be cancelled")
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (s *postService) Schedule(ctx context.Context, userID int64, pr *transfer.PostRetry) (time.Duration, error) {
	if pr == nil || pr.PostID == 0 {
		return 0, models.NewValidationError("post_id", "is not valid")
	}

	scheduledAt, err := schedule.Normalize(pr.ScheduledDate, pr.ScheduledTime)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	now := schedule.Now()
	if err := schedule.ValidateLeadTime(scheduledAt, now); err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	scheduled, err := s.pr.ScheduleDraft(ctx, pr.PostID, userID, scheduledAt, now)
	if err != nil {
		return 0, err
	}

	if !scheduled {
		err = errors.New("only drafts can be scheduled")
		slog.Info(err.Error())
		return 0, err
	}

	return scheduledAt.Sub(now), nil
}

func (s *postService) Retry(ctx context.Context, userID int64, pr *transfer.PostRetry) (time.Duration, error) {
	if pr == nil || pr.PostID == 0 {
		return 0, models.NewValidationError("post_id", "is not valid")
	}

	scheduledAt, err := schedule.Normalize(pr.ScheduledDate, pr.ScheduledTime)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	now := schedule.Now()
	if err := schedule.ValidateLeadTime(scheduledAt, now); err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	rescheduled, err := s.pr.Reschedule(ctx, pr.PostID, userID, scheduledAt, now)
	if err != nil {
		return 0, err
	}

	if !rescheduled {
		err = errors.New("only failed posts can be retried")
		slog.Info(err.Error())
		return 0, err
	}

	return scheduledAt.Sub(now), nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("User is not valid")
		slog.Info(err.Error())
		return err
	}

	if postID == 0 {
		err = errors.New("post_id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return err
	}

	err = s.pr.Remove(ctx, postID)
	if err != nil {
		return fmt.Errorf("Error removing post")
	}

	return nil
}
