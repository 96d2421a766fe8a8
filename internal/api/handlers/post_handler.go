package handlers

import (
	"log/slog"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"postpilot/internal/queue"
	"postpilot/internal/service"
	"postpilot/internal/transfer"
)

type PostHandler struct {
	s           service.PostService
	AsynqClient *asynq.Client
}

func NewPostHandler(service service.PostService, asynqClient *asynq.Client) *PostHandler {
	return &PostHandler{s: service, AsynqClient: asynqClient}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	pc := &transfer.PostCreation{
		Content:       c.FormValue("content"),
		Title:         c.FormValue("title"),
		Platform:      c.FormValue("platform"),
		ScheduledDate: c.FormValue("scheduled_date"),
		ScheduledTime: c.FormValue("scheduled_time"),
		Draft:         c.FormValue("draft") == "true",
	}

	var image *multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		if files := form.File["image"]; len(files) > 0 {
			image = files[0]
		}
	}

	postID, delay, err := h.s.CreatePost(c.Context(), userID, pc, image)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if delay > 0 {
		err = queue.EnqueuePromotion(h.AsynqClient, queue.PromotePostPayload{PostID: postID}, delay)
		if err != nil {
			// The cron marker still promotes the post; the nudge is an
			// optimization, not the source of truth.
			slog.Error("promotion enqueue failed", "post_id", postID, "error", err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post scheduled successfully",
		"post_id": postID,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userId := GetUserID(c)
	postId := c.QueryInt("id", 0)

	if postId != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postId), userId)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to list posts",
			})
		}

		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), userId)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) PostHistory(c *fiber.Ctx) error {
	userId := GetUserID(c)
	postId := c.QueryInt("id", 0)

	attempts, err := h.s.History(c.Context(), int64(postId), userId)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to get delivery history",
		})
	}

	return c.Status(fiber.StatusOK).JSON(attempts)
}

func (h *PostHandler) CancelPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("id", 0)

	err := h.s.Cancel(c.Context(), userID, int64(postId))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post cancelled",
	})
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var pr transfer.PostRetry
	if err := c.BodyParser(&pr); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	delay, err := h.s.Schedule(c.Context(), userID, &pr)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if delay > 0 {
		err = queue.EnqueuePromotion(h.AsynqClient, queue.PromotePostPayload{PostID: pr.PostID}, delay)
		if err != nil {
			slog.Error("promotion enqueue failed", "post_id", pr.PostID, "error", err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post scheduled",
	})
}

func (h *PostHandler) RetryPost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var pr transfer.PostRetry
	if err := c.BodyParser(&pr); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	delay, err := h.s.Retry(c.Context(), userID, &pr)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if delay > 0 {
		err = queue.EnqueuePromotion(h.AsynqClient, queue.PromotePostPayload{PostID: pr.PostID}, delay)
		if err != nil {
			slog.Error("promotion enqueue failed", "post_id", pr.PostID, "error", err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post rescheduled",
	})
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), userID, int64(postId))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
