package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"postpilot/internal/repository"
	"postpilot/internal/schedule"
)

type Worker struct {
	pr repository.PostRepository
}

func NewWorker(pr repository.PostRepository) *Worker {
	return &Worker{pr: pr}
}

// HandlePromotePostTask promotes a single post through the same guarded
// update the cron marker uses: scheduled and due, or nothing happens.
// Zero rows is normal; the marker, a cancellation or an earlier run of
// this task got there first.
func (w *Worker) HandlePromotePostTask(ctx context.Context, task *asynq.Task) error {
	var payload PromotePostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	promoted, err := w.pr.PromoteDue(ctx, payload.PostID, schedule.Now())
	if err != nil {
		return err
	}

	if promoted {
		slog.Info("post promoted to ready", "post_id", payload.PostID)
	} else {
		slog.Info("promotion task was a no-op", "post_id", payload.PostID)
	}
	return nil
}
