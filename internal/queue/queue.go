package queue

import (
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

const TaskTypePromotePost = "post:promote"

type PromotePostPayload struct {
	PostID int64 `json:"post_id"`
}

// EnqueuePromotion schedules a one-shot promotion task to fire at the
// post's scheduled instant. The cron marker remains the safety net; this
// just avoids waiting out the next tick.
func EnqueuePromotion(asynqClient *asynq.Client, payload PromotePostPayload, delay time.Duration) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePromotePost, taskPayload)

	if _, err := asynqClient.Enqueue(task, asynq.ProcessIn(delay)); err != nil {
		return err
	}

	log.Printf("Promotion task scheduled: %+v", payload)
	return nil
}
