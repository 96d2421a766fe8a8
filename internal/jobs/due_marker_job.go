package job

import (
	"context"
	"log/slog"
	"time"

	"postpilot/internal/repository"
	"postpilot/internal/schedule"
)

// DueMarkerJob is the periodic pass that promotes due posts from
// scheduled to ready_for_posting. The external scheduler calls Run every
// minute; the manual force-cron tool calls RunOnce directly.
type DueMarkerJob struct {
	pr        repository.PostRepository
	batchSize int
}

func NewDueMarkerJob(pr repository.PostRepository) *DueMarkerJob {
	return &DueMarkerJob{pr: pr, batchSize: 10}
}

func (j *DueMarkerJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := j.RunOnce(ctx); err != nil {
		slog.Error("due marker pass failed", "error", err)
	}
}

// RunOnce promotes one bounded batch of due posts, oldest due first, and
// returns the promoted ids. Running it twice on the same set is safe: the
// second pass's predicate no longer matches the promoted rows.
func (j *DueMarkerJob) RunOnce(ctx context.Context) ([]int64, error) {
	ids, err := j.pr.MarkDueReady(ctx, schedule.Now(), j.batchSize)
	if err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		slog.Info("promoted due posts", "count", len(ids))
	}
	return ids, nil
}
