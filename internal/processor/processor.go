// Package processor owns the delivery poll loop: it claims
// ready_for_posting posts, performs the platform delivery call and writes
// the terminal status back. One constructed Processor owns its whole
// lifecycle; nothing here is package-level state.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"postpilot/internal/models"
	"postpilot/internal/publisher"
	"postpilot/internal/schedule"
)

type PostStore interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListReady(ctx context.Context, limit int) ([]*models.Post, error)
	Claim(ctx context.Context, postID int64, now time.Time) error
	ReleaseClaim(ctx context.Context, postID int64, now time.Time) error
	MarkPublished(ctx context.Context, postID int64, platform, remoteID string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, postID int64, errorMessage string, now time.Time) error
}

type AccountStore interface {
	GetByUserAndPlatform(ctx context.Context, userID int64, platform string) (*models.SocialAccount, error)
}

type HistoryStore interface {
	Create(ctx context.Context, da *models.DeliveryAttempt) (int64, error)
}

type Config struct {
	PollInterval    time.Duration
	BatchSize       int
	Pacing          time.Duration // gap between delivery calls within one batch
	DeliveryTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval:    30 * time.Second,
		BatchSize:       10,
		Pacing:          2 * time.Second,
		DeliveryTimeout: 30 * time.Second,
	}
}

// Stats summarizes one poll cycle.
type Stats struct {
	Processed int
	Published int
	Failed    int
	Skipped   int
}

type Processor struct {
	posts      PostStore
	accounts   AccountStore
	history    HistoryStore
	publishers map[string]publisher.Publisher
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(
	posts PostStore,
	accounts AccountStore,
	history HistoryStore,
	publishers map[string]publisher.Publisher,
	cfg Config,
	logger *slog.Logger) *Processor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = DefaultConfig().DeliveryTimeout
	}
	return &Processor{
		posts:      posts,
		accounts:   accounts,
		history:    history,
		publishers: publishers,
		cfg:        cfg,
		logger:     logger,
		now:        schedule.Now,
	}
}

// Start launches the poll loop. Starting an already-running processor is
// an error, not a second loop.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errors.New("processor already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go p.loop(loopCtx)

	p.logger.Info("delivery processor started", "interval", p.cfg.PollInterval, "batch_size", p.cfg.BatchSize)
	return nil
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.logger.Info("delivery processor stopped")
}

func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	p.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runCycle(ctx)
		}
	}
}

func (p *Processor) runCycle(ctx context.Context) {
	stats, err := p.RunOnce(ctx)
	if err != nil {
		p.logger.Error("poll cycle failed", "error", err)
		return
	}
	if stats.Processed > 0 {
		p.logger.Info("poll cycle finished",
			"processed", stats.Processed,
			"published", stats.Published,
			"failed", stats.Failed,
			"skipped", stats.Skipped,
		)
	}
}

// RunOnce performs a single poll cycle: fetch the oldest ready posts and
// deliver them sequentially. One post's failure never aborts the rest;
// each outcome is persisted before the next post starts.
func (p *Processor) RunOnce(ctx context.Context) (Stats, error) {
	var stats Stats

	posts, err := p.posts.ListReady(ctx, p.cfg.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("list ready posts: %w", err)
	}

	for i, post := range posts {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		stats.Processed++
		switch outcome := p.processOne(ctx, post); outcome {
		case outcomePublished:
			stats.Published++
		case outcomeFailed:
			stats.Failed++
		case outcomeSkipped:
			stats.Skipped++
		}

		if p.cfg.Pacing > 0 && i < len(posts)-1 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(p.cfg.Pacing):
			}
		}
	}

	return stats, nil
}

type outcome int

const (
	outcomePublished outcome = iota
	outcomeFailed
	outcomeSkipped
)

func (p *Processor) processOne(ctx context.Context, post *models.Post) outcome {
	if err := p.posts.Claim(ctx, post.ID, p.now()); err != nil {
		if errors.Is(err, models.ErrClaimConflict) {
			// Another processor instance won the row. Not a failure.
			p.logger.Info("post already claimed", "post_id", post.ID)
			return outcomeSkipped
		}
		// Store error: leave the row as-is for the next cycle.
		p.logger.Error("claim failed", "post_id", post.ID, "error", err)
		return outcomeSkipped
	}

	if err := p.deliver(ctx, post); err != nil {
		return outcomeFailed
	}
	return outcomePublished
}

// deliver performs the platform call for an already-claimed post and
// persists the terminal state. The returned error reports the delivery
// outcome to the caller; it has already been written to the post row.
func (p *Processor) deliver(ctx context.Context, post *models.Post) error {
	pub, ok := p.publishers[post.Platform]
	if !ok {
		derr := &models.DeliveryError{Platform: post.Platform, Reason: "unsupported platform"}
		p.persistFailure(ctx, post, derr)
		return derr
	}

	acc, err := p.accounts.GetByUserAndPlatform(ctx, post.UserID, post.Platform)
	if err != nil {
		// Store error before the external call: release the claim so the
		// next cycle retries instead of stranding the row in processing.
		p.logger.Error("account lookup failed", "post_id", post.ID, "error", err)
		if relErr := p.posts.ReleaseClaim(ctx, post.ID, p.now()); relErr != nil {
			p.logger.Error("release claim failed", "post_id", post.ID, "error", relErr)
		}
		return err
	}
	if acc == nil {
		derr := &models.DeliveryError{Platform: post.Platform, Reason: fmt.Sprintf("no connected %s account", post.Platform)}
		p.persistFailure(ctx, post, derr)
		return derr
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.DeliveryTimeout)
	defer cancel()

	result, err := pub.Publish(callCtx, publisher.Request{
		Content:  post.Content,
		Title:    post.Title,
		ImageURL: post.ImageURL,
	}, acc)
	if err != nil {
		var derr *models.DeliveryError
		if !errors.As(err, &derr) {
			derr = &models.DeliveryError{Platform: post.Platform, Reason: err.Error(), Retryable: true}
		}
		p.persistFailure(ctx, post, derr)
		return derr
	}

	publishedAt := p.now()
	if err := p.posts.MarkPublished(ctx, post.ID, post.Platform, result.RemoteID, publishedAt); err != nil {
		// The external post exists; never release the claim here or the
		// next cycle would deliver it twice.
		p.logger.Error("mark published failed", "post_id", post.ID, "error", err)
	}
	p.recordAttempt(ctx, post, result.RemoteID, "")

	p.logger.Info("post published", "post_id", post.ID, "platform", post.Platform, "remote_id", result.RemoteID)
	return nil
}

func (p *Processor) persistFailure(ctx context.Context, post *models.Post, derr *models.DeliveryError) {
	if err := p.posts.MarkFailed(ctx, post.ID, derr.Reason, p.now()); err != nil {
		p.logger.Error("mark failed failed", "post_id", post.ID, "error", err)
	}
	p.recordAttempt(ctx, post, "", derr.Reason)
	p.logger.Info("post delivery failed", "post_id", post.ID, "platform", post.Platform, "reason", derr.Reason, "retryable", derr.Retryable)
}

func (p *Processor) recordAttempt(ctx context.Context, post *models.Post, remoteID, errorMessage string) {
	if p.history == nil {
		return
	}
	_, err := p.history.Create(ctx, &models.DeliveryAttempt{
		UserID:       post.UserID,
		PostID:       post.ID,
		Platform:     post.Platform,
		RemotePostID: remoteID,
		ErrorMessage: errorMessage,
	})
	if err != nil {
		p.logger.Error("record delivery attempt failed", "post_id", post.ID, "error", err)
	}
}

// DeliverOne is the manual force-deliver path: claim and deliver a single
// ready post on demand, through the same code the poll loop uses. Errors
// surface to the operator instead of only landing on the row.
func (p *Processor) DeliverOne(ctx context.Context, postID int64) error {
	post, err := p.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return fmt.Errorf("post %d not found", postID)
	}
	if post.Status != models.PostStatusReady {
		return fmt.Errorf("post %d is %s, not %s", postID, post.Status, models.PostStatusReady)
	}

	if err := p.posts.Claim(ctx, post.ID, p.now()); err != nil {
		return err
	}
	return p.deliver(ctx, post)
}
