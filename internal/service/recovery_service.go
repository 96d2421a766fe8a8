package service

import (
	"context"
	"errors"
	"log/slog"

	job "postpilot/internal/jobs"
	"postpilot/internal/processor"
	"postpilot/internal/repository"
	"postpilot/internal/schedule"
)

// RecoveryService backs the manual operator endpoints. Each operation
// reuses the exact code path the automatic pipeline runs, so a manual
// nudge can never behave differently from the scheduled one.
type RecoveryService interface {
	// RunMarker triggers one cron marker pass out of band and returns the
	// promoted post ids.
	RunMarker(ctx context.Context) ([]int64, error)
	// ForceReady promotes every currently due post, with no batch cap.
	ForceReady(ctx context.Context) ([]int64, error)
	// ForceDeliver claims and delivers one ready post immediately.
	ForceDeliver(ctx context.Context, postID int64) error

	StartProcessor(ctx context.Context) error
	StopProcessor()
	ProcessorRunning() bool
}

type recoveryService struct {
	pr     repository.PostRepository
	marker *job.DueMarkerJob
	proc   *processor.Processor
}

func NewRecoveryService(pr repository.PostRepository, marker *job.DueMarkerJob, proc *processor.Processor) RecoveryService {
	return &recoveryService{
		pr:     pr,
		marker: marker,
		proc:   proc,
	}
}

func (s *recoveryService) RunMarker(ctx context.Context) ([]int64, error) {
	ids, err := s.marker.RunOnce(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("manual marker pass", "promoted", len(ids))
	return ids, nil
}

func (s *recoveryService) ForceReady(ctx context.Context) ([]int64, error) {
	ids, err := s.pr.MarkDueReady(ctx, schedule.Now(), 0)
	if err != nil {
		return nil, err
	}

	slog.Info("force-ready pass", "promoted", len(ids))
	return ids, nil
}

func (s *recoveryService) ForceDeliver(ctx context.Context, postID int64) error {
	if postID == 0 {
		err := errors.New("post_id is not valid")
		slog.Info(err.Error())
		return err
	}

	return s.proc.DeliverOne(ctx, postID)
}

func (s *recoveryService) StartProcessor(ctx context.Context) error {
	return s.proc.Start(ctx)
}

func (s *recoveryService) StopProcessor() {
	s.proc.Stop()
}

func (s *recoveryService) ProcessorRunning() bool {
	return s.proc.IsRunning()
}
