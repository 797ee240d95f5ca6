package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"matching-engine/internal/common/logger"
	"matching-engine/internal/common/metrics"
)

// CycleRunner is satisfied by *Engine.
type CycleRunner interface {
	RunCycle(ctx context.Context) (Report, error)
}

// Scheduler triggers the engine on a fixed interval. The first cycle runs
// immediately on start; a tick that fires while a cycle is still in flight is
// skipped, never queued, so cycles cannot overlap.
type Scheduler struct {
	cron   *cron.Cron
	runner CycleRunner
	logger logger.Logger
	spec   string

	running sync.Mutex // held for the duration of one cycle
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler that fires every intervalMinutes minutes.
func NewScheduler(runner CycleRunner, intervalMinutes int, log logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		logger: log.WithFields(map[string]interface{}{"component": "scheduler"}),
		spec:   fmt.Sprintf("@every %dm", intervalMinutes),
	}
}

// Start registers the interval trigger and kicks off the first cycle
// immediately rather than after the first interval elapses.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", map[string]interface{}{
		"spec": s.spec,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.tick(ctx)
	}()

	return nil
}

// Stop schedules no further cycles and blocks until any in-flight cycle has
// finished.
func (s *Scheduler) Stop() {
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped", nil)
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.TryLock() {
		s.logger.Warn("previous cycle still running, skipping trigger", nil)
		metrics.CyclesTotal.WithLabelValues("skipped").Inc()
		return
	}
	defer s.running.Unlock()

	if ctx.Err() != nil {
		return
	}

	if _, err := s.runner.RunCycle(ctx); err != nil {
		// Fatal cycle errors are retried on the next scheduled trigger,
		// not immediately.
		s.logger.WithError(err).Error("matching cycle failed", nil)
	}
}
