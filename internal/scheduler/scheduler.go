package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/linguapath/learnmap/internal/logger"
	"github.com/linguapath/learnmap/internal/services"
)

// Scheduler runs the periodic maintenance jobs of the engine.
type Scheduler struct {
	scheduler *gocron.Scheduler
	hearts    services.HeartsService
	interval  time.Duration
	log       *logger.Logger
}

// New creates a scheduler that refills hearts every interval.
func New(hearts services.HeartsService, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		hearts:    hearts,
		interval:  interval,
		log:       logger.Default().WithPrefix("scheduler"),
	}
}

// Start registers the jobs and runs them in the background. The first run
// happens immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("hearts refill interval must be positive, got %s", s.interval)
	}
	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.refillHearts, ctx)
	if err != nil {
		s.log.Error("failed to schedule hearts refill: %v", err)
		return err
	}
	s.log.Info("hearts refill scheduled every %s", s.interval)
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) refillHearts(ctx context.Context) {
	ctx = logger.NewContext(ctx, s.log)
	start := time.Now()
	n, err := s.hearts.RefillHearts(ctx)
	if err != nil {
		s.log.Error("hearts refill failed after %v: %v", time.Since(start), err)
		return
	}
	s.log.Debug("hearts refill touched %d documents in %v", n, time.Since(start))
}
