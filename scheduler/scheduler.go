package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"marketglimpse_backend/services/alerts"
)

// Scheduler manages the background alert evaluation job.
type Scheduler struct {
	cron     *gocron.Scheduler
	engine   *alerts.Engine
	interval time.Duration
	logger   zerolog.Logger
}

// NewScheduler creates a scheduler that evaluates alerts every interval.
func NewScheduler(engine *alerts.Engine, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		cron:     gocron.NewScheduler(time.UTC),
		engine:   engine,
		interval: interval,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers and starts all scheduled jobs. SingletonMode keeps a slow
// pass from overlapping the next tick of the same job.
func (s *Scheduler) Start() {
	s.logger.Info().Dur("interval", s.interval).Msg("starting scheduler")

	_, err := s.cron.Every(s.interval).SingletonMode().Do(s.checkPriceAlerts)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to schedule alert check")
		return
	}

	s.cron.StartAsync()
	s.logger.Info().Msg("scheduler started")
}

// Stop stops the scheduler, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("scheduler stopped")
}

// checkPriceAlerts runs one evaluation pass. Alerts left pending by a failed
// or interrupted pass are picked up on the next tick.
func (s *Scheduler) checkPriceAlerts() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if _, err := s.engine.Run(ctx); err != nil {
		s.logger.Error().Err(err).Msg("alert check run failed")
	}
}
