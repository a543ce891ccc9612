// Package scheduler runs the full pipeline on a fixed interval, for setups
// without an external cron trigger.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/avolosh/datapulse/internal/pipeline"
)

const runTimeout = 5 * time.Minute

// Scheduler periodically executes the full pipeline.
type Scheduler struct {
	scheduler *gocron.Scheduler
	pipe      *pipeline.Pipeline
	interval  time.Duration
	log       *zerolog.Logger
}

// New creates a new Scheduler.
func New(pipe *pipeline.Pipeline, interval time.Duration, log *zerolog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		pipe:      pipe,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.log.Info().Dur("interval", s.interval).Msg("scheduled pipeline run starting")

		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		if err := s.pipe.Run(ctx); err != nil {
			s.log.Error().Err(err).Msg("scheduled pipeline run failed")
			return
		}
		s.log.Info().Msg("scheduled pipeline run complete")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
