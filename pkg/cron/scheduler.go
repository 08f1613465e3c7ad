// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/khoroch-app/khoroch/internal/domain/clarify"
	"github.com/khoroch-app/khoroch/internal/domain/contamination"
)

// Scheduler runs the periodic TTL sweeps: abandoned clarification dialogues
// and stale contamination fingerprints. Both stores also purge lazily on
// lookup; the sweeps cover users who never come back.
type Scheduler struct {
	cron           *cron.Cron
	clarifications *clarify.Store
	contamination  *contamination.Monitor
	logger         *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(clarifications *clarify.Store, contam *contamination.Monitor, logger *slog.Logger) *Scheduler {
	// Standard 5-field format, seconds disabled.
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:           c,
		clarifications: clarifications,
		contamination:  contam,
		logger:         logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// TTL sweeps every minute.
	if _, err := s.cron.AddFunc("* * * * *", s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the sweep (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.sweep()
}

func (s *Scheduler) sweep() {
	expired := s.clarifications.SweepExpired()
	fingerprints := s.contamination.SweepExpired()

	if expired > 0 || fingerprints > 0 {
		s.logger.Info("ttl sweep completed",
			slog.Int("clarifications_expired", expired),
			slog.Int("fingerprints_purged", fingerprints),
		)
	}
}
