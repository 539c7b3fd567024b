// Package sweeper deletes reviewed reports whose retention window has
// elapsed. It runs on a fixed schedule, shares no in-process state with
// request handling, and coordinates only through the store.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sonnyywithanyextray/CheckMate/internal/metrics"
)

// Deleter is the single repository operation the sweep needs.
type Deleter interface {
	DeleteEligible(ctx context.Context, now time.Time) (int, error)
}

// Sweeper runs the recurring retention sweep.
type Sweeper struct {
	reports Deleter
	now     func() time.Time
}

// New creates a sweeper over the given report repository.
func New(reports Deleter) *Sweeper {
	return &Sweeper{
		reports: reports,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce performs a single sweep. The deletion is one atomic batch, so
// a failed run leaves every candidate in place; the next scheduled run
// retries them naturally. Re-running with no new candidates is a no-op.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	now := s.now()
	deleted, err := s.reports.DeleteEligible(ctx, now)
	if err != nil {
		metrics.RecordSweep("error", 0)
		log.Error().Err(err).Msg("Retention sweep failed; next run will retry")
		return 0, err
	}
	if deleted == 0 {
		metrics.RecordSweep("noop", 0)
		log.Info().Msg("No reports eligible for deletion")
		return 0, nil
	}
	metrics.RecordSweep("deleted", deleted)
	log.Info().Int("deleted", deleted).Msg("Retention sweep completed")
	return deleted, nil
}

// Run sweeps immediately and then on every tick until the context is
// cancelled. Errors end the run, never the loop.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("Retention sweeper started")
	for {
		s.RunOnce(ctx)
		select {
		case <-ctx.Done():
			log.Info().Msg("Retention sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}
