// Package worker holds the background jobs of the reconciler.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cassiomorais/gateway-reconciler/internal/application/reconcile"
	apperrors "github.com/cassiomorais/gateway-reconciler/internal/domain/errors"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/reconciliation"
	"github.com/cassiomorais/gateway-reconciler/internal/infrastructure/observability"
)

// Locker guards the sweep so only one instance runs it at a time.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Checkpoints persists the sweep's high-water mark between runs.
type Checkpoints interface {
	Get(ctx context.Context) (time.Time, error)
	Set(ctx context.Context, ts time.Time) error
}

// Config tunes one Sweeper.
type Config struct {
	Interval  time.Duration
	BatchSize int
	// Lookback bounds how far back the first sweep reaches when no
	// checkpoint exists yet.
	Lookback time.Duration
}

// Sweeper periodically replays journaled notifications that arrived before
// their ledger counterpart existed. Out-of-order gateway events resolve on
// replay once the missing state has been stored; each replay appends a fresh
// journal entry, so an event that stays unresolved is carried forward to the
// next sweep.
type Sweeper struct {
	store       reconciliation.Store
	processor   reconcile.Processor
	lock        Locker
	checkpoints Checkpoints
	cfg         Config
	metrics     *observability.Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

func NewSweeper(
	store reconciliation.Store,
	processor reconcile.Processor,
	lock Locker,
	checkpoints Checkpoints,
	cfg Config,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 24 * time.Hour
	}
	return &Sweeper{
		store:       store,
		processor:   processor,
		lock:        lock,
		checkpoints: checkpoints,
		cfg:         cfg,
		metrics:     metrics,
		logger:      logger.With().Str("component", "sweeper").Logger(),
		now:         time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := s.Sweep(ctx); err != nil {
			s.logger.Error().Err(err).Msg("sweep failed")
			s.metrics.SweepRuns.WithLabelValues("error").Inc()
		}
	}
}

// Sweep runs one pass: take the lock, replay unresolved journal entries since
// the checkpoint, advance the checkpoint past what was replayed.
func (s *Sweeper) Sweep(ctx context.Context) error {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		s.logger.Debug().Msg("sweep lock held elsewhere, skipping run")
		s.metrics.SweepRuns.WithLabelValues("skipped").Inc()
		return nil
	}
	defer s.lock.Release(ctx)

	start := s.now()
	defer func() {
		s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	after, err := s.checkpoints.Get(ctx)
	if err != nil {
		return err
	}
	if floor := start.Add(-s.cfg.Lookback); after.Before(floor) {
		after = floor
	}

	entries, err := s.store.ListUnresolvedJournal(ctx, after, s.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		s.metrics.SweepRuns.WithLabelValues("empty").Inc()
		return nil
	}

	var replayed int
	checkpoint := after
	for _, entry := range entries {
		outcome, err := s.processor.ProcessNotification(ctx, entry.Event)
		if err != nil {
			if apperrors.IsFatal(err) {
				// Redelivery cannot repair a fatal entry. Move the checkpoint
				// past it so it stops starving later orphans.
				s.metrics.UnresolvedReplayed.WithLabelValues("fatal").Inc()
				s.logger.Error().Err(err).
					Str("event_code", entry.Event.EventCode).
					Str("psp_reference", entry.Event.PSPReference).
					Msg("skipping orphan that fails fatally on replay")
				checkpoint = entry.RecordedAt
				continue
			}
			// A retryable failure here means infrastructure trouble; stop
			// the pass and leave the checkpoint before this entry so the
			// next sweep picks it up again.
			s.metrics.UnresolvedReplayed.WithLabelValues("error").Inc()
			if cpErr := s.checkpoints.Set(ctx, checkpoint); cpErr != nil {
				s.logger.Error().Err(cpErr).Msg("failed to store checkpoint")
			}
			return err
		}

		if outcome.Action == reconciliation.ActionJournaledOnly {
			s.metrics.UnresolvedReplayed.WithLabelValues("still_unresolved").Inc()
		} else {
			s.metrics.UnresolvedReplayed.WithLabelValues("resolved").Inc()
			s.logger.Info().
				Str("event_code", entry.Event.EventCode).
				Str("psp_reference", entry.Event.PSPReference).
				Str("action", string(outcome.Action)).
				Msg("replayed orphan notification")
		}

		checkpoint = entry.RecordedAt
		replayed++
	}

	if err := s.checkpoints.Set(ctx, checkpoint); err != nil {
		return err
	}

	s.logger.Info().Int("replayed", replayed).Time("checkpoint", checkpoint).Msg("sweep complete")
	s.metrics.SweepRuns.WithLabelValues("success").Inc()
	return nil
}
