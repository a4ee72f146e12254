package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reach_server/core/port/in"
	"reach_server/core/service/tier"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// =============================================================================
// TierRecomputeScheduler - periodic batch reclassification
// =============================================================================

// DefaultRunTimeout bounds one scheduled run.
const DefaultRunTimeout = 30 * time.Minute

type TierRecomputeScheduler struct {
	recomputer in.TierRecomputer
	cron       *cron.Cron
	schedule   string
	timeout    time.Duration
	log        zerolog.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewTierRecomputeScheduler validates schedule (standard 5-field cron or a
// descriptor such as "@every 6h") and registers the job.
func NewTierRecomputeScheduler(recomputer in.TierRecomputer, schedule string, log zerolog.Logger) (*TierRecomputeScheduler, error) {
	log = log.With().Str("component", "tier_scheduler").Logger()
	cl := cronLogger{log: log}

	ctx, cancel := context.WithCancel(context.Background())
	s := &TierRecomputeScheduler{
		recomputer: recomputer,
		cron:       cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		schedule:   schedule,
		timeout:    DefaultRunTimeout,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid tier recompute schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start starts the scheduler.
func (s *TierRecomputeScheduler) Start() {
	s.log.Info().Str("schedule", s.schedule).Msg("tier recompute scheduler started")
	s.cron.Start()
}

// Stop cancels an in-flight run and waits for it to return.
func (s *TierRecomputeScheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("tier recompute scheduler stopped")
}

// SetTimeout sets the per-run timeout (for testing).
func (s *TierRecomputeScheduler) SetTimeout(d time.Duration) {
	s.timeout = d
}

func (s *TierRecomputeScheduler) run() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	_ = s.RunOnce(ctx)
}

// RunOnce performs one recomputation. A run already in progress, e.g. one
// triggered over HTTP, is skipped rather than reported as a failure.
func (s *TierRecomputeScheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	summary, err := s.recomputer.RecomputeAll(ctx)
	switch {
	case errors.Is(err, tier.ErrRecomputeRunning):
		s.log.Info().Msg("tier recompute already running, skipping")
		return nil
	case err != nil:
		s.log.Error().Err(err).Msg("tier recompute failed")
		return err
	}

	s.log.Info().
		Int("creators", summary.Creators).
		Int("changed", summary.Changed).
		Int("failed", summary.Failed).
		Dur("duration", time.Since(start)).
		Msg("tier recompute finished")
	return nil
}

// cronLogger routes cron's internal logging through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
