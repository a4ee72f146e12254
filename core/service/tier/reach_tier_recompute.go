package tier

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"reach_server/core/domain"
	"reach_server/core/port/in"
	"reach_server/pkg/metrics"

	"github.com/go-pkgz/pool"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Recomputer reclassifies every creator from stored snapshots. Creators are
// independent, so they are processed in parallel on a worker pool.
type Recomputer struct {
	svc     *Service
	workers int
	log     zerolog.Logger
	running atomic.Bool
}

func NewRecomputer(svc *Service, workers int, log zerolog.Logger) *Recomputer {
	if workers < 1 {
		workers = 1
	}
	return &Recomputer{
		svc:     svc,
		workers: workers,
		log:     log.With().Str("component", "tier_recompute").Logger(),
	}
}

var _ in.TierRecomputer = (*Recomputer)(nil)

// ErrRecomputeRunning is returned when a run is already in progress.
var ErrRecomputeRunning = errors.New("tier recomputation already running")

type creatorJob struct {
	creatorID uuid.UUID
	accounts  []*domain.CreatorSocialAccount
}

// recomputeWorker implements pool.Worker for creatorJob.
type recomputeWorker struct {
	r       *Recomputer
	changed atomic.Int64
	failed  atomic.Int64
}

func (w *recomputeWorker) Do(ctx context.Context, job creatorJob) error {
	if err := w.r.recomputeOne(ctx, job, &w.changed); err != nil {
		w.failed.Add(1)
		metrics.TierRecomputed("failed")
		w.r.log.Warn().Err(err).Str("creator_id", job.creatorID.String()).Msg("tier recompute failed")
		return err
	}
	return nil
}

// RecomputeAll runs one batch over all creators with stored snapshots.
// Individual failures are counted, not returned.
func (r *Recomputer) RecomputeAll(ctx context.Context) (*in.RecomputeSummary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRecomputeRunning
	}
	defer r.running.Store(false)

	start := time.Now()
	all, err := r.svc.repo.ListAllSocialAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list social accounts: %w", err)
	}

	worker := &recomputeWorker{r: r}
	p := pool.New[creatorJob](r.workers, worker).
		WithBatchSize(10).
		WithWorkerChanSize(r.workers * 2).
		WithContinueOnError()
	if err := p.Go(ctx); err != nil {
		return nil, fmt.Errorf("start recompute pool: %w", err)
	}

	for creatorID, accounts := range all {
		p.Submit(creatorJob{creatorID: creatorID, accounts: accounts})
	}
	// per-creator errors are already counted by the worker
	_ = p.Close(ctx)

	summary := &in.RecomputeSummary{
		Creators: len(all),
		Changed:  int(worker.changed.Load()),
		Failed:   int(worker.failed.Load()),
	}
	r.log.Info().
		Int("creators", summary.Creators).
		Int("changed", summary.Changed).
		Int("failed", summary.Failed).
		Dur("took", time.Since(start)).
		Msg("tier recompute finished")

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (r *Recomputer) recomputeOne(ctx context.Context, job creatorJob, changed *atomic.Int64) error {
	var previous *domain.CreatorTier
	err := r.svc.withRetry(ctx, func() error {
		var err error
		previous, err = r.svc.repo.GetTier(ctx, job.creatorID)
		return err
	})
	if err != nil {
		return fmt.Errorf("load tier: %w", err)
	}

	_, didChange, err := r.svc.reclassify(ctx, job.creatorID, job.accounts, previous)
	if err != nil {
		return err
	}
	if didChange {
		changed.Add(1)
		metrics.TierRecomputed("changed")
	} else {
		metrics.TierRecomputed("unchanged")
	}
	return nil
}
