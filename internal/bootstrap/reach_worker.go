package bootstrap

import (
	"context"
	"sync"

	"reach_server/adapter/in/worker"
	"reach_server/config"
	"reach_server/pkg/logger"
)

// Worker runs the scheduled tier recomputation.
type Worker struct {
	scheduler *worker.TierRecomputeScheduler
	ctx       context.Context
	cancel    context.CancelFunc
	stopOnce  sync.Once
}

func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}
	w, err := NewWorkerWithDeps(deps)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return w, cleanup, nil
}

func NewWorkerWithDeps(deps *Dependencies) (*Worker, error) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{ctx: ctx, cancel: cancel}

	if !deps.Config.SchedulerEnabled {
		logger.Info("Scheduler disabled (SCHEDULER_ENABLED=false)")
		return w, nil
	}

	zlog := logger.Default().Zerolog().With().Str("worker_id", deps.Config.WorkerID).Logger()
	scheduler, err := worker.NewTierRecomputeScheduler(deps.Recomputer, deps.Config.TierRecomputeSchedule, zlog)
	if err != nil {
		cancel()
		return nil, err
	}
	w.scheduler = scheduler
	return w, nil
}

// Start runs the scheduler and blocks until Stop is called.
func (w *Worker) Start() {
	if w.scheduler != nil {
		w.scheduler.Start()
	}
	<-w.ctx.Done()
}

// Stop stops the scheduler, waiting for an in-flight run to return.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		if w.scheduler != nil {
			w.scheduler.Stop()
		}
		w.cancel()
		logger.Info("Worker stopped")
	})
}
