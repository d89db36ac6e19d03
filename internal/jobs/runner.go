package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BruksfildServices01/service-marketplace/internal/config"
	"github.com/BruksfildServices01/service-marketplace/internal/timezone"
)

type Runner interface {
	Run(ctx context.Context) error
}

// NewRunner escolhe o driver pelo JOBS_DRIVER (ticker | asynq).
func NewRunner(cfg config.JobsConfig, s *Sweeper, log *zap.Logger) (Runner, error) {
	switch cfg.Driver {
	case "", "ticker":
		return NewTickerRunner(s, cfg.ReconcileInterval, cfg.SweepInterval, log), nil
	case "asynq":
		return NewAsynqRunner(cfg.RedisURL, s, cfg.ReconcileInterval, cfg.SweepInterval, log)
	}
	return nil, fmt.Errorf("unknown jobs driver %q", cfg.Driver)
}

// ======================================================
// TICKER
// ======================================================

type TickerRunner struct {
	sweeper        *Sweeper
	reconcileEvery time.Duration
	sweepEvery     time.Duration
	log            *zap.Logger
}

func NewTickerRunner(s *Sweeper, reconcileEvery, sweepEvery time.Duration, log *zap.Logger) *TickerRunner {
	if log == nil {
		log = zap.NewNop()
	}
	return &TickerRunner{
		sweeper:        s,
		reconcileEvery: reconcileEvery,
		sweepEvery:     sweepEvery,
		log:            log,
	}
}

func (r *TickerRunner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.every(ctx, TaskReconcile, r.reconcileEvery, func(ctx context.Context) error {
			_, err := r.sweeper.RunReconcile(ctx)
			return err
		})
	})
	g.Go(func() error {
		return r.every(ctx, TaskSweep, r.sweepEvery, func(ctx context.Context) error {
			_, err := r.sweeper.RunSweep(ctx)
			return err
		})
	})

	return g.Wait()
}

// every roda fn a cada intervalo; erro de uma rodada não para o loop.
func (r *TickerRunner) every(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) error {
	if interval <= 0 {
		r.log.Warn("job disabled", zap.String("job", name))
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := fn(ctx); err != nil && !errors.Is(err, ErrLocked) && ctx.Err() == nil {
				r.log.Error("job failed", zap.String("job", name), zap.Error(err))
			}
		}
	}
}

// ======================================================
// ASYNQ
// ======================================================

const maintenanceQueue = "maintenance"

// AsynqRunner agenda os jobs com o Scheduler do asynq e executa no Server,
// então qualquer réplica pode pegar a task.
type AsynqRunner struct {
	scheduler *asynq.Scheduler
	server    *asynq.Server
	mux       *asynq.ServeMux
	log       *zap.Logger
}

func NewAsynqRunner(
	redisURL string,
	s *Sweeper,
	reconcileEvery time.Duration,
	sweepEvery time.Duration,
	log *zap.Logger,
) (*AsynqRunner, error) {

	if redisURL == "" {
		return nil, errors.New("asynq driver requires REDIS_URL")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: timezone.Current(),
	})

	for task, every := range map[string]time.Duration{
		TaskReconcile: reconcileEvery,
		TaskSweep:     sweepEvery,
	} {
		if every <= 0 {
			continue
		}
		if _, err := scheduler.Register(
			fmt.Sprintf("@every %s", every),
			asynq.NewTask(task, nil),
			asynq.Queue(maintenanceQueue),
			asynq.MaxRetry(0),
		); err != nil {
			return nil, fmt.Errorf("register %s: %w", task, err)
		}
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{maintenanceQueue: 1},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskReconcile, func(ctx context.Context, _ *asynq.Task) error {
		_, err := s.RunReconcile(ctx)
		return ignoreLocked(err)
	})
	mux.HandleFunc(TaskSweep, func(ctx context.Context, _ *asynq.Task) error {
		_, err := s.RunSweep(ctx)
		return ignoreLocked(err)
	})

	return &AsynqRunner{
		scheduler: scheduler,
		server:    server,
		mux:       mux,
		log:       log,
	}, nil
}

func (r *AsynqRunner) Run(ctx context.Context) error {
	if err := r.scheduler.Start(); err != nil {
		return fmt.Errorf("asynq scheduler: %w", err)
	}
	if err := r.server.Start(r.mux); err != nil {
		r.scheduler.Shutdown()
		return fmt.Errorf("asynq server: %w", err)
	}
	r.log.Info("asynq jobs runner started")

	<-ctx.Done()

	r.server.Shutdown()
	r.scheduler.Shutdown()
	return nil
}

func ignoreLocked(err error) error {
	if errors.Is(err, ErrLocked) {
		return nil
	}
	return err
}
