// Package jobs roda a reconciliação de conversas e o sweep de garantias
// periodicamente, com lock para que só uma réplica execute cada job.
package jobs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BruksfildServices01/service-marketplace/internal/usecase/appointment"
	"github.com/BruksfildServices01/service-marketplace/internal/usecase/conversation"
)

const (
	TaskReconcile = "conversations:reconcile"
	TaskSweep     = "warranties:sweep"
)

type Reconciler interface {
	Execute(ctx context.Context) (conversation.ReconcileResult, error)
}

type WarrantySweeper interface {
	Execute(ctx context.Context) (appointment.SweepResult, error)
}

type Sweeper struct {
	reconcile Reconciler
	sweep     WarrantySweeper
	locker    Locker
	lockTTL   time.Duration
	log       *zap.Logger
}

func NewSweeper(
	reconcile Reconciler,
	sweep WarrantySweeper,
	locker Locker,
	lockTTL time.Duration,
	log *zap.Logger,
) *Sweeper {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		reconcile: reconcile,
		sweep:     sweep,
		locker:    locker,
		lockTTL:   lockTTL,
		log:       log,
	}
}

func (s *Sweeper) RunReconcile(ctx context.Context) (conversation.ReconcileResult, error) {
	var res conversation.ReconcileResult
	err := s.locked(ctx, TaskReconcile, func(ctx context.Context) error {
		var err error
		res, err = s.reconcile.Execute(ctx)
		s.log.Info("reconcile finished",
			zap.Int("scanned", res.Scanned),
			zap.Int("reopened", res.Reopened),
			zap.Int("closed", res.Closed),
			zap.Int("auto_completed", res.AutoCompleted),
			zap.Int("failed", res.Failed),
			zap.Error(err),
		)
		return err
	})
	return res, err
}

func (s *Sweeper) RunSweep(ctx context.Context) (appointment.SweepResult, error) {
	var res appointment.SweepResult
	err := s.locked(ctx, TaskSweep, func(ctx context.Context) error {
		var err error
		res, err = s.sweep.Execute(ctx)
		s.log.Info("warranty sweep finished",
			zap.Int("completed", res.Completed),
			zap.Int64("backjobs_cancelled", res.BackjobsCancelled),
			zap.Int("failed", res.Failed),
			zap.Error(err),
		)
		return err
	})
	return res, err
}

func (s *Sweeper) locked(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	unlock, err := s.locker.TryLock(ctx, name, s.lockTTL)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			s.log.Info("job skipped, lock held elsewhere", zap.String("job", name))
		}
		return err
	}
	defer func() {
		// ctx pode já estar cancelado no shutdown
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("job unlock failed", zap.String("job", name), zap.Error(err))
		}
	}()

	return fn(ctx)
}
