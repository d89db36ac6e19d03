package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/BruksfildServices01/service-marketplace/internal/config"
	"github.com/BruksfildServices01/service-marketplace/internal/usecase/appointment"
	"github.com/BruksfildServices01/service-marketplace/internal/usecase/conversation"
)

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client), mr
}

func TestRedisLockerIsExclusive(t *testing.T) {
	locker, _ := newRedisLocker(t)
	ctx := context.Background()

	unlock, err := locker.TryLock(ctx, TaskSweep, time.Minute)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	if _, err := locker.TryLock(ctx, TaskSweep, time.Minute); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if err := unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := locker.TryLock(ctx, TaskSweep, time.Minute); err != nil {
		t.Fatalf("lock after unlock: %v", err)
	}
}

func TestRedisLockerDoesNotReleaseForeignLock(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()

	stale, err := locker.TryLock(ctx, TaskReconcile, time.Second)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	// TTL expira e outra réplica assume
	mr.FastForward(2 * time.Second)
	if _, err := locker.TryLock(ctx, TaskReconcile, time.Minute); err != nil {
		t.Fatalf("lock after expiry: %v", err)
	}

	if err := stale(ctx); err != nil {
		t.Fatalf("stale unlock: %v", err)
	}
	if !mr.Exists("marketplace:lock:" + TaskReconcile) {
		t.Fatal("stale unlock must not delete the new holder's key")
	}
}

type fakeReconcile struct{ calls int }

func (f *fakeReconcile) Execute(context.Context) (conversation.ReconcileResult, error) {
	f.calls++
	return conversation.ReconcileResult{Scanned: 3, Closed: 1}, nil
}

type fakeSweep struct{ calls int }

func (f *fakeSweep) Execute(context.Context) (appointment.SweepResult, error) {
	f.calls++
	return appointment.SweepResult{Completed: 2}, nil
}

func TestSweeperSkipsWhenLocked(t *testing.T) {
	locker, _ := newRedisLocker(t)
	sweep := &fakeSweep{}
	s := NewSweeper(&fakeReconcile{}, sweep, locker, time.Minute, nil)
	ctx := context.Background()

	held, err := locker.TryLock(ctx, TaskSweep, time.Minute)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	if _, err := s.RunSweep(ctx); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if sweep.calls != 0 {
		t.Fatal("sweep must not run while another replica holds the lock")
	}

	_ = held(ctx)
	res, err := s.RunSweep(ctx)
	if err != nil || res.Completed != 2 || sweep.calls != 1 {
		t.Fatalf("unexpected run %+v %v", res, err)
	}
}

func TestTickerRunnerRunsJobs(t *testing.T) {
	reconcile := &fakeReconcile{}
	sweep := &fakeSweep{}
	s := NewSweeper(reconcile, sweep, NewLocalLocker(), time.Minute, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	r := NewTickerRunner(s, 20*time.Millisecond, 20*time.Millisecond, nil)
	if err := r.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if reconcile.calls == 0 || sweep.calls == 0 {
		t.Fatalf("expected both jobs to run, got %d/%d", reconcile.calls, sweep.calls)
	}
}

func TestNewRunnerRejectsUnknownDriver(t *testing.T) {
	if _, err := NewRunner(configFor("cron"), nil, nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func configFor(driver string) config.JobsConfig {
	return config.JobsConfig{Driver: driver}
}
