package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

type fakeStore struct {
	rows      []models.OutboxEvent
	published []uint
	retried   map[uint]bool
	nextAt    map[uint]time.Time
}

func newFakeStore(rows ...models.OutboxEvent) *fakeStore {
	return &fakeStore{rows: rows, retried: map[uint]bool{}, nextAt: map[uint]time.Time{}}
}

func (s *fakeStore) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *fakeStore) ClaimPendingEvents(_ context.Context, _ time.Time, limit int) ([]models.OutboxEvent, error) {
	if len(s.rows) > limit {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

func (s *fakeStore) MarkEventPublished(_ context.Context, id uint, _ time.Time) error {
	s.published = append(s.published, id)
	return nil
}

func (s *fakeStore) MarkEventRetry(_ context.Context, id uint, _ string, at time.Time, failed bool) error {
	s.retried[id] = failed
	s.nextAt[id] = at
	return nil
}

func TestRunOnceDispatchesByType(t *testing.T) {
	store := newFakeStore(
		models.OutboxEvent{ID: 1, EventID: "a", EventType: events.BackjobApplied, Payload: []byte(`{}`)},
		models.OutboxEvent{ID: 2, EventID: "b", EventType: events.MessageSent, Payload: []byte(`{}`)},
	)

	relay := NewRelay(store, Config{BatchSize: 10}, nil)

	var typed, all []string
	relay.Subscribe(events.MessageSent, HandlerFunc(func(_ context.Context, env events.Envelope) error {
		typed = append(typed, env.ID)
		return nil
	}))
	relay.SubscribeAll(HandlerFunc(func(_ context.Context, env events.Envelope) error {
		all = append(all, env.ID)
		return nil
	}))

	n, err := relay.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if n != 2 || len(store.published) != 2 {
		t.Fatalf("expected 2 published, got %d (%v)", n, store.published)
	}
	if len(typed) != 1 || typed[0] != "b" {
		t.Fatalf("typed handler got %v", typed)
	}
	if len(all) != 2 {
		t.Fatalf("catch-all handler got %v", all)
	}
}

func TestRunOnceSchedulesRetry(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store := newFakeStore(
		models.OutboxEvent{ID: 1, EventType: events.AppointmentCreated, Attempts: 0},
		models.OutboxEvent{ID: 2, EventType: events.AppointmentCreated, Attempts: 2},
	)

	relay := NewRelay(store, Config{BatchSize: 10, MaxAttempts: 3}, nil)
	relay.clock = func() time.Time { return now }
	relay.SubscribeAll(HandlerFunc(func(context.Context, events.Envelope) error {
		return errors.New("smtp down")
	}))

	if _, err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	if failed, ok := store.retried[1]; !ok || failed {
		t.Fatalf("first attempt should be retried, got %v %v", failed, ok)
	}
	if !store.nextAt[1].Equal(now.Add(2 * time.Second)) {
		t.Fatalf("unexpected backoff %s", store.nextAt[1].Sub(now))
	}
	if !store.retried[2] {
		t.Fatal("third attempt should be marked failed")
	}
	if len(store.published) != 0 {
		t.Fatal("nothing should be published")
	}
}

func TestBackoffIsCapped(t *testing.T) {
	if Backoff(1) != 2*time.Second || Backoff(3) != 8*time.Second {
		t.Fatalf("unexpected backoff %s %s", Backoff(1), Backoff(3))
	}
	if Backoff(20) != maxBackoff || Backoff(9) != maxBackoff {
		t.Fatal("backoff must be capped")
	}
}
