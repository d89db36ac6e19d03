package audit

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type memWriter struct {
	mu     sync.Mutex
	events []Event
}

func (w *memWriter) Log(_ context.Context, ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, ev)
	return nil
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	w := &memWriter{}
	d := NewDispatcher(w, zap.NewNop())

	for i := 0; i < 10; i++ {
		d.Dispatch(Event{Action: "appointment_created", Entity: "appointment"})
	}
	d.Close()

	if len(w.events) != 10 {
		t.Fatalf("expected 10 events written, got %d", len(w.events))
	}

	// depois de fechado, Dispatch é ignorado
	d.Dispatch(Event{Action: "late"})
	d.Close()
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(Event{Action: "x"})
	d.Close()
}
