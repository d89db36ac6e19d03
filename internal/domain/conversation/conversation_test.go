package conversation

import (
	"testing"
	"time"

	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

func TestExtendNeverShortens(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	conv := New(1, 2, nil)

	steps := []time.Time{
		base.Add(72 * time.Hour),
		base.Add(24 * time.Hour),
		base.Add(96 * time.Hour),
		base,
	}

	var latest time.Time
	for _, s := range steps {
		Extend(conv, &s)
		if s.After(latest) {
			latest = s
		}
		if conv.WarrantyExpires == nil || !conv.WarrantyExpires.Equal(latest) {
			t.Fatalf("expected %s, got %v", latest, conv.WarrantyExpires)
		}
	}
}

func TestExtendReactivatesClosed(t *testing.T) {
	conv := &models.Conversation{Status: string(StatusClosed)}
	if !Extend(conv, nil) {
		t.Fatal("expected change")
	}
	if conv.Status != string(StatusActive) {
		t.Fatalf("expected active, got %s", conv.Status)
	}
}

func TestMessagingAllowedLooksAtAllAppointments(t *testing.T) {
	items := []models.Appointment{
		{ID: 1, Status: "completed"},
		{ID: 2, Status: "cancelled"},
		{ID: 3, Status: "scheduled"},
	}
	ok, active := MessagingAllowed(items)
	if !ok || active.ID != 3 {
		t.Fatalf("expected messaging allowed via appointment 3, got %v %v", ok, active)
	}

	ok, _ = MessagingAllowed(items[:2])
	if ok {
		t.Fatal("terminal appointments only must not allow messaging")
	}
}

func TestDesiredKeepsArchived(t *testing.T) {
	conv := &models.Conversation{Status: string(StatusArchived)}
	if Desired(conv, true) != StatusArchived {
		t.Fatal("archived conversations are left alone")
	}
}
