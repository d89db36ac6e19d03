package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/actor"
	appointmentDomain "github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/conversation"
	"github.com/BruksfildServices01/service-marketplace/internal/domain/warranty"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
	"github.com/BruksfildServices01/service-marketplace/internal/testutil"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

const (
	customerID uint = 100
	providerID uint = 200
)

type fixture struct {
	store     *testutil.MemStore
	now       time.Time
	lifecycle *Lifecycle
}

func newFixture() *fixture {
	f := &fixture{store: testutil.NewMemStore(), now: t0}
	f.lifecycle = NewLifecycle(f.store, f.store, func() time.Time { return f.now }, nil)
	return f
}

func (f *fixture) appointment(status appointmentDomain.Status, mutate ...func(*models.Appointment)) models.Appointment {
	ap := models.Appointment{
		CustomerID:    customerID,
		ProviderID:    providerID,
		Status:        string(status),
		ScheduledDate: f.now,
	}
	for _, m := range mutate {
		m(&ap)
	}
	return f.store.AddAppointment(ap)
}

// ======================================================
// CHECK
// ======================================================

func TestMessagingAllowedWithOneOpenAppointment(t *testing.T) {
	f := newFixture()
	f.appointment(appointmentDomain.StatusCompleted, func(ap *models.Appointment) {
		ap.ScheduledDate = t0.AddDate(0, -1, 0)
	})
	f.appointment(appointmentDomain.StatusCancelled)
	open := f.appointment(appointmentDomain.StatusScheduled, func(ap *models.Appointment) {
		ap.ScheduledDate = t0.AddDate(0, 0, -7)
	})

	if _, err := f.lifecycle.EnsureForPair(context.Background(), customerID, providerID, nil); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	res, conv, err := f.lifecycle.SyncPair(context.Background(), customerID, providerID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !res.CanMessage || res.ActiveAppointmentID != open.ID {
		t.Fatalf("expected messaging via %d, got %+v", open.ID, res)
	}
	if conv.Status != string(domain.StatusActive) {
		t.Fatalf("expected active conversation, got %s", conv.Status)
	}
}

func TestCheckAutoCompletesExpiredWarranty(t *testing.T) {
	f := newFixture()
	expires := t0.Add(-time.Hour)
	ap := f.appointment(appointmentDomain.StatusInWarranty, func(ap *models.Appointment) {
		ap.WarrantyExpiresAt = &expires
	})

	res, err := f.lifecycle.CheckAppointmentStatus(context.Background(), customerID, providerID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.CanMessage {
		t.Fatal("expired warranty should not allow messaging")
	}
	if len(res.AutoCompleted) != 1 || res.AutoCompleted[0] != ap.ID {
		t.Fatalf("expected auto completion of %d, got %v", ap.ID, res.AutoCompleted)
	}
	if f.store.Appointment(ap.ID).Status != string(appointmentDomain.StatusCompleted) {
		t.Fatal("appointment should be completed")
	}
}

func TestCheckMemoizesDerivedExpiry(t *testing.T) {
	f := newFixture()
	finished := t0.Add(-warranty.Day)
	ap := f.appointment(appointmentDomain.StatusInWarranty, func(ap *models.Appointment) {
		ap.FinishedAt = &finished
		ap.WarrantyDays = 3
	})

	res, err := f.lifecycle.CheckAppointmentStatus(context.Background(), customerID, providerID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}

	stored := f.store.Appointment(ap.ID).WarrantyExpiresAt
	if stored == nil || !stored.Equal(finished.Add(3*warranty.Day)) {
		t.Fatalf("expected memoized expiry, got %v", stored)
	}
	if res.WarrantyExpires == nil || !res.WarrantyExpires.Equal(*stored) {
		t.Fatalf("expected warranty_expires %s, got %v", stored, res.WarrantyExpires)
	}
}

// ======================================================
// ENSURE
// ======================================================

func TestEnsureForPairNeverShortensExpiry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	later := t0.Add(10 * warranty.Day)
	earlier := t0.Add(2 * warranty.Day)

	if _, err := f.lifecycle.EnsureForPair(ctx, customerID, providerID, &later); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	conv, err := f.lifecycle.EnsureForPair(ctx, customerID, providerID, &earlier)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !conv.WarrantyExpires.Equal(later) {
		t.Fatalf("expiry must not move back, got %s", conv.WarrantyExpires)
	}

	stored, _ := f.store.ConversationByPair(customerID, providerID)
	if stored.ID != conv.ID {
		t.Fatal("pair must keep a single conversation")
	}
}

func TestEnsureForPairReopensClosed(t *testing.T) {
	f := newFixture()
	f.store.AddConversation(models.Conversation{
		CustomerID: customerID,
		ProviderID: providerID,
		Status:     string(domain.StatusClosed),
	})

	conv, err := f.lifecycle.EnsureForPair(context.Background(), customerID, providerID, nil)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if conv.Status != string(domain.StatusActive) {
		t.Fatalf("expected active, got %s", conv.Status)
	}
	if names := f.store.EventNames(); len(names) != 1 || names[0] != "conversation.status_changed" {
		t.Fatalf("expected a status change event, got %v", names)
	}
}

// ======================================================
// RECONCILE
// ======================================================

func TestReconcileConverges(t *testing.T) {
	f := newFixture()

	// par sem agendamento aberto mas com conversa ativa
	f.store.AddConversation(models.Conversation{CustomerID: customerID, ProviderID: providerID, Status: string(domain.StatusActive)})
	f.appointment(appointmentDomain.StatusCompleted)

	// par com agendamento aberto mas conversa fechada
	f.store.AddConversation(models.Conversation{CustomerID: 300, ProviderID: providerID, Status: string(domain.StatusClosed)})
	f.store.AddAppointment(models.Appointment{CustomerID: 300, ProviderID: providerID, Status: string(appointmentDomain.StatusConfirmed)})

	uc := NewReconcile(f.lifecycle, 1)
	res, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Scanned != 2 || res.Closed != 1 || res.Reopened != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	writes := f.store.Writes
	again, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if again.Closed != 0 || again.Reopened != 0 || f.store.Writes != writes {
		t.Fatalf("second run should not mutate, got %+v (%d writes)", again, f.store.Writes-writes)
	}
}

// ======================================================
// MESSAGES
// ======================================================

func TestSendMessage(t *testing.T) {
	f := newFixture()
	f.appointment(appointmentDomain.StatusScheduled)
	conv, err := f.lifecycle.EnsureForPair(context.Background(), customerID, providerID, nil)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	uc := NewMessages(f.lifecycle)
	sender := actor.Actor{UserID: customerID, Role: actor.RoleCustomer}

	msg, err := uc.Send(context.Background(), sender, conv.ID, "  on my way  ")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Body != "on my way" || msg.SenderID != customerID {
		t.Fatalf("unexpected message %+v", msg)
	}

	outsider := actor.Actor{UserID: 999, Role: actor.RoleCustomer}
	if _, err := uc.Send(context.Background(), outsider, conv.ID, "hi"); !httperr.IsBusiness(err, "not_conversation_party") {
		t.Fatalf("expected not_conversation_party, got %v", err)
	}
	if _, err := uc.Send(context.Background(), sender, conv.ID, "   "); !httperr.IsBusiness(err, "body_required") {
		t.Fatalf("expected body_required, got %v", err)
	}
}

func TestSendRejectedWhenNothingOpen(t *testing.T) {
	f := newFixture()
	conv := f.store.AddConversation(models.Conversation{CustomerID: customerID, ProviderID: providerID, Status: string(domain.StatusActive)})
	f.appointment(appointmentDomain.StatusCompleted)

	uc := NewMessages(f.lifecycle)
	sender := actor.Actor{UserID: providerID, Role: actor.RoleProvider}

	if _, err := uc.Send(context.Background(), sender, conv.ID, "hello"); !httperr.IsBusiness(err, "messaging_not_allowed") {
		t.Fatalf("expected messaging_not_allowed, got %v", err)
	}
	if len(f.store.Messages()) != 0 {
		t.Fatal("no message should be stored")
	}
	stored, _ := f.store.ConversationByPair(customerID, providerID)
	if stored.Status != string(domain.StatusClosed) {
		t.Fatalf("conversation should be closed by the check, got %s", stored.Status)
	}
}

func TestOnAppointmentChangedCreatesConversation(t *testing.T) {
	f := newFixture()
	expires := t0.Add(5 * warranty.Day)
	ap := f.appointment(appointmentDomain.StatusInWarranty, func(ap *models.Appointment) {
		ap.WarrantyExpiresAt = &expires
	})

	if err := f.lifecycle.OnAppointmentChanged(context.Background(), &ap); err != nil {
		t.Fatalf("hook: %v", err)
	}

	conv, ok := f.store.ConversationByPair(customerID, providerID)
	if !ok || conv.Status != string(domain.StatusActive) {
		t.Fatalf("expected active conversation, got %+v", conv)
	}
	if conv.WarrantyExpires == nil || !conv.WarrantyExpires.Equal(expires) {
		t.Fatalf("expected warranty_expires %s, got %v", expires, conv.WarrantyExpires)
	}
}
