package appointment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BruksfildServices01/service-marketplace/internal/audit"
	"github.com/BruksfildServices01/service-marketplace/internal/domain/actor"
	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
	"github.com/BruksfildServices01/service-marketplace/internal/timezone"
)

// ConversationHook recalcula o acesso à conversa do par depois que o
// agendamento mudou (implementado pelo use case de conversation).
type ConversationHook interface {
	OnAppointmentChanged(ctx context.Context, ap *models.Appointment) error
}

// Deps agrupa o que todos os use cases de appointment recebem.
type Deps struct {
	Repo   domain.Repository
	Outbox events.Outbox
	Audit  *audit.Dispatcher
	Hook   ConversationHook
	Clock  timezone.Clock
	Log    *zap.Logger
}

func (d Deps) now() time.Time {
	if d.Clock == nil {
		return timezone.Now()
	}
	return d.Clock()
}

func (d Deps) logger() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

// afterCommit roda o hook da conversa. Falha aqui não desfaz a transição.
func (d Deps) afterCommit(ctx context.Context, ap *models.Appointment) {
	if d.Hook == nil {
		return
	}
	if err := d.Hook.OnAppointmentChanged(ctx, ap); err != nil {
		d.logger().Warn("conversation hook failed",
			zap.Uint("appointment_id", ap.ID),
			zap.Error(err),
		)
	}
}

func (d Deps) record(a actor.Actor, action string, ap *models.Appointment, meta any) {
	userID := a.UserID
	d.Audit.Dispatch(audit.Event{
		UserID:   &userID,
		Action:   action,
		Entity:   "appointment",
		EntityID: &ap.ID,
		Metadata: meta,
	})
}

// ======================================================
// AUTHORIZATION
// ======================================================

// requireParty: cliente ou prestador do agendamento, ou admin.
func requireParty(ap *models.Appointment, a actor.Actor) error {
	switch {
	case a.IsAdmin():
		return nil
	case a.IsCustomer() && ap.CustomerID == a.UserID:
		return nil
	case a.IsProvider() && ap.ProviderID == a.UserID:
		return nil
	}
	return httperr.ErrForbidden("not_appointment_party")
}

func requireProvider(ap *models.Appointment, a actor.Actor, allowAdmin bool) error {
	if allowAdmin && a.IsAdmin() {
		return nil
	}
	if a.IsProvider() && ap.ProviderID == a.UserID {
		return nil
	}
	return httperr.ErrForbidden("not_appointment_party")
}

func requireCustomer(ap *models.Appointment, a actor.Actor) error {
	if a.IsCustomer() && ap.CustomerID == a.UserID {
		return nil
	}
	return httperr.ErrForbidden("not_appointment_party")
}

func parties(ap *models.Appointment) events.AppointmentParties {
	return events.AppointmentParties{
		AppointmentID: ap.ID,
		CustomerID:    ap.CustomerID,
		ProviderID:    ap.ProviderID,
	}
}
