package backjob

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BruksfildServices01/service-marketplace/internal/audit"
	"github.com/BruksfildServices01/service-marketplace/internal/domain/actor"
	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/backjob"
	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
	"github.com/BruksfildServices01/service-marketplace/internal/timezone"
)

type ConversationHook interface {
	OnAppointmentChanged(ctx context.Context, ap *models.Appointment) error
}

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

func (d Deps) afterCommit(ctx context.Context, ap *models.Appointment) {
	if d.Hook == nil || ap == nil {
		return
	}
	if err := d.Hook.OnAppointmentChanged(ctx, ap); err != nil && d.Log != nil {
		d.Log.Warn("conversation hook failed",
			zap.Uint("appointment_id", ap.ID),
			zap.Error(err),
		)
	}
}

func (d Deps) record(a actor.Actor, action string, bj *models.BackjobApplication, meta any) {
	userID := a.UserID
	d.Audit.Dispatch(audit.Event{
		UserID:   &userID,
		Action:   action,
		Entity:   "backjob",
		EntityID: &bj.ID,
		Metadata: meta,
	})
}

// load trava backjob e agendamento (nesta ordem) dentro da transação.
func (d Deps) load(ctx context.Context, backjobID uint) (*models.BackjobApplication, *models.Appointment, error) {
	bj, err := d.Repo.GetBackjobForUpdate(ctx, backjobID)
	if err != nil {
		return nil, nil, err
	}
	ap, err := d.Repo.GetAppointmentForUpdate(ctx, bj.AppointmentID)
	if err != nil {
		return nil, nil, err
	}
	return bj, ap, nil
}

// ensureSingleApproved impede um segundo backjob approved no agendamento.
func (d Deps) ensureSingleApproved(ctx context.Context, bj *models.BackjobApplication) error {
	existing, err := d.Repo.FindApprovedBackjob(ctx, bj.AppointmentID)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != bj.ID {
		return httperr.ErrConflict("backjob_already_active", map[string]any{
			"backjob_id":     existing.ID,
			"appointment_id": existing.AppointmentID,
		})
	}
	return nil
}

func parties(bj *models.BackjobApplication) events.BackjobParties {
	return events.BackjobParties{
		BackjobID:     bj.ID,
		AppointmentID: bj.AppointmentID,
		CustomerID:    bj.CustomerID,
		ProviderID:    bj.ProviderID,
	}
}

func requireAdmin(a actor.Actor) error {
	if !a.IsAdmin() {
		return httperr.ErrForbidden("admin_only")
	}
	return nil
}
