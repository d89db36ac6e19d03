package appointment

import (
	"context"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/actor"
	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	"github.com/BruksfildServices01/service-marketplace/internal/domain/warranty"
	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

type UpdateAppointmentStatus struct {
	deps Deps
}

func NewUpdateAppointmentStatus(deps Deps) *UpdateAppointmentStatus {
	return &UpdateAppointmentStatus{deps: deps}
}

func (uc *UpdateAppointmentStatus) Execute(
	ctx context.Context,
	a actor.Actor,
	appointmentID uint,
	rawStatus string,
) (*models.Appointment, error) {

	to, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	if to == domain.StatusCancelled {
		// cancelamento tem endpoint próprio (motivo obrigatório)
		return nil, httperr.ErrValidation("reason_required")
	}

	now := uc.deps.now()
	var (
		ap   *models.Appointment
		from string
	)

	err = uc.deps.Repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		ap, err = uc.deps.Repo.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if err := requireProvider(ap, a, true); err != nil {
			return err
		}

		from = ap.Status
		wasPaused := warranty.IsPaused(ap)
		if err := domain.Transition(ap, to, now); err != nil {
			return err
		}

		// serviço refeito (pausa retomada) ou completado: o claim approved
		// está atendido e deixa de bloquear um novo pedido
		if domain.Status(ap.Status) == domain.StatusCompleted || (wasPaused && !warranty.IsPaused(ap)) {
			if _, err := uc.deps.Repo.CompleteApprovedBackjobs(ctx, ap.ID, now); err != nil {
				return err
			}
		}

		if err := uc.deps.Repo.UpdateAppointment(ctx, ap); err != nil {
			return err
		}

		evs := []events.Event{events.AppointmentStatusChangedEvent{
			Base:               events.Base{OccurredAt: now},
			AppointmentParties: parties(ap),
			From:               from,
			To:                 ap.Status,
			WarrantyExpiresAt:  ap.WarrantyExpiresAt,
		}}
		if domain.Status(ap.Status) == domain.StatusCompleted {
			evs = append(evs, events.AppointmentCompletedEvent{
				Base:               events.Base{OccurredAt: now},
				AppointmentParties: parties(ap),
				Trigger:            "manual",
			})
		}
		return uc.deps.Outbox.AppendEvents(ctx, evs...)
	})
	if err != nil {
		return nil, err
	}

	uc.deps.record(a, "appointment_status_changed", ap, map[string]any{
		"from": from,
		"to":   ap.Status,
	})

	if domain.Status(ap.Status).TriggersConversationHook() {
		uc.deps.afterCommit(ctx, ap)
	}

	return ap, nil
}
