package appointment

import (
	"context"
	"strings"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/actor"
	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	"github.com/BruksfildServices01/service-marketplace/internal/domain/backjob"
	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

type CancelAppointment struct {
	deps Deps
}

func NewCancelAppointment(deps Deps) *CancelAppointment {
	return &CancelAppointment{deps: deps}
}

func (uc *CancelAppointment) Execute(
	ctx context.Context,
	a actor.Actor,
	appointmentID uint,
	reason string,
) (*models.Appointment, error) {

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, httperr.ErrValidation("reason_required")
	}

	now := uc.deps.now()
	var (
		ap        *models.Appointment
		cancelled int64
	)

	err := uc.deps.Repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		ap, err = uc.deps.Repo.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if err := requireParty(ap, a); err != nil {
			return err
		}

		if err := domain.Cancel(ap, reason, a.CancelledBy(), now); err != nil {
			return err
		}

		// claim approved/pending não sobrevive ao agendamento
		cancelled, err = uc.deps.Repo.CancelOpenBackjobs(ctx, ap.ID, backjob.AppointmentCancelledNote, now)
		if err != nil {
			return err
		}

		if ap.AvailabilityID != 0 {
			if err := uc.deps.Repo.SetAvailabilityBooked(ctx, ap.AvailabilityID, false); err != nil {
				return err
			}
		}

		if err := uc.deps.Repo.UpdateAppointment(ctx, ap); err != nil {
			return err
		}

		return uc.deps.Outbox.AppendEvents(ctx, events.AppointmentCancelledEvent{
			Base:               events.Base{OccurredAt: now},
			AppointmentParties: parties(ap),
			Reason:             reason,
			CancelledBy:        ap.CancelledBy,
		})
	})
	if err != nil {
		return nil, err
	}

	uc.deps.record(a, "appointment_cancelled", ap, map[string]any{
		"reason":             reason,
		"backjobs_cancelled": cancelled,
	})

	// pode fechar a conversa se era o último agendamento ativo do par
	uc.deps.afterCommit(ctx, ap)

	return ap, nil
}
