package appointment

import (
	"context"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/actor"
	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

// CustomerCompleteAppointment: o cliente confirma que o serviço terminou.
// Encerra a garantia na hora e conclui backjobs approved.
type CustomerCompleteAppointment struct {
	deps Deps
}

func NewCustomerCompleteAppointment(deps Deps) *CustomerCompleteAppointment {
	return &CustomerCompleteAppointment{deps: deps}
}

func (uc *CustomerCompleteAppointment) Execute(
	ctx context.Context,
	a actor.Actor,
	appointmentID uint,
) (*models.Appointment, error) {

	now := uc.deps.now()
	var (
		ap   *models.Appointment
		from string
	)

	err := uc.deps.Repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		ap, err = uc.deps.Repo.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if err := requireCustomer(ap, a); err != nil {
			return err
		}

		from = ap.Status
		switch domain.Status(from) {
		case domain.StatusFinished, domain.StatusInWarranty, domain.StatusBackjob:
		default:
			return httperr.ErrBusiness("invalid_state")
		}

		if err := domain.Complete(ap, now); err != nil {
			return err
		}
		if _, err := uc.deps.Repo.CompleteApprovedBackjobs(ctx, ap.ID, now); err != nil {
			return err
		}
		if err := uc.deps.Repo.UpdateAppointment(ctx, ap); err != nil {
			return err
		}

		return uc.deps.Outbox.AppendEvents(ctx,
			events.AppointmentStatusChangedEvent{
				Base:               events.Base{OccurredAt: now},
				AppointmentParties: parties(ap),
				From:               from,
				To:                 ap.Status,
				WarrantyExpiresAt:  ap.WarrantyExpiresAt,
			},
			events.AppointmentCompletedEvent{
				Base:               events.Base{OccurredAt: now},
				AppointmentParties: parties(ap),
				Trigger:            "customer",
			},
		)
	})
	if err != nil {
		return nil, err
	}

	uc.deps.record(a, "appointment_completed", ap, map[string]any{"from": from})
	uc.deps.afterCommit(ctx, ap)

	return ap, nil
}
