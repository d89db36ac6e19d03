package backjob

import (
	"context"
	"strings"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/actor"
	appointmentDomain "github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/backjob"
	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

type CancelBackjobByCustomer struct {
	deps Deps
}

func NewCancelBackjobByCustomer(deps Deps) *CancelBackjobByCustomer {
	return &CancelBackjobByCustomer{deps: deps}
}

func (uc *CancelBackjobByCustomer) Execute(
	ctx context.Context,
	a actor.Actor,
	backjobID uint,
	reason string,
) (*models.BackjobApplication, error) {

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, httperr.ErrValidation("reason_required")
	}

	now := uc.deps.now()
	var (
		bj *models.BackjobApplication
		ap *models.Appointment
	)

	err := uc.deps.Repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		bj, ap, err = uc.deps.load(ctx, backjobID)
		if err != nil {
			return err
		}
		if !a.IsCustomer() || bj.CustomerID != a.UserID {
			return httperr.ErrForbidden("not_appointment_party")
		}
		if err := domain.CanCustomerCancel(domain.Status(bj.Status)); err != nil {
			return err
		}

		bj.Status = string(domain.StatusCancelledByCustomer)
		bj.CustomerCancellationReason = reason
		bj.ResolvedAt = &now

		appointmentDomain.ResumeWarranty(ap, now)

		if err := uc.deps.Repo.UpdateBackjob(ctx, bj); err != nil {
			return err
		}
		if err := uc.deps.Repo.UpdateAppointment(ctx, ap); err != nil {
			return err
		}

		return uc.deps.Outbox.AppendEvents(ctx, events.BackjobCancelledEvent{
			Base:           events.Base{OccurredAt: now},
			BackjobParties: parties(bj),
			Status:         bj.Status,
			Reason:         reason,
		})
	})
	if err != nil {
		return nil, err
	}

	uc.deps.record(a, "backjob_cancelled_by_customer", bj, map[string]any{"reason": reason})
	uc.deps.afterCommit(ctx, ap)

	return bj, nil
}
