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

type DisputeBackjobInput struct {
	BackjobID uint
	Reason    string
	Evidence  domain.Evidence
}

// DisputeBackjob: o prestador contesta. A garantia volta a contar na hora;
// a arbitragem do admin acontece depois.
type DisputeBackjob struct {
	deps Deps
}

func NewDisputeBackjob(deps Deps) *DisputeBackjob {
	return &DisputeBackjob{deps: deps}
}

// Authorize devolve o backjob quando o ator pode contestá-lo agora.
// Não trava nem escreve; o handler usa antes de subir evidência.
func (uc *DisputeBackjob) Authorize(
	ctx context.Context,
	a actor.Actor,
	backjobID uint,
) (*models.BackjobApplication, error) {

	bj, err := uc.deps.Repo.GetBackjob(ctx, backjobID)
	if err != nil {
		return nil, err
	}
	if err := canDispute(a, bj); err != nil {
		return nil, err
	}
	return bj, nil
}

func canDispute(a actor.Actor, bj *models.BackjobApplication) error {
	if !a.IsProvider() || bj.ProviderID != a.UserID {
		return httperr.ErrForbidden("not_appointment_party")
	}
	return domain.CanDispute(domain.Status(bj.Status))
}

func (uc *DisputeBackjob) Execute(
	ctx context.Context,
	a actor.Actor,
	in DisputeBackjobInput,
) (*models.BackjobApplication, error) {

	reason := strings.TrimSpace(in.Reason)
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
		bj, ap, err = uc.deps.load(ctx, in.BackjobID)
		if err != nil {
			return err
		}
		if err := canDispute(a, bj); err != nil {
			return err
		}

		bj.Status = string(domain.StatusDisputed)
		bj.ProviderDisputeReason = reason
		bj.ProviderDisputeEvidence = in.Evidence.JSON()

		appointmentDomain.ResumeWarranty(ap, now)

		if err := uc.deps.Repo.UpdateBackjob(ctx, bj); err != nil {
			return err
		}
		if err := uc.deps.Repo.UpdateAppointment(ctx, ap); err != nil {
			return err
		}

		return uc.deps.Outbox.AppendEvents(ctx, events.BackjobDisputedEvent{
			Base:              events.Base{OccurredAt: now},
			BackjobParties:    parties(bj),
			Reason:            reason,
			WarrantyExpiresAt: ap.WarrantyExpiresAt,
		})
	})
	if err != nil {
		return nil, err
	}

	uc.deps.record(a, "backjob_disputed", bj, map[string]any{"reason": reason})
	uc.deps.afterCommit(ctx, ap)

	return bj, nil
}
