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

type ApplyBackjobInput struct {
	AppointmentID uint
	Reason        string
	Evidence      domain.Evidence
}

// ApplyBackjob: cliente abre um pedido de garantia. O pedido já nasce
// approved e a contagem da garantia fica pausada.
type ApplyBackjob struct {
	deps Deps
}

func NewApplyBackjob(deps Deps) *ApplyBackjob {
	return &ApplyBackjob{deps: deps}
}

// canApplyTo checa se o ator é o cliente do agendamento.
func canApplyTo(a actor.Actor, ap *models.Appointment) error {
	if !a.IsCustomer() || ap.CustomerID != a.UserID {
		return httperr.ErrForbidden("not_appointment_party")
	}
	return nil
}

// Authorize roda as checagens do Execute sem travar nem escrever.
// O handler chama antes de subir evidência para o storage.
func (uc *ApplyBackjob) Authorize(ctx context.Context, a actor.Actor, appointmentID uint) error {
	ap, err := uc.deps.Repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if err := canApplyTo(a, ap); err != nil {
		return err
	}
	if err := uc.deps.ensureSingleApproved(ctx, &models.BackjobApplication{AppointmentID: ap.ID}); err != nil {
		return err
	}
	if appointmentDomain.Status(ap.Status) != appointmentDomain.StatusInWarranty {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

func (uc *ApplyBackjob) Execute(
	ctx context.Context,
	a actor.Actor,
	in ApplyBackjobInput,
) (*models.BackjobApplication, error) {

	if err := domain.ValidateApplication(in.Reason, in.Evidence); err != nil {
		return nil, err
	}

	now := uc.deps.now()
	var (
		bj        *models.BackjobApplication
		remaining int
	)

	err := uc.deps.Repo.Transaction(ctx, func(ctx context.Context) error {

		// --------------------------------------------------
		// 1️⃣ Agendamento do próprio cliente
		// --------------------------------------------------
		ap, err := uc.deps.Repo.GetAppointmentForUpdate(ctx, in.AppointmentID)
		if err != nil {
			return err
		}
		if err := canApplyTo(a, ap); err != nil {
			return err
		}

		// --------------------------------------------------
		// 2️⃣ Um único claim approved por agendamento
		// --------------------------------------------------
		bj = &models.BackjobApplication{
			AppointmentID: ap.ID,
			CustomerID:    ap.CustomerID,
			ProviderID:    ap.ProviderID,
			Status:        string(domain.StatusApproved),
			Reason:        strings.TrimSpace(in.Reason),
			Evidence:      in.Evidence.JSON(),
		}
		if err := uc.deps.ensureSingleApproved(ctx, bj); err != nil {
			return err
		}
		if appointmentDomain.Status(ap.Status) != appointmentDomain.StatusInWarranty {
			return httperr.ErrBusiness("invalid_state")
		}

		// --------------------------------------------------
		// 3️⃣ Pausa da garantia
		// --------------------------------------------------
		st, err := appointmentDomain.StartBackjob(ap, now)
		if err != nil {
			return err
		}
		remaining = st.RemainingDays

		// índice parcial no banco cobre a corrida entre dois applies
		if err := uc.deps.Repo.CreateBackjob(ctx, bj); err != nil {
			return err
		}
		if err := uc.deps.Repo.UpdateAppointment(ctx, ap); err != nil {
			return err
		}

		return uc.deps.Outbox.AppendEvents(ctx, events.BackjobAppliedEvent{
			Base:           events.Base{OccurredAt: now},
			BackjobParties: parties(bj),
			Reason:         bj.Reason,
			RemainingDays:  remaining,
		})
	})
	if err != nil {
		return nil, err
	}

	uc.deps.record(a, "backjob_applied", bj, map[string]any{
		"appointment_id": bj.AppointmentID,
		"remaining_days": remaining,
	})

	return bj, nil
}
