package appointment

import (
	"context"
	"time"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/actor"
	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
	"github.com/BruksfildServices01/service-marketplace/internal/timezone"
)

// ======================================================
// INPUT
// ======================================================

type CreateAppointmentInput struct {
	ServiceID      uint
	AvailabilityID uint

	// opcional: quando zero, usa o início do slot
	ScheduledDate time.Time
}

// ======================================================
// USE CASE
// ======================================================

type CreateAppointment struct {
	deps Deps
}

func NewCreateAppointment(deps Deps) *CreateAppointment {
	return &CreateAppointment{deps: deps}
}

// ======================================================
// EXECUTE
// ======================================================

func (uc *CreateAppointment) Execute(
	ctx context.Context,
	a actor.Actor,
	in CreateAppointmentInput,
) (*models.Appointment, error) {

	if !a.IsCustomer() {
		return nil, httperr.ErrForbidden("customer_only")
	}

	now := uc.deps.now()
	var created *models.Appointment

	err := uc.deps.Repo.Transaction(ctx, func(ctx context.Context) error {

		// --------------------------------------------------
		// 1️⃣ Serviço (garantia é copiada para o agendamento)
		// --------------------------------------------------
		svc, err := uc.deps.Repo.GetService(ctx, in.ServiceID)
		if err != nil {
			return err
		}

		// --------------------------------------------------
		// 2️⃣ Slot do prestador
		// --------------------------------------------------
		av, err := uc.deps.Repo.GetAvailability(ctx, in.AvailabilityID)
		if err != nil {
			return err
		}
		if err := domain.CheckSlot(av, svc.ProviderID, 0); err != nil {
			return err
		}

		date := in.ScheduledDate
		if date.IsZero() {
			if date, err = domain.SlotStart(av, timezone.Current()); err != nil {
				return err
			}
		}
		if !date.After(now) {
			return httperr.ErrValidation("date_in_past")
		}

		// --------------------------------------------------
		// 3️⃣ Conflito de horário
		// --------------------------------------------------
		conflict, err := uc.deps.Repo.FindScheduleConflict(ctx, svc.ProviderID, av.ID, date, 0)
		if err != nil {
			return err
		}
		if conflict != nil {
			return httperr.ErrConflict("schedule_conflict", map[string]any{
				"appointment_id": conflict.ID,
			})
		}

		// --------------------------------------------------
		// 4️⃣ Criação (status centralizado)
		// --------------------------------------------------
		ap := &models.Appointment{
			CustomerID:     a.UserID,
			ProviderID:     svc.ProviderID,
			ServiceID:      svc.ID,
			AvailabilityID: av.ID,
			Status:         string(domain.InitialStatus()),
			ScheduledDate:  date,
			WarrantyDays:   svc.WarrantyDays,
		}

		if err := uc.deps.Repo.CreateAppointment(ctx, ap); err != nil {
			return err
		}
		if err := uc.deps.Repo.SetAvailabilityBooked(ctx, av.ID, true); err != nil {
			return err
		}

		created = ap
		return uc.deps.Outbox.AppendEvents(ctx, events.AppointmentCreatedEvent{
			Base:               events.Base{OccurredAt: now},
			AppointmentParties: parties(ap),
			ScheduledDate:      ap.ScheduledDate,
			ServiceID:          ap.ServiceID,
		})
	})
	if err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 5️⃣ Auditoria + conversa do par
	// --------------------------------------------------
	uc.deps.record(a, "appointment_created", created, nil)
	uc.deps.afterCommit(ctx, created)

	return created, nil
}
