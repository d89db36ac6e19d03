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

// BackjobLookup é a parte do repositório de backjob que o reagendamento usa.
type BackjobLookup interface {
	FindApprovedBackjob(
		ctx context.Context,
		appointmentID uint,
	) (*models.BackjobApplication, error)
}

type RescheduleInput struct {
	AppointmentID  uint
	AvailabilityID uint
	ScheduledDate  time.Time
}

// RescheduleFromBackjob: o prestador marca a nova visita de um backjob approved.
type RescheduleFromBackjob struct {
	deps     Deps
	backjobs BackjobLookup
}

func NewRescheduleFromBackjob(deps Deps, backjobs BackjobLookup) *RescheduleFromBackjob {
	return &RescheduleFromBackjob{
		deps:     deps,
		backjobs: backjobs,
	}
}

func (uc *RescheduleFromBackjob) Execute(
	ctx context.Context,
	a actor.Actor,
	in RescheduleInput,
) (*models.Appointment, error) {

	if in.AvailabilityID == 0 {
		return nil, httperr.ErrValidation("availability_required")
	}

	now := uc.deps.now()
	var (
		ap        *models.Appointment
		backjobID uint
	)

	err := uc.deps.Repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		ap, err = uc.deps.Repo.GetAppointmentForUpdate(ctx, in.AppointmentID)
		if err != nil {
			return err
		}

		// --------------------------------------------------
		// 1️⃣ Só o prestador do agendamento
		// --------------------------------------------------
		if err := requireProvider(ap, a, false); err != nil {
			return err
		}
		if domain.Status(ap.Status) != domain.StatusBackjob {
			return httperr.ErrBusiness("invalid_state")
		}

		// --------------------------------------------------
		// 2️⃣ Backjob approved
		// --------------------------------------------------
		bj, err := uc.backjobs.FindApprovedBackjob(ctx, ap.ID)
		if err != nil {
			return err
		}
		if bj == nil {
			return httperr.ErrBusiness("backjob_not_approved")
		}
		backjobID = bj.ID

		// --------------------------------------------------
		// 3️⃣ Novo slot + conflito
		// --------------------------------------------------
		av, err := uc.deps.Repo.GetAvailability(ctx, in.AvailabilityID)
		if err != nil {
			return err
		}
		if err := domain.CheckSlot(av, ap.ProviderID, ap.AvailabilityID); err != nil {
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

		conflict, err := uc.deps.Repo.FindScheduleConflict(ctx, ap.ProviderID, av.ID, date, ap.ID)
		if err != nil {
			return err
		}
		if conflict != nil {
			return httperr.ErrConflict("schedule_conflict", map[string]any{
				"appointment_id": conflict.ID,
			})
		}

		// --------------------------------------------------
		// 4️⃣ Troca de slot (pausa da garantia continua)
		// --------------------------------------------------
		oldSlot := ap.AvailabilityID
		if err := domain.Reschedule(ap, date, av.ID); err != nil {
			return err
		}

		if oldSlot != 0 && oldSlot != av.ID {
			if err := uc.deps.Repo.SetAvailabilityBooked(ctx, oldSlot, false); err != nil {
				return err
			}
		}
		if err := uc.deps.Repo.SetAvailabilityBooked(ctx, av.ID, true); err != nil {
			return err
		}
		if err := uc.deps.Repo.UpdateAppointment(ctx, ap); err != nil {
			return err
		}

		return uc.deps.Outbox.AppendEvents(ctx, events.AppointmentRescheduledEvent{
			Base:               events.Base{OccurredAt: now},
			AppointmentParties: parties(ap),
			BackjobID:          backjobID,
			ScheduledDate:      ap.ScheduledDate,
			AvailabilityID:     ap.AvailabilityID,
		})
	})
	if err != nil {
		return nil, err
	}

	uc.deps.record(a, "appointment_rescheduled", ap, map[string]any{
		"backjob_id":      backjobID,
		"availability_id": ap.AvailabilityID,
	})

	return ap, nil
}
