package backjob

import (
	"context"
	"strings"
	"time"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/actor"
	appointmentDomain "github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/backjob"
	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

// ======================================================
// ADMIN UPDATE (approve / cancel-by-admin / cancel-by-user)
// ======================================================

type AdminUpdateBackjob struct {
	deps Deps
}

func NewAdminUpdateBackjob(deps Deps) *AdminUpdateBackjob {
	return &AdminUpdateBackjob{deps: deps}
}

func (uc *AdminUpdateBackjob) Execute(
	ctx context.Context,
	a actor.Actor,
	backjobID uint,
	rawAction string,
	notes string,
) (*models.BackjobApplication, error) {

	if err := requireAdmin(a); err != nil {
		return nil, err
	}
	action, err := domain.ParseAdminAction(rawAction)
	if err != nil {
		return nil, err
	}

	now := uc.deps.now()
	notes = strings.TrimSpace(notes)
	var (
		bj          *models.BackjobApplication
		ap          *models.Appointment
		apChanged   bool
		apCompleted bool
	)

	err = uc.deps.Repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		bj, ap, err = uc.deps.load(ctx, backjobID)
		if err != nil {
			return err
		}
		if err := domain.CanAdminUpdate(domain.Status(bj.Status)); err != nil {
			return err
		}
		if notes != "" {
			bj.AdminNotes = notes
		}

		evs := []events.Event{}

		switch action {
		case domain.ActionApprove:
			// agendamento fica em backjob aguardando reagendamento
			if err := uc.deps.ensureSingleApproved(ctx, bj); err != nil {
				return err
			}
			if domain.Status(bj.Status) != domain.StatusApproved {
				apChanged, err = reopenBackjob(ap, now)
				if err != nil {
					return err
				}
			}
			bj.Status = string(domain.StatusApproved)
			bj.ResolvedAt = nil

		case domain.ActionCancelByAdmin:
			// negativa definitiva: conclui o agendamento e encerra a garantia
			bj.Status = string(domain.StatusCancelledByAdmin)
			bj.ResolvedAt = &now
			if err := appointmentDomain.ForceComplete(ap, now); err == nil {
				apChanged, apCompleted = true, true
				evs = append(evs, events.AppointmentCompletedEvent{
					Base: events.Base{OccurredAt: now},
					AppointmentParties: events.AppointmentParties{
						AppointmentID: ap.ID,
						CustomerID:    ap.CustomerID,
						ProviderID:    ap.ProviderID,
					},
					Trigger: "admin",
				})
			}

		case domain.ActionCancelByUser:
			bj.Status = string(domain.StatusCancelledByUser)
			bj.ResolvedAt = &now
			apChanged = appointmentDomain.ResumeWarranty(ap, now)
		}

		if err := uc.deps.Repo.UpdateBackjob(ctx, bj); err != nil {
			return err
		}
		if apChanged {
			if err := uc.deps.Repo.UpdateAppointment(ctx, ap); err != nil {
				return err
			}
		}

		evs = append(evs, events.BackjobResolvedEvent{
			Base:           events.Base{OccurredAt: now},
			BackjobParties: parties(bj),
			Action:         string(action),
			Status:         bj.Status,
			Notes:          bj.AdminNotes,
		})
		return uc.deps.Outbox.AppendEvents(ctx, evs...)
	})
	if err != nil {
		return nil, err
	}

	uc.deps.record(a, "backjob_admin_"+string(action), bj, map[string]any{
		"appointment_completed": apCompleted,
	})
	if apChanged {
		uc.deps.afterCommit(ctx, ap)
	}

	return bj, nil
}

// ======================================================
// DISPUTE RESOLUTION
// ======================================================

// AdminApproveDispute dá razão ao prestador: o claim é cancelado e a
// garantia volta a contar (não encerra como cancel-by-admin).
type AdminApproveDispute struct {
	deps Deps
}

func NewAdminApproveDispute(deps Deps) *AdminApproveDispute {
	return &AdminApproveDispute{deps: deps}
}

func (uc *AdminApproveDispute) Execute(
	ctx context.Context,
	a actor.Actor,
	backjobID uint,
	notes string,
) (*models.BackjobApplication, error) {
	return resolveDispute(ctx, uc.deps, a, backjobID, notes, true)
}

// AdminRejectDispute dá razão ao cliente: o claim volta a approved e a
// garantia, retomada pela disputa, é pausada de novo até o reagendamento.
type AdminRejectDispute struct {
	deps Deps
}

func NewAdminRejectDispute(deps Deps) *AdminRejectDispute {
	return &AdminRejectDispute{deps: deps}
}

func (uc *AdminRejectDispute) Execute(
	ctx context.Context,
	a actor.Actor,
	backjobID uint,
	notes string,
) (*models.BackjobApplication, error) {
	return resolveDispute(ctx, uc.deps, a, backjobID, notes, false)
}

func resolveDispute(
	ctx context.Context,
	deps Deps,
	a actor.Actor,
	backjobID uint,
	notes string,
	approve bool,
) (*models.BackjobApplication, error) {

	if err := requireAdmin(a); err != nil {
		return nil, err
	}

	now := deps.now()
	action := "reject-dispute"
	if approve {
		action = "approve-dispute"
	}

	var (
		bj        *models.BackjobApplication
		ap        *models.Appointment
		apChanged bool
	)

	err := deps.Repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		bj, ap, err = deps.load(ctx, backjobID)
		if err != nil {
			return err
		}
		if err := domain.CanResolveDispute(domain.Status(bj.Status)); err != nil {
			return err
		}

		bj.AdminNotes = strings.TrimSpace(notes)

		if approve {
			bj.Status = string(domain.StatusCancelledByAdmin)
			bj.ResolvedAt = timePtr(now)
			apChanged = appointmentDomain.ResumeWarranty(ap, now)
		} else {
			if err := deps.ensureSingleApproved(ctx, bj); err != nil {
				return err
			}
			apChanged, err = reopenBackjob(ap, now)
			if err != nil {
				return err
			}
			bj.Status = string(domain.StatusApproved)
			bj.ResolvedAt = nil
		}

		if err := deps.Repo.UpdateBackjob(ctx, bj); err != nil {
			return err
		}
		if apChanged {
			if err := deps.Repo.UpdateAppointment(ctx, ap); err != nil {
				return err
			}
		}

		return deps.Outbox.AppendEvents(ctx, events.BackjobResolvedEvent{
			Base:           events.Base{OccurredAt: now},
			BackjobParties: parties(bj),
			Action:         action,
			Status:         bj.Status,
			Notes:          bj.AdminNotes,
		})
	})
	if err != nil {
		return nil, err
	}

	deps.record(a, "backjob_"+strings.ReplaceAll(action, "-", "_"), bj, map[string]any{
		"notes": bj.AdminNotes,
	})
	if apChanged {
		deps.afterCommit(ctx, ap)
	}

	return bj, nil
}

// reopenBackjob devolve o agendamento para backjob quando um claim volta a
// approved. A disputa retomou a garantia, então os dias restantes são
// recalculados a partir da expiração atual.
func reopenBackjob(ap *models.Appointment, now time.Time) (bool, error) {
	switch appointmentDomain.Status(ap.Status) {
	case appointmentDomain.StatusBackjob:
		return false, nil
	case appointmentDomain.StatusInWarranty:
		if _, err := appointmentDomain.StartBackjob(ap, now); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, httperr.ErrBusiness("invalid_state")
}

func timePtr(t time.Time) *time.Time {
	return &t
}
