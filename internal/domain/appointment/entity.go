package appointment

import (
	"strings"
	"time"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/warranty"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

// ===============================
// Domain Actions
// ===============================

// Transition aplica uma mudança de status pedida explicitamente,
// com os efeitos colaterais de cada destino.
func Transition(ap *models.Appointment, to Status, now time.Time) error {
	if to == StatusCancelled {
		// cancelamento exige motivo: usar Cancel
		return httperr.ErrValidation("reason_required")
	}

	if err := CanTransition(Status(ap.Status), to); err != nil {
		return err
	}

	switch to {
	case StatusFinished:
		finish(ap, now)
	case StatusInWarranty:
		enterWarranty(ap, now)
	case StatusCompleted:
		complete(ap, now)
	default:
		ap.Status = string(to)
	}
	return nil
}

func Finish(ap *models.Appointment, now time.Time) error {
	return Transition(ap, StatusFinished, now)
}

func EnterWarranty(ap *models.Appointment, now time.Time) error {
	return Transition(ap, StatusInWarranty, now)
}

func Complete(ap *models.Appointment, now time.Time) error {
	return Transition(ap, StatusCompleted, now)
}

func finish(ap *models.Appointment, now time.Time) {
	ap.FinishedAt = &now
	ap.Status = string(StatusFinished)

	// retomada depois de backjob: volta direto pra garantia
	if _, resumed := warranty.Resume(ap, now); resumed {
		ap.Status = string(StatusInWarranty)
		return
	}

	if ap.WarrantyDays > 0 {
		warranty.Apply(ap, warranty.Active(warranty.ExpiryFrom(now, ap.WarrantyDays)))
		ap.Status = string(StatusInWarranty)
	}
}

func enterWarranty(ap *models.Appointment, now time.Time) {
	if ap.FinishedAt == nil {
		ap.FinishedAt = &now
	}
	base := *ap.FinishedAt
	ap.Status = string(StatusInWarranty)

	if _, resumed := warranty.Resume(ap, base); resumed {
		return
	}

	if ap.WarrantyDays > 0 {
		warranty.Apply(ap, warranty.Active(warranty.ExpiryFrom(base, ap.WarrantyDays)))
	}
}

// complete sempre força a expiração da garantia, com ou sem pausa.
func complete(ap *models.Appointment, now time.Time) {
	ap.Status = string(StatusCompleted)
	ap.CompletedAt = &now
	warranty.ForceExpire(ap, now)
}

// ForceComplete encerra o agendamento sem passar pela tabela de transição.
// Usado pelo sweep, pela checagem de conversa e pelo cancel-by-admin.
func ForceComplete(ap *models.Appointment, now time.Time) error {
	if Status(ap.Status).IsTerminal() {
		return httperr.ErrBusiness("invalid_state")
	}
	complete(ap, now)
	return nil
}

func Cancel(ap *models.Appointment, reason, cancelledBy string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return httperr.ErrValidation("reason_required")
	}

	if err := CanCancel(Status(ap.Status)); err != nil {
		return err
	}

	ap.Status = string(StatusCancelled)
	ap.CancelledAt = &now
	ap.CancellationReason = reason
	ap.CancelledBy = cancelledBy
	return nil
}

// ===============================
// Backjob
// ===============================

// StartBackjob pausa a garantia e coloca o agendamento em backjob.
func StartBackjob(ap *models.Appointment, now time.Time) (warranty.State, error) {
	if Status(ap.Status) != StatusInWarranty {
		return warranty.State{}, httperr.ErrBusiness("invalid_state")
	}

	st := warranty.Pause(ap, now)
	ap.Status = string(StatusBackjob)
	return st, nil
}

// ResumeWarranty devolve o agendamento para in-warranty, restaurando a
// expiração a partir dos dias guardados quando havia pausa.
// Agendamentos já encerrados não são reabertos.
func ResumeWarranty(ap *models.Appointment, now time.Time) bool {
	if Status(ap.Status).IsTerminal() {
		return false
	}

	warranty.Resume(ap, now)
	ap.Status = string(StatusInWarranty)
	return true
}

// Reschedule move um agendamento em backjob para nova data/slot.
// A pausa da garantia continua até o serviço ser finalizado de novo.
func Reschedule(ap *models.Appointment, date time.Time, availabilityID uint) error {
	if Status(ap.Status) != StatusBackjob {
		return httperr.ErrBusiness("invalid_state")
	}

	ap.ScheduledDate = date
	ap.AvailabilityID = availabilityID
	ap.Status = string(StatusScheduled)
	return nil
}
