package appointment

import "github.com/BruksfildServices01/service-marketplace/internal/httperr"

// ===============================
// Appointment Status
// ===============================

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusOnTheWay   Status = "On the Way"
	StatusInProgress Status = "in-progress"
	StatusFinished   Status = "finished"
	StatusInWarranty Status = "in-warranty"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusBackjob    Status = "backjob"
	StatusNoShow     Status = "no-show"
)

// ordem da cadeia operacional; avançar pode pular etapas
var chain = map[Status]int{
	StatusScheduled:  0,
	StatusConfirmed:  1,
	StatusOnTheWay:   2,
	StatusInProgress: 3,
	StatusFinished:   4,
	StatusInWarranty: 5,
	StatusCompleted:  6,
}

// ParseStatus compara de forma case-sensitive com a allow-list.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusScheduled, StatusConfirmed, StatusOnTheWay, StatusInProgress,
		StatusFinished, StatusInWarranty, StatusCompleted, StatusCancelled,
		StatusBackjob, StatusNoShow:
		return st, nil
	}
	return "", httperr.ErrValidation("invalid_status")
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// AllowsMessaging: qualquer status operacional libera a conversa.
func (s Status) AllowsMessaging() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusOnTheWay, StatusInProgress,
		StatusFinished, StatusInWarranty, StatusBackjob:
		return true
	}
	return false
}

// TriggersConversationHook marks the statuses after which message access
// must be recomputed right away.
func (s Status) TriggersConversationHook() bool {
	switch s {
	case StatusFinished, StatusInWarranty, StatusCompleted:
		return true
	}
	return false
}

// ===============================
// Validations
// ===============================

// CanTransition valida mudanças feitas pelo update de status.
// backjob só entra via solicitação de garantia e só volta a scheduled via reagendamento.
func CanTransition(from, to Status) error {
	if from.IsTerminal() {
		return httperr.ErrBusiness("invalid_state")
	}

	switch to {
	case StatusCancelled:
		return nil
	case StatusNoShow:
		if from == StatusScheduled || from == StatusConfirmed || from == StatusOnTheWay {
			return nil
		}
		return httperr.ErrBusiness("invalid_state")
	case StatusBackjob:
		return httperr.ErrBusiness("invalid_state")
	}

	if from == StatusBackjob {
		if to == StatusCompleted {
			return nil
		}
		return httperr.ErrBusiness("invalid_state")
	}

	fromIdx, ok1 := chain[from]
	toIdx, ok2 := chain[to]
	if !ok1 || !ok2 || toIdx <= fromIdx {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

func CanCancel(current Status) error {
	return CanTransition(current, StatusCancelled)
}

func CanComplete(current Status) error {
	return CanTransition(current, StatusCompleted)
}

func InitialStatus() Status {
	return StatusScheduled
}
