package backjob

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"

	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
)

type Status string

const (
	StatusPending             Status = "pending"
	StatusApproved            Status = "approved"
	StatusDisputed            Status = "disputed"
	StatusCompleted           Status = "completed"
	StatusCancelledByAdmin    Status = "cancelled-by-admin"
	StatusCancelledByUser     Status = "cancelled-by-user"
	StatusCancelledByCustomer Status = "cancelled-by-customer"
)

// SystemExpiryNote vai em admin_notes quando o sweep cancela um backjob.
const SystemExpiryNote = "system: warranty expired"

// AppointmentCancelledNote vai em admin_notes quando o agendamento é cancelado
// com um backjob em aberto.
const AppointmentCancelledNote = "system: appointment cancelled"

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusDisputed, StatusCompleted,
		StatusCancelledByAdmin, StatusCancelledByUser, StatusCancelledByCustomer:
		return st, nil
	}
	return "", httperr.ErrValidation("invalid_status")
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelledByAdmin, StatusCancelledByUser, StatusCancelledByCustomer:
		return true
	}
	return false
}

// ===============================
// Guards
// ===============================

func CanDispute(s Status) error {
	if s == StatusApproved || s == StatusPending {
		return nil
	}
	return httperr.ErrBusiness("invalid_state")
}

func CanCustomerCancel(s Status) error {
	if s == StatusApproved || s == StatusPending || s == StatusDisputed {
		return nil
	}
	return httperr.ErrBusiness("invalid_state")
}

func CanResolveDispute(s Status) error {
	if s == StatusDisputed {
		return nil
	}
	return httperr.ErrBusiness("invalid_state")
}

func CanAdminUpdate(s Status) error {
	if s.IsTerminal() {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

// ===============================
// Admin actions
// ===============================

type AdminAction string

const (
	ActionApprove       AdminAction = "approve"
	ActionCancelByAdmin AdminAction = "cancel-by-admin"
	ActionCancelByUser  AdminAction = "cancel-by-user"
)

func ParseAdminAction(s string) (AdminAction, error) {
	switch a := AdminAction(s); a {
	case ActionApprove, ActionCancelByAdmin, ActionCancelByUser:
		return a, nil
	}
	return "", httperr.ErrValidation("invalid_admin_action")
}

// ===============================
// Evidence
// ===============================

// Evidence: arquivos enviados e/ou descrição textual.
type Evidence struct {
	Description string   `json:"description,omitempty"`
	Files       []string `json:"files,omitempty"`
}

func (e Evidence) IsEmpty() bool {
	return strings.TrimSpace(e.Description) == "" && len(e.Files) == 0
}

func (e Evidence) JSON() datatypes.JSON {
	if e.IsEmpty() {
		return nil
	}
	b, _ := json.Marshal(e)
	return datatypes.JSON(b)
}

func DecodeEvidence(raw datatypes.JSON) Evidence {
	var e Evidence
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &e)
	}
	return e
}

// ValidateApplication exige motivo e alguma evidência.
func ValidateApplication(reason string, ev Evidence) error {
	if strings.TrimSpace(reason) == "" {
		return httperr.ErrValidation("reason_required")
	}
	if ev.IsEmpty() {
		return httperr.ErrValidation("evidence_required")
	}
	return nil
}
