package conversation

import (
	"time"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusClosed   Status = "closed"
)

// New cria a conversa do par já ativa.
func New(customerID, providerID uint, warrantyExpires *time.Time) *models.Conversation {
	conv := &models.Conversation{
		CustomerID: customerID,
		ProviderID: providerID,
		Status:     string(StatusActive),
	}
	if warrantyExpires != nil {
		t := *warrantyExpires
		conv.WarrantyExpires = &t
	}
	return conv
}

// Extend reativa conversas fechadas e só avança warranty_expires.
// Retorna true quando algo mudou.
func Extend(conv *models.Conversation, warrantyExpires *time.Time) bool {
	changed := false

	if Status(conv.Status) == StatusClosed {
		conv.Status = string(StatusActive)
		changed = true
	}

	if ExtendExpiry(conv, warrantyExpires) {
		changed = true
	}
	return changed
}

// ExtendExpiry grava t apenas se for estritamente posterior ao valor atual.
func ExtendExpiry(conv *models.Conversation, t *time.Time) bool {
	if t == nil {
		return false
	}
	if conv.WarrantyExpires != nil && !t.After(*conv.WarrantyExpires) {
		return false
	}
	v := *t
	conv.WarrantyExpires = &v
	return true
}

// MessagingAllowed olha o conjunto de agendamentos do par, não só o mais recente.
func MessagingAllowed(appointments []models.Appointment) (bool, *models.Appointment) {
	for i := range appointments {
		if appointment.Status(appointments[i].Status).AllowsMessaging() {
			return true, &appointments[i]
		}
	}
	return false, nil
}

// Desired devolve o status que a conversa deve ter dado o agregado.
// Conversas arquivadas ficam como estão.
func Desired(conv *models.Conversation, allowed bool) Status {
	current := Status(conv.Status)
	if current == StatusArchived {
		return current
	}
	if allowed {
		return StatusActive
	}
	return StatusClosed
}

func IsParticipant(conv *models.Conversation, userID uint) bool {
	return conv.CustomerID == userID || conv.ProviderID == userID
}
