package dto

import (
	"time"

	"github.com/BruksfildServices01/service-marketplace/internal/models"
	"github.com/BruksfildServices01/service-marketplace/internal/usecase/conversation"
)

type ConversationDTO struct {
	ID              uint       `json:"id"`
	CustomerID      uint       `json:"customer_id"`
	ProviderID      uint       `json:"provider_id"`
	Status          string     `json:"status"`
	WarrantyExpires *time.Time `json:"warranty_expires,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ConversationStatusDTO é a resposta do checkAppointmentStatus.
type ConversationStatusDTO struct {
	Conversation ConversationDTO `json:"conversation"`
	conversation.CheckResult
}

type MessageDTO struct {
	ID             uint      `json:"id"`
	ConversationID uint      `json:"conversation_id"`
	SenderID       uint      `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewConversation(conv *models.Conversation) ConversationDTO {
	return ConversationDTO{
		ID:              conv.ID,
		CustomerID:      conv.CustomerID,
		ProviderID:      conv.ProviderID,
		Status:          conv.Status,
		WarrantyExpires: conv.WarrantyExpires,
		UpdatedAt:       conv.UpdatedAt,
	}
}

func NewConversations(items []models.Conversation) []ConversationDTO {
	out := make([]ConversationDTO, 0, len(items))
	for i := range items {
		out = append(out, NewConversation(&items[i]))
	}
	return out
}

func NewMessage(m *models.Message) MessageDTO {
	return MessageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
	}
}

func NewMessages(items []models.Message) []MessageDTO {
	out := make([]MessageDTO, 0, len(items))
	for i := range items {
		out = append(out, NewMessage(&items[i]))
	}
	return out
}
