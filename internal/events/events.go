// Package events define os eventos de domínio gravados no outbox junto
// com a transição que os originou.
package events

import (
	"context"
	"encoding/json"
	"time"
)

const (
	AppointmentCreated       = "appointment.created"
	AppointmentStatusChanged = "appointment.status_changed"
	AppointmentCancelled     = "appointment.cancelled"
	AppointmentCompleted     = "appointment.completed"
	AppointmentRescheduled   = "appointment.rescheduled"

	BackjobApplied   = "backjob.applied"
	BackjobDisputed  = "backjob.disputed"
	BackjobCancelled = "backjob.cancelled"
	BackjobResolved  = "backjob.resolved"

	ConversationStatusChanged = "conversation.status_changed"
	MessageSent               = "message.sent"
)

type Event interface {
	EventName() string
	Aggregate() (string, uint)
	Occurred() time.Time
}

type Base struct {
	OccurredAt time.Time `json:"occurred_at"`
}

func (b Base) Occurred() time.Time { return b.OccurredAt }

// Outbox é implementado pelo repositório; Append usa a transação do ctx.
type Outbox interface {
	AppendEvents(ctx context.Context, evs ...Event) error
}

// Envelope é o que o relay entrega para os assinantes.
type Envelope struct {
	ID            string
	Type          string
	AggregateType string
	AggregateID   uint
	Payload       json.RawMessage
	Attempt       int
}

func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// ======================================================
// APPOINTMENT
// ======================================================

type AppointmentParties struct {
	AppointmentID uint `json:"appointment_id"`
	CustomerID    uint `json:"customer_id"`
	ProviderID    uint `json:"provider_id"`
}

func (p AppointmentParties) Aggregate() (string, uint) {
	return "appointment", p.AppointmentID
}

type AppointmentCreatedEvent struct {
	Base
	AppointmentParties
	ScheduledDate time.Time `json:"scheduled_date"`
	ServiceID     uint      `json:"service_id"`
}

func (AppointmentCreatedEvent) EventName() string { return AppointmentCreated }

type AppointmentStatusChangedEvent struct {
	Base
	AppointmentParties
	From              string     `json:"from"`
	To                string     `json:"to"`
	WarrantyExpiresAt *time.Time `json:"warranty_expires_at,omitempty"`
}

func (AppointmentStatusChangedEvent) EventName() string { return AppointmentStatusChanged }

type AppointmentCancelledEvent struct {
	Base
	AppointmentParties
	Reason      string `json:"reason"`
	CancelledBy string `json:"cancelled_by"`
}

func (AppointmentCancelledEvent) EventName() string { return AppointmentCancelled }

type AppointmentCompletedEvent struct {
	Base
	AppointmentParties
	// manual, warranty_expired, admin
	Trigger string `json:"trigger"`
}

func (AppointmentCompletedEvent) EventName() string { return AppointmentCompleted }

type AppointmentRescheduledEvent struct {
	Base
	AppointmentParties
	BackjobID      uint      `json:"backjob_id"`
	ScheduledDate  time.Time `json:"scheduled_date"`
	AvailabilityID uint      `json:"availability_id"`
}

func (AppointmentRescheduledEvent) EventName() string { return AppointmentRescheduled }

// ======================================================
// BACKJOB
// ======================================================

type BackjobParties struct {
	BackjobID     uint `json:"backjob_id"`
	AppointmentID uint `json:"appointment_id"`
	CustomerID    uint `json:"customer_id"`
	ProviderID    uint `json:"provider_id"`
}

func (p BackjobParties) Aggregate() (string, uint) {
	return "backjob", p.BackjobID
}

type BackjobAppliedEvent struct {
	Base
	BackjobParties
	Reason        string `json:"reason"`
	RemainingDays int    `json:"remaining_days"`
}

func (BackjobAppliedEvent) EventName() string { return BackjobApplied }

type BackjobDisputedEvent struct {
	Base
	BackjobParties
	Reason            string     `json:"reason"`
	WarrantyExpiresAt *time.Time `json:"warranty_expires_at,omitempty"`
}

func (BackjobDisputedEvent) EventName() string { return BackjobDisputed }

type BackjobCancelledEvent struct {
	Base
	BackjobParties
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (BackjobCancelledEvent) EventName() string { return BackjobCancelled }

type BackjobResolvedEvent struct {
	Base
	BackjobParties
	Action string `json:"action"`
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

func (BackjobResolvedEvent) EventName() string { return BackjobResolved }

// ======================================================
// CONVERSATION
// ======================================================

type ConversationStatusChangedEvent struct {
	Base
	ConversationID uint   `json:"conversation_id"`
	CustomerID     uint   `json:"customer_id"`
	ProviderID     uint   `json:"provider_id"`
	From           string `json:"from"`
	To             string `json:"to"`
}

func (ConversationStatusChangedEvent) EventName() string { return ConversationStatusChanged }

func (e ConversationStatusChangedEvent) Aggregate() (string, uint) {
	return "conversation", e.ConversationID
}

type MessageSentEvent struct {
	Base
	ConversationID uint      `json:"conversation_id"`
	MessageID      uint      `json:"message_id"`
	SenderID       uint      `json:"sender_id"`
	RecipientID    uint      `json:"recipient_id"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sent_at"`
}

func (MessageSentEvent) EventName() string { return MessageSent }

func (e MessageSentEvent) Aggregate() (string, uint) {
	return "conversation", e.ConversationID
}
