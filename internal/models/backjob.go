package models

import (
	"time"

	"gorm.io/datatypes"
)

type BackjobApplication struct {
	ID uint `gorm:"primaryKey" json:"id"`

	AppointmentID uint        `gorm:"index" json:"appointment_id"`
	Appointment   Appointment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	CustomerID uint `gorm:"index" json:"customer_id"`
	ProviderID uint `gorm:"index" json:"provider_id"`

	Status string `gorm:"size:30;index;default:'approved'" json:"status"`

	Reason   string         `gorm:"type:text;not null" json:"reason"`
	Evidence datatypes.JSON `json:"evidence"`

	ProviderDisputeReason   string         `gorm:"type:text" json:"provider_dispute_reason"`
	ProviderDisputeEvidence datatypes.JSON `json:"provider_dispute_evidence"`

	CustomerCancellationReason string `gorm:"type:text" json:"customer_cancellation_reason"`
	AdminNotes                 string `gorm:"type:text" json:"admin_notes"`

	ResolvedAt *time.Time `json:"resolved_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
