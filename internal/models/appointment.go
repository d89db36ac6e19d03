package models

import "time"

type Appointment struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CustomerID uint `gorm:"index" json:"customer_id"`
	Customer   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	ProviderID uint `gorm:"index" json:"provider_id"`
	Provider   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	ServiceID uint    `json:"service_id"`
	Service   Service `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	AvailabilityID uint         `json:"availability_id"`
	Availability   Availability `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	Status        string    `gorm:"size:20;index;default:'scheduled'" json:"status"`
	ScheduledDate time.Time `json:"scheduled_date"`

	FinishedAt  *time.Time `json:"finished_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at"`

	CancellationReason string `gorm:"size:500" json:"cancellation_reason"`
	CancelledBy        string `gorm:"size:20" json:"cancelled_by"`

	// snapshot do serviço no momento da reserva
	WarrantyDays int `gorm:"not null;default:0" json:"warranty_days"`

	WarrantyExpiresAt     *time.Time `gorm:"index" json:"warranty_expires_at"`
	WarrantyPausedAt      *time.Time `json:"warranty_paused_at"`
	WarrantyRemainingDays *int       `json:"warranty_remaining_days"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
