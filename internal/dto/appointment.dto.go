package dto

import (
	"time"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/warranty"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

type WarrantyDTO struct {
	State         string     `json:"state"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	RemainingDays *int       `json:"remaining_days,omitempty"`
	PausedAt      *time.Time `json:"paused_at,omitempty"`
}

type AppointmentDTO struct {
	ID             uint      `json:"id"`
	CustomerID     uint      `json:"customer_id"`
	ProviderID     uint      `json:"provider_id"`
	ServiceID      uint      `json:"service_id"`
	AvailabilityID uint      `json:"availability_id"`
	Status         string    `json:"status"`
	ScheduledDate  time.Time `json:"scheduled_date"`

	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CancellationReason string `json:"cancellation_reason,omitempty"`
	CancelledBy        string `json:"cancelled_by,omitempty"`

	WarrantyDays int         `json:"warranty_days"`
	Warranty     WarrantyDTO `json:"warranty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewWarranty(st warranty.State) WarrantyDTO {
	out := WarrantyDTO{State: string(st.Kind)}

	switch st.Kind {
	case warranty.KindActive:
		exp := st.ExpiresAt
		out.ExpiresAt = &exp
	case warranty.KindExpired:
		exp := st.ExpiresAt
		zero := 0
		out.ExpiresAt = &exp
		out.RemainingDays = &zero
	case warranty.KindPaused:
		days := st.RemainingDays
		at := st.PausedAt
		out.RemainingDays = &days
		out.PausedAt = &at
	}
	return out
}

func NewAppointment(ap *models.Appointment, now time.Time) AppointmentDTO {
	w := NewWarranty(warranty.Of(ap, now))
	if w.ExpiresAt != nil && w.State == string(warranty.KindActive) {
		days := warranty.RemainingDays(*w.ExpiresAt, now)
		w.RemainingDays = &days
	}

	return AppointmentDTO{
		ID:                 ap.ID,
		CustomerID:         ap.CustomerID,
		ProviderID:         ap.ProviderID,
		ServiceID:          ap.ServiceID,
		AvailabilityID:     ap.AvailabilityID,
		Status:             ap.Status,
		ScheduledDate:      ap.ScheduledDate,
		FinishedAt:         ap.FinishedAt,
		CompletedAt:        ap.CompletedAt,
		CancelledAt:        ap.CancelledAt,
		CancellationReason: ap.CancellationReason,
		CancelledBy:        ap.CancelledBy,
		WarrantyDays:       ap.WarrantyDays,
		Warranty:           w,
		CreatedAt:          ap.CreatedAt,
		UpdatedAt:          ap.UpdatedAt,
	}
}

func NewAppointments(items []models.Appointment, now time.Time) []AppointmentDTO {
	out := make([]AppointmentDTO, 0, len(items))
	for i := range items {
		out = append(out, NewAppointment(&items[i], now))
	}
	return out
}
