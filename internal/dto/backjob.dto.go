package dto

import (
	"time"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/backjob"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

type BackjobDTO struct {
	ID            uint   `json:"id"`
	AppointmentID uint   `json:"appointment_id"`
	CustomerID    uint   `json:"customer_id"`
	ProviderID    uint   `json:"provider_id"`
	Status        string `json:"status"`

	Reason   string           `json:"reason"`
	Evidence backjob.Evidence `json:"evidence"`

	ProviderDisputeReason   string            `json:"provider_dispute_reason,omitempty"`
	ProviderDisputeEvidence *backjob.Evidence `json:"provider_dispute_evidence,omitempty"`

	CustomerCancellationReason string `json:"customer_cancellation_reason,omitempty"`
	AdminNotes                 string `json:"admin_notes,omitempty"`

	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func NewBackjob(bj *models.BackjobApplication) BackjobDTO {
	out := BackjobDTO{
		ID:                         bj.ID,
		AppointmentID:              bj.AppointmentID,
		CustomerID:                 bj.CustomerID,
		ProviderID:                 bj.ProviderID,
		Status:                     bj.Status,
		Reason:                     bj.Reason,
		Evidence:                   backjob.DecodeEvidence(bj.Evidence),
		ProviderDisputeReason:      bj.ProviderDisputeReason,
		CustomerCancellationReason: bj.CustomerCancellationReason,
		AdminNotes:                 bj.AdminNotes,
		ResolvedAt:                 bj.ResolvedAt,
		CreatedAt:                  bj.CreatedAt,
		UpdatedAt:                  bj.UpdatedAt,
	}
	if len(bj.ProviderDisputeEvidence) > 0 {
		ev := backjob.DecodeEvidence(bj.ProviderDisputeEvidence)
		out.ProviderDisputeEvidence = &ev
	}
	return out
}

func NewBackjobs(items []models.BackjobApplication) []BackjobDTO {
	out := make([]BackjobDTO, 0, len(items))
	for i := range items {
		out = append(out, NewBackjob(&items[i]))
	}
	return out
}
