package appointment

import (
	"context"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/actor"
	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

type ListAppointments struct {
	repo domain.Repository
}

func NewListAppointments(repo domain.Repository) *ListAppointments {
	return &ListAppointments{repo: repo}
}

// Execute lista só os agendamentos do próprio ator (admin vê todos).
func (uc *ListAppointments) Execute(
	ctx context.Context,
	a actor.Actor,
	filter domain.ListFilter,
) ([]models.Appointment, int64, error) {

	filter.CustomerID, filter.ProviderID = 0, 0
	switch {
	case a.IsCustomer():
		filter.CustomerID = a.UserID
	case a.IsProvider():
		filter.ProviderID = a.UserID
	}

	if filter.Status != "" {
		if _, err := domain.ParseStatus(filter.Status); err != nil {
			return nil, 0, err
		}
	}

	return uc.repo.ListAppointments(ctx, filter)
}

type GetAppointment struct {
	repo domain.Repository
}

func NewGetAppointment(repo domain.Repository) *GetAppointment {
	return &GetAppointment{repo: repo}
}

func (uc *GetAppointment) Execute(
	ctx context.Context,
	a actor.Actor,
	appointmentID uint,
) (*models.Appointment, error) {

	ap, err := uc.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := requireParty(ap, a); err != nil {
		return nil, err
	}
	return ap, nil
}
