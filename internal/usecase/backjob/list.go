package backjob

import (
	"context"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/actor"
	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/backjob"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

type ListBackjobs struct {
	repo domain.Repository
}

func NewListBackjobs(repo domain.Repository) *ListBackjobs {
	return &ListBackjobs{repo: repo}
}

func (uc *ListBackjobs) Execute(
	ctx context.Context,
	a actor.Actor,
	filter domain.ListFilter,
) ([]models.BackjobApplication, int64, error) {

	if err := requireAdmin(a); err != nil {
		return nil, 0, err
	}
	if filter.Status != "" {
		if _, err := domain.ParseStatus(filter.Status); err != nil {
			return nil, 0, err
		}
	}
	return uc.repo.ListBackjobs(ctx, filter)
}

type GetBackjob struct {
	repo domain.Repository
}

func NewGetBackjob(repo domain.Repository) *GetBackjob {
	return &GetBackjob{repo: repo}
}

func (uc *GetBackjob) Execute(
	ctx context.Context,
	a actor.Actor,
	backjobID uint,
) (*models.BackjobApplication, error) {

	bj, err := uc.repo.GetBackjob(ctx, backjobID)
	if err != nil {
		return nil, err
	}

	switch {
	case a.IsAdmin():
	case a.IsCustomer() && bj.CustomerID == a.UserID:
	case a.IsProvider() && bj.ProviderID == a.UserID:
	default:
		return nil, httperr.ErrForbidden("not_appointment_party")
	}
	return bj, nil
}
