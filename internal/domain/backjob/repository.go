package backjob

import (
	"context"

	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

type ListFilter struct {
	Status        string
	AppointmentID uint
	Limit         int
	Offset        int
}

type Repository interface {
	Transaction(
		ctx context.Context,
		fn func(ctx context.Context) error,
	) error

	// -------- Backjob --------

	GetBackjob(
		ctx context.Context,
		id uint,
	) (*models.BackjobApplication, error)

	GetBackjobForUpdate(
		ctx context.Context,
		id uint,
	) (*models.BackjobApplication, error)

	// FindApprovedBackjob retorna nil, nil quando não existe.
	FindApprovedBackjob(
		ctx context.Context,
		appointmentID uint,
	) (*models.BackjobApplication, error)

	CreateBackjob(
		ctx context.Context,
		bj *models.BackjobApplication,
	) error

	UpdateBackjob(
		ctx context.Context,
		bj *models.BackjobApplication,
	) error

	ListBackjobs(
		ctx context.Context,
		filter ListFilter,
	) ([]models.BackjobApplication, int64, error)

	// -------- Appointment --------

	GetAppointment(
		ctx context.Context,
		id uint,
	) (*models.Appointment, error)

	GetAppointmentForUpdate(
		ctx context.Context,
		id uint,
	) (*models.Appointment, error)

	UpdateAppointment(
		ctx context.Context,
		ap *models.Appointment,
	) error
}
