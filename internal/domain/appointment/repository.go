package appointment

import (
	"context"
	"time"

	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

// ListFilter restringe a listagem ao participante (customer ou provider).
type ListFilter struct {
	CustomerID uint
	ProviderID uint
	Status     string
	Limit      int
	Offset     int
}

type Repository interface {
	// Transaction executa fn atomicamente. Métodos chamados com o ctx
	// recebido por fn participam da mesma transação.
	Transaction(
		ctx context.Context,
		fn func(ctx context.Context) error,
	) error

	// -------- Catalog --------

	GetService(
		ctx context.Context,
		id uint,
	) (*models.Service, error)

	GetAvailability(
		ctx context.Context,
		id uint,
	) (*models.Availability, error)

	SetAvailabilityBooked(
		ctx context.Context,
		id uint,
		booked bool,
	) error

	// -------- Appointment --------

	GetAppointment(
		ctx context.Context,
		id uint,
	) (*models.Appointment, error)

	// GetAppointmentForUpdate trava a linha até o fim da transação.
	GetAppointmentForUpdate(
		ctx context.Context,
		id uint,
	) (*models.Appointment, error)

	CreateAppointment(
		ctx context.Context,
		ap *models.Appointment,
	) error

	UpdateAppointment(
		ctx context.Context,
		ap *models.Appointment,
	) error

	ListAppointments(
		ctx context.Context,
		filter ListFilter,
	) ([]models.Appointment, int64, error)

	// FindScheduleConflict devolve o agendamento ativo do prestador que
	// ocupa o mesmo slot ou horário, ou nil.
	FindScheduleConflict(
		ctx context.Context,
		providerID uint,
		availabilityID uint,
		date time.Time,
		excludeID uint,
	) (*models.Appointment, error)

	// ListExpiredWarranties: in-warranty/backjob, expiração no passado, sem pausa,
	// com id > afterID em ordem de id.
	ListExpiredWarranties(
		ctx context.Context,
		now time.Time,
		afterID uint,
		limit int,
	) ([]models.Appointment, error)

	// -------- Backjob side effects --------

	// CompleteApprovedBackjobs marca como completed os backjobs approved do agendamento.
	CompleteApprovedBackjobs(
		ctx context.Context,
		appointmentID uint,
		now time.Time,
	) (int64, error)

	// CancelOpenBackjobs cancela (cancelled-by-admin) os approved/pending do agendamento.
	CancelOpenBackjobs(
		ctx context.Context,
		appointmentID uint,
		note string,
		now time.Time,
	) (int64, error)
}
