package conversation

import (
	"context"
	"time"

	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

type Repository interface {
	Transaction(
		ctx context.Context,
		fn func(ctx context.Context) error,
	) error

	// -------- Conversation --------

	// FindConversationByPair retorna nil, nil quando o par ainda não conversou.
	FindConversationByPair(
		ctx context.Context,
		customerID uint,
		providerID uint,
	) (*models.Conversation, error)

	GetConversation(
		ctx context.Context,
		id uint,
	) (*models.Conversation, error)

	CreateConversation(
		ctx context.Context,
		conv *models.Conversation,
	) error

	UpdateConversation(
		ctx context.Context,
		conv *models.Conversation,
	) error

	// ListConversationsAfter pagina por id crescente (usado pelo reconciler).
	ListConversationsAfter(
		ctx context.Context,
		afterID uint,
		limit int,
	) ([]models.Conversation, error)

	ListConversationsForUser(
		ctx context.Context,
		userID uint,
	) ([]models.Conversation, error)

	// -------- Appointment --------

	// ListPairAppointments: não cancelados, mais recentes primeiro.
	ListPairAppointments(
		ctx context.Context,
		customerID uint,
		providerID uint,
	) ([]models.Appointment, error)

	GetAppointmentForUpdate(
		ctx context.Context,
		id uint,
	) (*models.Appointment, error)

	UpdateAppointment(
		ctx context.Context,
		ap *models.Appointment,
	) error

	CompleteApprovedBackjobs(
		ctx context.Context,
		appointmentID uint,
		now time.Time,
	) (int64, error)

	// -------- Message --------

	CreateMessage(
		ctx context.Context,
		msg *models.Message,
	) error

	ListMessages(
		ctx context.Context,
		conversationID uint,
		beforeID uint,
		limit int,
	) ([]models.Message, error)
}
