package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainAppointment "github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/conversation"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

// --------------------------------------------------
// Conversation
// --------------------------------------------------

func (r *Store) FindConversationByPair(
	ctx context.Context,
	customerID uint,
	providerID uint,
) (*models.Conversation, error) {

	var conv models.Conversation
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ? AND provider_id = ?", customerID, providerID).
		Take(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *Store) GetConversation(
	ctx context.Context,
	id uint,
) (*models.Conversation, error) {

	var conv models.Conversation
	if err := r.conn(ctx).First(&conv, id).Error; err != nil {
		return nil, notFound(err, "conversation_not_found")
	}
	return &conv, nil
}

// CreateConversation é idempotente por par: se outra requisição criou
// primeiro, conv recebe o registro existente.
func (r *Store) CreateConversation(
	ctx context.Context,
	conv *models.Conversation,
) error {

	return r.conn(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}, {Name: "provider_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).
		Create(conv).Error
}

func (r *Store) UpdateConversation(
	ctx context.Context,
	conv *models.Conversation,
) error {
	return r.conn(ctx).Omit(clause.Associations).Save(conv).Error
}

func (r *Store) ListConversationsAfter(
	ctx context.Context,
	afterID uint,
	limit int,
) ([]models.Conversation, error) {

	var items []models.Conversation
	err := r.conn(ctx).
		Where("id > ?", afterID).
		Order("id").
		Limit(clampLimit(limit, 100, 1000)).
		Find(&items).Error
	return items, err
}

func (r *Store) ListConversationsForUser(
	ctx context.Context,
	userID uint,
) ([]models.Conversation, error) {

	var items []models.Conversation
	err := r.conn(ctx).
		Where("customer_id = ? OR provider_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&items).Error
	return items, err
}

// --------------------------------------------------
// Appointments do par
// --------------------------------------------------

func (r *Store) ListPairAppointments(
	ctx context.Context,
	customerID uint,
	providerID uint,
) ([]models.Appointment, error) {

	var items []models.Appointment
	err := r.conn(ctx).
		Where("customer_id = ? AND provider_id = ?", customerID, providerID).
		Where("status <> ?", string(domainAppointment.StatusCancelled)).
		Order("scheduled_date DESC, id DESC").
		Find(&items).Error
	return items, err
}

// --------------------------------------------------
// Message
// --------------------------------------------------

func (r *Store) CreateMessage(
	ctx context.Context,
	msg *models.Message,
) error {
	return r.conn(ctx).Omit(clause.Associations).Create(msg).Error
}

func (r *Store) ListMessages(
	ctx context.Context,
	conversationID uint,
	beforeID uint,
	limit int,
) ([]models.Message, error) {

	q := r.conn(ctx).Where("conversation_id = ?", conversationID)
	if beforeID != 0 {
		q = q.Where("id < ?", beforeID)
	}

	var items []models.Message
	err := q.
		Order("id DESC").
		Limit(clampLimit(limit, 50, 200)).
		Find(&items).Error
	return items, err
}

var _ domain.Repository = (*Store)(nil)
