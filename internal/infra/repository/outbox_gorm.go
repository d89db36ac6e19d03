package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
	"github.com/BruksfildServices01/service-marketplace/internal/timezone"
)

// --------------------------------------------------
// Outbox (escrita dentro da transação do use case)
// --------------------------------------------------

func (r *Store) AppendEvents(ctx context.Context, evs ...events.Event) error {
	if len(evs) == 0 {
		return nil
	}

	rows := make([]models.OutboxEvent, 0, len(evs))
	for _, ev := range evs {
		row, err := outboxRow(ev)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	return r.conn(ctx).Create(&rows).Error
}

// outboxRow usa o instante do evento (relógio do use case) como available_at.
func outboxRow(ev events.Event) (models.OutboxEvent, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("marshal %s: %w", ev.EventName(), err)
	}

	availableAt := ev.Occurred()
	if availableAt.IsZero() {
		availableAt = timezone.Now()
	}

	aggType, aggID := ev.Aggregate()
	return models.OutboxEvent{
		EventID:       uuid.NewString(),
		EventType:     ev.EventName(),
		AggregateType: aggType,
		AggregateID:   aggID,
		Payload:       datatypes.JSON(payload),
		Status:        models.OutboxPending,
		AvailableAt:   availableAt,
	}, nil
}

// --------------------------------------------------
// Outbox (relay)
// --------------------------------------------------

// ClaimPendingEvents trava as linhas (SKIP LOCKED) até o fim da transação,
// então réplicas diferentes não entregam o mesmo evento.
func (r *Store) ClaimPendingEvents(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]models.OutboxEvent, error) {

	var rows []models.OutboxEvent
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND available_at <= ?", models.OutboxPending, now).
		Order("id").
		Limit(clampLimit(limit, 50, 500)).
		Find(&rows).Error
	return rows, err
}

func (r *Store) MarkEventPublished(
	ctx context.Context,
	id uint,
	now time.Time,
) error {
	return r.conn(ctx).
		Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       models.OutboxPublished,
			"published_at": now,
			"attempts":     gorm.Expr("attempts + 1"),
		}).Error
}

func (r *Store) MarkEventRetry(
	ctx context.Context,
	id uint,
	lastErr string,
	availableAt time.Time,
	failed bool,
) error {

	status := models.OutboxPending
	if failed {
		status = models.OutboxFailed
	}

	return r.conn(ctx).
		Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       status,
			"last_error":   lastErr,
			"available_at": availableAt,
			"attempts":     gorm.Expr("attempts + 1"),
		}).Error
}

var _ events.Outbox = (*Store)(nil)
