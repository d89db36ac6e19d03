package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	OutboxPending   = "pending"
	OutboxPublished = "published"
	OutboxFailed    = "failed"
)

type OutboxEvent struct {
	ID uint `gorm:"primaryKey" json:"id"`

	EventID       string `gorm:"size:36;uniqueIndex" json:"event_id"`
	EventType     string `gorm:"size:60;index" json:"event_type"`
	AggregateType string `gorm:"size:30" json:"aggregate_type"`
	AggregateID   uint   `json:"aggregate_id"`

	Payload datatypes.JSON `json:"payload"`

	Status      string     `gorm:"size:20;index:ix_outbox_pending,priority:1;default:'pending'" json:"status"`
	AvailableAt time.Time  `gorm:"index:ix_outbox_pending,priority:2" json:"available_at"`
	Attempts    int        `gorm:"default:0" json:"attempts"`
	LastError   string     `gorm:"type:text" json:"last_error"`
	PublishedAt *time.Time `json:"published_at"`

	CreatedAt time.Time `json:"created_at"`
}
