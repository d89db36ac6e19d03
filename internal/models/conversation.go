package models

import "time"

type Conversation struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CustomerID uint `gorm:"uniqueIndex:ux_conversation_pair" json:"customer_id"`
	Customer   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	ProviderID uint `gorm:"uniqueIndex:ux_conversation_pair" json:"provider_id"`
	Provider   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	Status          string     `gorm:"size:20;index;default:'active'" json:"status"`
	WarrantyExpires *time.Time `json:"warranty_expires"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ConversationID uint         `gorm:"index" json:"conversation_id"`
	Conversation   Conversation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	SenderID uint   `json:"sender_id"`
	Body     string `gorm:"type:text;not null" json:"body"`

	CreatedAt time.Time `json:"created_at"`
}
