package models

import "time"

type Service struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ProviderID uint `gorm:"index" json:"provider_id"`
	Provider   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	Name         string  `gorm:"size:100;not null" json:"name"`
	Description  string  `gorm:"type:text" json:"description"`
	Price        float64 `json:"price"`
	WarrantyDays int     `gorm:"not null;default:0" json:"warranty_days"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
