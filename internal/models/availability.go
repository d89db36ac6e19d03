package models

import "time"

type Availability struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ProviderID uint `gorm:"index" json:"provider_id"`
	Provider   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	Date      time.Time `gorm:"type:date;index" json:"date"`
	StartTime string    `gorm:"size:5" json:"start_time"`
	EndTime   string    `gorm:"size:5" json:"end_time"`
	IsBooked  bool      `gorm:"default:false" json:"is_booked"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
