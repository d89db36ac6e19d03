package appointment

import (
	"time"

	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

// CheckSlot valida que o slot é do prestador e está livre.
// keepID permite reaproveitar o slot já reservado pelo próprio agendamento.
func CheckSlot(av *models.Availability, providerID uint, keepID uint) error {
	if av.ProviderID != providerID {
		return httperr.ErrValidation("availability_not_found")
	}
	if av.IsBooked && av.ID != keepID {
		return httperr.ErrConflict("availability_unavailable", map[string]any{
			"availability_id": av.ID,
		})
	}
	return nil
}

// SlotStart combina a data do slot com o horário inicial (HH:MM).
func SlotStart(av *models.Availability, loc *time.Location) (time.Time, error) {
	hm, err := time.Parse("15:04", av.StartTime)
	if err != nil {
		return time.Time{}, httperr.ErrValidation("invalid_date_or_time")
	}

	d := av.Date
	return time.Date(d.Year(), d.Month(), d.Day(), hm.Hour(), hm.Minute(), 0, 0, loc), nil
}
