package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	"github.com/BruksfildServices01/service-marketplace/internal/domain/backjob"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

// --------------------------------------------------
// Catalog
// --------------------------------------------------

func (r *Store) GetService(
	ctx context.Context,
	id uint,
) (*models.Service, error) {

	var svc models.Service
	if err := r.conn(ctx).First(&svc, id).Error; err != nil {
		return nil, notFound(err, "service_not_found")
	}
	return &svc, nil
}

func (r *Store) GetAvailability(
	ctx context.Context,
	id uint,
) (*models.Availability, error) {

	var av models.Availability
	if err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&av, id).Error; err != nil {
		return nil, notFound(err, "availability_not_found")
	}
	return &av, nil
}

func (r *Store) SetAvailabilityBooked(
	ctx context.Context,
	id uint,
	booked bool,
) error {
	return r.conn(ctx).
		Model(&models.Availability{}).
		Where("id = ?", id).
		Update("is_booked", booked).Error
}

// --------------------------------------------------
// Appointment
// --------------------------------------------------

func (r *Store) GetAppointment(
	ctx context.Context,
	id uint,
) (*models.Appointment, error) {

	var ap models.Appointment
	if err := r.conn(ctx).First(&ap, id).Error; err != nil {
		return nil, notFound(err, "appointment_not_found")
	}
	return &ap, nil
}

func (r *Store) GetAppointmentForUpdate(
	ctx context.Context,
	id uint,
) (*models.Appointment, error) {

	var ap models.Appointment
	if err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&ap, id).Error; err != nil {
		return nil, notFound(err, "appointment_not_found")
	}
	return &ap, nil
}

func (r *Store) CreateAppointment(
	ctx context.Context,
	ap *models.Appointment,
) error {
	return r.conn(ctx).Create(ap).Error
}

func (r *Store) UpdateAppointment(
	ctx context.Context,
	ap *models.Appointment,
) error {
	return r.conn(ctx).Omit(clause.Associations).Save(ap).Error
}

func (r *Store) ListAppointments(
	ctx context.Context,
	filter domain.ListFilter,
) ([]models.Appointment, int64, error) {

	q := r.conn(ctx).Model(&models.Appointment{})

	if filter.CustomerID != 0 {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.ProviderID != 0 {
		q = q.Where("provider_id = ?", filter.ProviderID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Appointment
	if err := q.
		Order("scheduled_date DESC, id DESC").
		Limit(clampLimit(filter.Limit, 50, 200)).
		Offset(filter.Offset).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *Store) FindScheduleConflict(
	ctx context.Context,
	providerID uint,
	availabilityID uint,
	date time.Time,
	excludeID uint,
) (*models.Appointment, error) {

	q := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider_id = ? AND id <> ?", providerID, excludeID).
		Where("status NOT IN ?", []string{
			string(domain.StatusCompleted),
			string(domain.StatusCancelled),
			string(domain.StatusNoShow),
		})

	if availabilityID != 0 {
		q = q.Where("(availability_id = ? OR scheduled_date = ?)", availabilityID, date)
	} else {
		q = q.Where("scheduled_date = ?", date)
	}

	var ap models.Appointment
	err := q.Order("id").Take(&ap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ap, nil
}

func (r *Store) ListExpiredWarranties(
	ctx context.Context,
	now time.Time,
	afterID uint,
	limit int,
) ([]models.Appointment, error) {

	var items []models.Appointment
	err := r.conn(ctx).
		Where("status IN ?", []string{
			string(domain.StatusInWarranty),
			string(domain.StatusBackjob),
		}).
		Where("warranty_expires_at IS NOT NULL AND warranty_expires_at < ?", now).
		Where("(warranty_paused_at IS NULL OR warranty_remaining_days IS NULL)").
		Where("id > ?", afterID).
		Order("id").
		Limit(clampLimit(limit, 100, 500)).
		Find(&items).Error

	return items, err
}

// --------------------------------------------------
// Backjob side effects
// --------------------------------------------------

func (r *Store) CompleteApprovedBackjobs(
	ctx context.Context,
	appointmentID uint,
	now time.Time,
) (int64, error) {

	res := r.conn(ctx).
		Model(&models.BackjobApplication{}).
		Where("appointment_id = ? AND status = ?", appointmentID, string(backjob.StatusApproved)).
		Updates(map[string]any{
			"status":      string(backjob.StatusCompleted),
			"resolved_at": now,
		})
	return res.RowsAffected, res.Error
}

func (r *Store) CancelOpenBackjobs(
	ctx context.Context,
	appointmentID uint,
	note string,
	now time.Time,
) (int64, error) {

	res := r.conn(ctx).
		Model(&models.BackjobApplication{}).
		Where("appointment_id = ? AND status IN ?", appointmentID, []string{
			string(backjob.StatusApproved),
			string(backjob.StatusPending),
		}).
		Updates(map[string]any{
			"status":      string(backjob.StatusCancelledByAdmin),
			"admin_notes": note,
			"resolved_at": now,
		})
	return res.RowsAffected, res.Error
}

var _ domain.Repository = (*Store)(nil)
