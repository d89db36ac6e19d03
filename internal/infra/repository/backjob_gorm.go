package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BruksfildServices01/service-marketplace/internal/db"
	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/backjob"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

// --------------------------------------------------
// Backjob
// --------------------------------------------------

func (r *Store) GetBackjob(
	ctx context.Context,
	id uint,
) (*models.BackjobApplication, error) {

	var bj models.BackjobApplication
	if err := r.conn(ctx).First(&bj, id).Error; err != nil {
		return nil, notFound(err, "backjob_not_found")
	}
	return &bj, nil
}

func (r *Store) GetBackjobForUpdate(
	ctx context.Context,
	id uint,
) (*models.BackjobApplication, error) {

	var bj models.BackjobApplication
	if err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&bj, id).Error; err != nil {
		return nil, notFound(err, "backjob_not_found")
	}
	return &bj, nil
}

func (r *Store) FindApprovedBackjob(
	ctx context.Context,
	appointmentID uint,
) (*models.BackjobApplication, error) {

	var bj models.BackjobApplication
	err := r.conn(ctx).
		Where("appointment_id = ? AND status = ?", appointmentID, string(domain.StatusApproved)).
		Order("id").
		Take(&bj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bj, nil
}

func (r *Store) CreateBackjob(
	ctx context.Context,
	bj *models.BackjobApplication,
) error {

	err := r.conn(ctx).Omit(clause.Associations).Create(bj).Error
	if isUniqueViolation(err, db.ApprovedBackjobIndex) {
		return httperr.ErrConflict("backjob_already_active", map[string]any{
			"appointment_id": bj.AppointmentID,
		})
	}
	return err
}

func (r *Store) UpdateBackjob(
	ctx context.Context,
	bj *models.BackjobApplication,
) error {

	err := r.conn(ctx).Omit(clause.Associations).Save(bj).Error
	if isUniqueViolation(err, db.ApprovedBackjobIndex) {
		return httperr.ErrConflict("backjob_already_active", map[string]any{
			"appointment_id": bj.AppointmentID,
		})
	}
	return err
}

func (r *Store) ListBackjobs(
	ctx context.Context,
	filter domain.ListFilter,
) ([]models.BackjobApplication, int64, error) {

	q := r.conn(ctx).Model(&models.BackjobApplication{})

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.AppointmentID != 0 {
		q = q.Where("appointment_id = ?", filter.AppointmentID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.BackjobApplication
	if err := q.
		Order("id DESC").
		Limit(clampLimit(filter.Limit, 50, 200)).
		Offset(filter.Offset).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

var _ domain.Repository = (*Store)(nil)
