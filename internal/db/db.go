package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BruksfildServices01/service-marketplace/internal/config"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

// ApprovedBackjobIndex garante no banco no máximo um backjob approved por agendamento.
const ApprovedBackjobIndex = "ux_backjob_one_approved"

func NewDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if !cfg.IsProduction() {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DBUrl), &gorm.Config{
		PrepareStmt: true,
		Logger:      gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("database ready")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.Availability{},
		&models.Appointment{},
		&models.BackjobApplication{},
		&models.Conversation{},
		&models.Message{},
		&models.AuditLog{},
		&models.OutboxEvent{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// AutoMigrate não cria índice parcial
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS ` + ApprovedBackjobIndex + `
		ON backjob_applications (appointment_id)
		WHERE status = 'approved'
	`).Error; err != nil {
		return fmt.Errorf("create %s: %w", ApprovedBackjobIndex, err)
	}

	return nil
}
