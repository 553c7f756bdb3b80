package repository

import (
	"context"
	"time"

	"options-income-screener/internal/entity"

	"gorm.io/gorm"
)

// MonitoringAlertRepository defines the interface for monitoring alert data operations.
type MonitoringAlertRepository interface {
	Create(ctx context.Context, alert *entity.MonitoringAlert) error
	CountRecent(ctx context.Context, severities []entity.AlertSeverity, window time.Duration) (int64, error)
	FindRecent(ctx context.Context, limit int) ([]entity.MonitoringAlert, error)
}

// NewMonitoringAlertRepository creates a new GORM-based monitoring alert repository.
func NewMonitoringAlertRepository(db *gorm.DB) MonitoringAlertRepository {
	return &monitoringAlertRepository{db: db}
}

type monitoringAlertRepository struct {
	db *gorm.DB
}

// Create inserts a new alert audit row.
func (r *monitoringAlertRepository) Create(ctx context.Context, alert *entity.MonitoringAlert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

// CountRecent counts alerts of the given severities raised within the window.
func (r *monitoringAlertRepository) CountRecent(ctx context.Context, severities []entity.AlertSeverity, window time.Duration) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.MonitoringAlert{}).
		Where("severity IN ? AND created_at >= ?", severities, time.Now().Add(-window)).
		Count(&count).Error
	return count, err
}

// FindRecent returns the last limit alerts, most recent first.
func (r *monitoringAlertRepository) FindRecent(ctx context.Context, limit int) ([]entity.MonitoringAlert, error) {
	var alerts []entity.MonitoringAlert
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}
