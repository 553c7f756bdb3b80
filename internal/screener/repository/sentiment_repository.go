package repository

import (
	"context"
	"time"

	"options-income-screener/internal/entity"

	"gorm.io/gorm"
)

// SentimentRepository defines the interface for sentiment metric data operations.
type SentimentRepository interface {
	BatchUpsert(ctx context.Context, metrics []entity.SentimentMetric) error
	DeleteByDate(ctx context.Context, asOf time.Time) error
	FindByDate(ctx context.Context, asOf time.Time) ([]entity.SentimentMetric, error)
}

// NewSentimentRepository creates a new GORM-based sentiment metric repository.
func NewSentimentRepository(db *gorm.DB) SentimentRepository {
	return &sentimentRepository{db: db}
}

type sentimentRepository struct {
	db *gorm.DB
}

// BatchUpsert inserts the batch in a single transaction.
func (r *sentimentRepository) BatchUpsert(ctx context.Context, metrics []entity.SentimentMetric) error {
	if len(metrics) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&metrics, 100).Error
	})
}

// DeleteByDate removes the batch for a date so a re-run is idempotent.
func (r *sentimentRepository) DeleteByDate(ctx context.Context, asOf time.Time) error {
	return r.db.WithContext(ctx).
		Where("as_of = ?", asOf.Format("2006-01-02")).
		Delete(&entity.SentimentMetric{}).Error
}

// FindByDate retrieves the sentiment batch for one as-of date.
func (r *sentimentRepository) FindByDate(ctx context.Context, asOf time.Time) ([]entity.SentimentMetric, error) {
	var metrics []entity.SentimentMetric
	err := r.db.WithContext(ctx).
		Where("as_of = ?", asOf.Format("2006-01-02")).
		Order("sentiment_rank DESC").
		Find(&metrics).Error
	if err != nil {
		return nil, err
	}
	return metrics, nil
}
