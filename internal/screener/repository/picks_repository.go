package repository

import (
	"context"
	"time"

	"options-income-screener/internal/entity"

	"gorm.io/gorm"
)

// PicksRepository defines the interface for screened pick data operations.
type PicksRepository interface {
	BatchUpsert(ctx context.Context, picks []entity.ScreenedPick) error
	DeleteByDate(ctx context.Context, asOf time.Time) error
	FindByDate(ctx context.Context, asOf time.Time) ([]entity.ScreenedPick, error)
	TopByDate(ctx context.Context, asOf time.Time, strategy entity.Strategy, limit int) ([]entity.ScreenedPick, error)
	AttachRationale(ctx context.Context, id int64, rationale string) error
	MarkAlertSent(ctx context.Context, id int64, sentAt time.Time) error
}

// NewPicksRepository creates a new GORM-based screened pick repository.
func NewPicksRepository(db *gorm.DB) PicksRepository {
	return &picksRepository{db: db}
}

type picksRepository struct {
	db *gorm.DB
}

// BatchUpsert inserts all picks in a single transaction.
func (r *picksRepository) BatchUpsert(ctx context.Context, picks []entity.ScreenedPick) error {
	if len(picks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&picks, 100).Error
	})
}

// DeleteByDate removes every pick for the given as-of date so a re-run is idempotent.
func (r *picksRepository) DeleteByDate(ctx context.Context, asOf time.Time) error {
	return r.db.WithContext(ctx).
		Where("as_of = ?", asOf.Format("2006-01-02")).
		Unscoped().
		Delete(&entity.ScreenedPick{}).Error
}

// FindByDate retrieves all picks for the given as-of date ordered by score.
func (r *picksRepository) FindByDate(ctx context.Context, asOf time.Time) ([]entity.ScreenedPick, error) {
	var picks []entity.ScreenedPick
	err := r.db.WithContext(ctx).
		Where("as_of = ?", asOf.Format("2006-01-02")).
		Order("score DESC").
		Find(&picks).Error
	if err != nil {
		return nil, err
	}
	return picks, nil
}

// TopByDate retrieves the highest-scored picks for one strategy on the given date.
func (r *picksRepository) TopByDate(ctx context.Context, asOf time.Time, strategy entity.Strategy, limit int) ([]entity.ScreenedPick, error) {
	var picks []entity.ScreenedPick
	err := r.db.WithContext(ctx).
		Where("as_of = ? AND strategy = ?", asOf.Format("2006-01-02"), strategy).
		Order("score DESC").
		Limit(limit).
		Find(&picks).Error
	if err != nil {
		return nil, err
	}
	return picks, nil
}

// AttachRationale stores the generated rationale text on an existing pick.
func (r *picksRepository) AttachRationale(ctx context.Context, id int64, rationale string) error {
	return r.db.WithContext(ctx).
		Model(&entity.ScreenedPick{}).
		Where("id = ?", id).
		Update("rationale", rationale).Error
}

// MarkAlertSent records when the Telegram alert for a pick went out.
func (r *picksRepository) MarkAlertSent(ctx context.Context, id int64, sentAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.ScreenedPick{}).
		Where("id = ?", id).
		Update("alert_sent_at", sentAt).Error
}
