package repository

import (
	"context"
	"time"

	"options-income-screener/internal/entity"

	"gorm.io/gorm"
)

// WeeklyStats aggregates run outcomes over a trailing window.
type WeeklyStats struct {
	TotalRuns      int64
	SuccessfulRuns int64
}

// SuccessRate returns the fraction of successful runs, 1.0 when there were none.
func (s WeeklyStats) SuccessRate() float64 {
	if s.TotalRuns == 0 {
		return 1.0
	}
	return float64(s.SuccessfulRuns) / float64(s.TotalRuns)
}

// PipelineRunRepository defines the interface for pipeline run data operations.
type PipelineRunRepository interface {
	Create(ctx context.Context, run *entity.PipelineRun) error
	Finalize(ctx context.Context, run *entity.PipelineRun) error
	FindLatest(ctx context.Context) (*entity.PipelineRun, error)
	FindRecent(ctx context.Context, limit int) ([]entity.PipelineRun, error)
	CountConsecutiveFailures(ctx context.Context) (int, error)
	GetWeeklyStats(ctx context.Context) (*WeeklyStats, error)
}

// NewPipelineRunRepository creates a new GORM-based pipeline run repository.
func NewPipelineRunRepository(db *gorm.DB) PipelineRunRepository {
	return &pipelineRunRepository{db: db}
}

type pipelineRunRepository struct {
	db *gorm.DB
}

// Create inserts a new run row in the running state.
func (r *pipelineRunRepository) Create(ctx context.Context, run *entity.PipelineRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Finalize persists the terminal state of a run.
func (r *pipelineRunRepository) Finalize(ctx context.Context, run *entity.PipelineRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// FindLatest returns the most recently started run, nil when no run exists.
func (r *pipelineRunRepository) FindLatest(ctx context.Context) (*entity.PipelineRun, error) {
	var run entity.PipelineRun
	err := r.db.WithContext(ctx).Order("started_at DESC").First(&run).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// FindRecent returns the last limit runs, most recent first.
func (r *pipelineRunRepository) FindRecent(ctx context.Context, limit int) ([]entity.PipelineRun, error) {
	var runs []entity.PipelineRun
	err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// CountConsecutiveFailures counts failed runs since the last non-failed one.
func (r *pipelineRunRepository) CountConsecutiveFailures(ctx context.Context) (int, error) {
	runs, err := r.FindRecent(ctx, 10)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, run := range runs {
		if run.Status == entity.RunStatusRunning {
			continue
		}
		if run.Status != entity.RunStatusFailed {
			break
		}
		count++
	}
	return count, nil
}

// GetWeeklyStats aggregates run outcomes over the trailing 7 days.
func (r *pipelineRunRepository) GetWeeklyStats(ctx context.Context) (*WeeklyStats, error) {
	since := time.Now().AddDate(0, 0, -7)
	var stats WeeklyStats
	err := r.db.WithContext(ctx).
		Model(&entity.PipelineRun{}).
		Where("started_at >= ? AND status <> ?", since, entity.RunStatusRunning).
		Count(&stats.TotalRuns).Error
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).
		Model(&entity.PipelineRun{}).
		Where("started_at >= ? AND status = ?", since, entity.RunStatusSuccess).
		Count(&stats.SuccessfulRuns).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
