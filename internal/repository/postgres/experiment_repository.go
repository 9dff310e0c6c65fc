package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"newsRanker/domain"
)

type ExperimentRepository struct {
	DB *gorm.DB
}

func NewExperimentRepository(db *gorm.DB) *ExperimentRepository {
	return &ExperimentRepository{
		DB: db,
	}
}

// GetByKey returns (nil, nil) when no experiment exists under the key.
func (r *ExperimentRepository) GetByKey(ctx context.Context, key string) (*domain.Experiment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var exp domain.Experiment
	err := r.DB.WithContext(ctx).Where("experiment_key = ?", key).First(&exp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find experiment: %w", err)
	}

	return &exp, nil
}

func (r *ExperimentRepository) ListActive(ctx context.Context) ([]domain.Experiment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var experiments []domain.Experiment
	err := r.DB.WithContext(ctx).Where("is_active = ?", true).Find(&experiments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active experiments: %w", err)
	}

	return experiments, nil
}

func (r *ExperimentRepository) Save(ctx context.Context, exp *domain.Experiment) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Save(exp).Error; err != nil {
		return fmt.Errorf("failed to save experiment: %w", err)
	}

	return nil
}

type AlertRepository struct {
	DB *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{
		DB: db,
	}
}

func (r *AlertRepository) Save(ctx context.Context, alert *domain.ExperimentAlert) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to save experiment alert: %w", err)
	}

	return nil
}
