package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"newsRanker/domain"
)

type MetricRepository struct {
	DB *gorm.DB
}

func NewMetricRepository(db *gorm.DB) *MetricRepository {
	return &MetricRepository{
		DB: db,
	}
}

// Upsert overwrites the rollup for (experiment_key, variant, date_partition);
// the aggregation job recomputes partitions idempotently.
func (r *MetricRepository) Upsert(ctx context.Context, metric *domain.DailyMetric) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "experiment_key"}, {Name: "variant"}, {Name: "date_partition"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"impressions", "clicks", "unique_subjects", "ctr",
			"avg_dwell_time_ms", "avg_position", "hide_rate",
			"diversity_score", "personalization_score",
			"calculated_at", "is_final",
		}),
	}).Create(metric).Error
	if err != nil {
		return fmt.Errorf("failed to upsert daily metric: %w", err)
	}

	return nil
}

func (r *MetricRepository) ListRange(ctx context.Context, experimentKey, fromDate, toDate string) ([]domain.DailyMetric, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []domain.DailyMetric
	err := r.DB.WithContext(ctx).
		Where("experiment_key = ? AND date_partition BETWEEN ? AND ?", experimentKey, fromDate, toDate).
		Order("date_partition DESC, variant ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list daily metrics: %w", err)
	}

	return rows, nil
}
