package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"newsRanker/business/expmetrics"
	"newsRanker/domain"
)

const impressionBatchSize = 500

type ImpressionRepository struct {
	DB *gorm.DB
}

func NewImpressionRepository(db *gorm.DB) *ImpressionRepository {
	return &ImpressionRepository{
		DB: db,
	}
}

func (r *ImpressionRepository) SaveBatch(ctx context.Context, events []domain.ImpressionEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	if err := r.DB.WithContext(ctx).CreateInBatches(events, impressionBatchSize).Error; err != nil {
		return fmt.Errorf("failed to save impressions: %w", err)
	}

	return nil
}

type ClickRepository struct {
	DB *gorm.DB
}

func NewClickRepository(db *gorm.DB) *ClickRepository {
	return &ClickRepository{
		DB: db,
	}
}

func (r *ClickRepository) Save(ctx context.Context, event *domain.ClickEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to save click: %w", err)
	}

	return nil
}

func (r *ClickRepository) RecentClicks(ctx context.Context, subjectID string, since time.Time) ([]domain.ClickEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var clicks []domain.ClickEvent
	err := r.DB.WithContext(ctx).
		Where("subject_id = ? AND timestamp >= ?", subjectID, since).
		Order("timestamp DESC").
		Find(&clicks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load click history: %w", err)
	}

	return clicks, nil
}

// EventStatsRepository serves the aggregation job straight off the raw logs.
type EventStatsRepository struct {
	DB *gorm.DB
}

func NewEventStatsRepository(db *gorm.DB) *EventStatsRepository {
	return &EventStatsRepository{
		DB: db,
	}
}

func (r *EventStatsRepository) Variants(ctx context.Context, experimentKey, datePartition string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var variants []string
	err := r.DB.WithContext(ctx).
		Model(&domain.ImpressionEvent{}).
		Distinct("variant").
		Where("experiment_key = ? AND date_partition = ?", experimentKey, datePartition).
		Pluck("variant", &variants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list observed variants: %w", err)
	}

	return variants, nil
}

func (r *EventStatsRepository) VariantStats(ctx context.Context, experimentKey, variant, datePartition string) (expmetrics.VariantDayStats, error) {
	if err := ctx.Err(); err != nil {
		return expmetrics.VariantDayStats{}, fmt.Errorf("context error: %w", err)
	}

	var stats expmetrics.VariantDayStats

	impressionRow := struct {
		Impressions      int64
		UniqueSubjects   int64
		AvgPosition      float64
		DiversityApplied int64
		Personalized     int64
	}{}
	err := r.DB.WithContext(ctx).
		Model(&domain.ImpressionEvent{}).
		Select(`COUNT(*) AS impressions,
			COUNT(DISTINCT subject_id) AS unique_subjects,
			COALESCE(AVG(position), 0) AS avg_position,
			COUNT(*) FILTER (WHERE diversity_applied) AS diversity_applied,
			COUNT(*) FILTER (WHERE personalized) AS personalized`).
		Where("experiment_key = ? AND variant = ? AND date_partition = ?", experimentKey, variant, datePartition).
		Scan(&impressionRow).Error
	if err != nil {
		return expmetrics.VariantDayStats{}, fmt.Errorf("failed to aggregate impressions: %w", err)
	}

	clickRow := struct {
		Clicks             int64
		SubjectsWithClicks int64
		AvgDwellTimeMs     float64
	}{}
	err = r.DB.WithContext(ctx).
		Model(&domain.ClickEvent{}).
		Select(`COUNT(*) AS clicks,
			COUNT(DISTINCT subject_id) AS subjects_with_clicks,
			COALESCE(AVG(dwell_time_ms), 0) AS avg_dwell_time_ms`).
		Where("experiment_key = ? AND variant = ? AND date_partition = ?", experimentKey, variant, datePartition).
		Scan(&clickRow).Error
	if err != nil {
		return expmetrics.VariantDayStats{}, fmt.Errorf("failed to aggregate clicks: %w", err)
	}

	stats.Impressions = impressionRow.Impressions
	stats.UniqueSubjects = impressionRow.UniqueSubjects
	stats.AvgPosition = impressionRow.AvgPosition
	stats.DiversityApplied = impressionRow.DiversityApplied
	stats.Personalized = impressionRow.Personalized
	stats.Clicks = clickRow.Clicks
	stats.SubjectsWithClicks = clickRow.SubjectsWithClicks
	stats.AvgDwellTimeMs = clickRow.AvgDwellTimeMs

	return stats, nil
}
