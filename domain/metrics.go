package domain

import "time"

// DailyMetric is the per experiment/variant/day rollup. Recomputed
// idempotently every aggregation cycle until the partition is marked final.
type DailyMetric struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	ExperimentKey string `gorm:"column:experiment_key;not null;size:100;uniqueIndex:idx_metric_key_variant_date" json:"experiment_key"`
	Variant       string `gorm:"column:variant;not null;size:50;uniqueIndex:idx_metric_key_variant_date" json:"variant"`
	DatePartition string `gorm:"column:date_partition;not null;size:10;uniqueIndex:idx_metric_key_variant_date" json:"date_partition"`

	Impressions    int64   `gorm:"column:impressions" json:"impressions"`
	Clicks         int64   `gorm:"column:clicks" json:"clicks"`
	UniqueSubjects int64   `gorm:"column:unique_subjects" json:"unique_subjects"`
	Ctr            float64 `gorm:"column:ctr" json:"ctr"`
	AvgDwellTimeMs float64 `gorm:"column:avg_dwell_time_ms" json:"avg_dwell_time_ms"`
	AvgPosition    float64 `gorm:"column:avg_position" json:"avg_position"`
	HideRate       float64 `gorm:"column:hide_rate" json:"hide_rate"`

	// Fraction of impressions flagged diversity-applied / personalized.
	DiversityScore       float64 `gorm:"column:diversity_score" json:"diversity_score"`
	PersonalizationScore float64 `gorm:"column:personalization_score" json:"personalization_score"`

	CalculatedAt time.Time `gorm:"column:calculated_at" json:"calculated_at"`
	IsFinal      bool      `gorm:"column:is_final" json:"is_final"`
}

func (DailyMetric) TableName() string {
	return "experiment_metrics_daily"
}
