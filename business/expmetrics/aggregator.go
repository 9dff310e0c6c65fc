package expmetrics

import (
	"context"
	"fmt"
	"time"

	"newsRanker/business/experiment"
	"newsRanker/domain"
	"newsRanker/pkg/logger"
	"newsRanker/pkg/metrics"
)

// VariantDayStats are the raw event aggregates for one
// experiment/variant/day, as returned by the event store.
type VariantDayStats struct {
	Impressions        int64
	Clicks             int64
	UniqueSubjects     int64
	SubjectsWithClicks int64
	AvgDwellTimeMs     float64
	AvgPosition        float64
	DiversityApplied   int64
	Personalized       int64
}

// EventStatsRepository aggregates the raw impression and click logs.
type EventStatsRepository interface {
	Variants(ctx context.Context, experimentKey, datePartition string) ([]string, error)
	VariantStats(ctx context.Context, experimentKey, variant, datePartition string) (VariantDayStats, error)
}

// MetricRepository stores the daily rollups. Upsert is keyed on
// (experiment_key, variant, date_partition).
type MetricRepository interface {
	Upsert(ctx context.Context, metric *domain.DailyMetric) error
	ListRange(ctx context.Context, experimentKey, fromDate, toDate string) ([]domain.DailyMetric, error)
}

// Aggregator recomputes the daily rollups for every active experiment. Runs
// are idempotent: partitions are overwritten until marked final, so a late
// event or a restarted job heals itself on the next cycle.
type Aggregator struct {
	experiments *experiment.Service
	stats       EventStatsRepository
	metricsRepo MetricRepository
}

func NewAggregator(experiments *experiment.Service, stats EventStatsRepository, metricsRepo MetricRepository) *Aggregator {
	return &Aggregator{
		experiments: experiments,
		stats:       stats,
		metricsRepo: metricsRepo,
	}
}

// RunOnce aggregates today's and yesterday's partitions for all active
// experiments. One experiment failing never interrupts the others.
func (a *Aggregator) RunOnce(ctx context.Context) error {
	active, err := a.experiments.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active experiments: %w", err)
	}

	now := time.Now()
	partitions := []string{
		domain.DatePartitionOf(now),
		domain.DatePartitionOf(now.AddDate(0, 0, -1)),
	}

	for _, exp := range active {
		a.aggregateExperiment(ctx, exp.ExperimentKey, partitions)
	}

	logger.Info("metrics aggregation cycle finished", "experiments", len(active))
	return nil
}

func (a *Aggregator) aggregateExperiment(ctx context.Context, experimentKey string, partitions []string) {
	defer func() {
		if r := recover(); r != nil {
			metrics.AggregationFailures.WithLabelValues(experimentKey).Inc()
			logger.Error("aggregation panicked", "experiment_key", experimentKey, "panic", r)
		}
	}()

	for _, partition := range partitions {
		if err := a.aggregatePartition(ctx, experimentKey, partition); err != nil {
			metrics.AggregationFailures.WithLabelValues(experimentKey).Inc()
			logger.Warn("aggregation failed", "experiment_key", experimentKey, "date", partition, "error", err)
		}
	}
}

func (a *Aggregator) aggregatePartition(ctx context.Context, experimentKey, partition string) error {
	variants, err := a.stats.Variants(ctx, experimentKey, partition)
	if err != nil {
		return fmt.Errorf("list observed variants: %w", err)
	}

	for _, variant := range variants {
		stats, err := a.stats.VariantStats(ctx, experimentKey, variant, partition)
		if err != nil {
			return fmt.Errorf("aggregate %s/%s: %w", variant, partition, err)
		}

		metric := BuildDailyMetric(experimentKey, variant, partition, stats)
		if err := a.metricsRepo.Upsert(ctx, metric); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", variant, partition, err)
		}
	}
	return nil
}

// BuildDailyMetric derives the rollup row from raw aggregates. Every ratio is
// zero-safe: a variant with no impressions reports 0 across the board rather
// than dividing by zero.
func BuildDailyMetric(experimentKey, variant, partition string, stats VariantDayStats) *domain.DailyMetric {
	metric := &domain.DailyMetric{
		ExperimentKey:  experimentKey,
		Variant:        variant,
		DatePartition:  partition,
		Impressions:    stats.Impressions,
		Clicks:         stats.Clicks,
		UniqueSubjects: stats.UniqueSubjects,
		AvgDwellTimeMs: stats.AvgDwellTimeMs,
		AvgPosition:    stats.AvgPosition,
		CalculatedAt:   time.Now(),
		IsFinal:        false,
	}

	if stats.Impressions > 0 {
		metric.Ctr = float64(stats.Clicks) / float64(stats.Impressions)
		metric.DiversityScore = float64(stats.DiversityApplied) / float64(stats.Impressions)
		metric.PersonalizationScore = float64(stats.Personalized) / float64(stats.Impressions)
	}

	// Hide rate approximates bounce: subjects who saw the list but clicked
	// nothing that day.
	if stats.UniqueSubjects > 0 {
		metric.HideRate = float64(stats.UniqueSubjects-stats.SubjectsWithClicks) / float64(stats.UniqueSubjects)
	}

	return metric
}
