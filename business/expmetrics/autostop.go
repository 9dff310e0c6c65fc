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

const (
	// Defaults applied when an experiment leaves its guardrail fields unset.
	DefaultCtrDegradationThreshold = 0.05
	DefaultMinSampleSize           = 1000

	autoStopWindowDays = 3
	controlVariant     = "control"
)

// Monitor stops experiments whose treatment CTR falls consistently below
// control. Insufficient sample never triggers a stop, no matter how large
// the measured gap.
type Monitor struct {
	experiments *experiment.Service
	metricsRepo MetricRepository
	alerts      experiment.AlertRepository
}

func NewMonitor(experiments *experiment.Service, metricsRepo MetricRepository, alerts experiment.AlertRepository) *Monitor {
	return &Monitor{
		experiments: experiments,
		metricsRepo: metricsRepo,
		alerts:      alerts,
	}
}

// Analysis is the outcome of evaluating one experiment's guardrails.
type Analysis struct {
	ShouldStop          bool
	DaysWithDegradation int
	MaxDegradation      float64
	AvgControlCtr       float64
	AvgTreatmentCtr     float64
}

// RunOnce evaluates every active experiment. One experiment failing never
// interrupts the others.
func (m *Monitor) RunOnce(ctx context.Context) error {
	active, err := m.experiments.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active experiments: %w", err)
	}

	for _, exp := range active {
		if !exp.AutoStopEnabled {
			continue
		}
		if err := m.checkExperiment(ctx, exp); err != nil {
			logger.Warn("auto-stop check failed", "experiment_key", exp.ExperimentKey, "error", err)
		}
	}
	return nil
}

func (m *Monitor) checkExperiment(ctx context.Context, exp domain.Experiment) error {
	now := time.Now()
	from := domain.DatePartitionOf(now.AddDate(0, 0, -autoStopWindowDays))
	to := domain.DatePartitionOf(now)

	rows, err := m.metricsRepo.ListRange(ctx, exp.ExperimentKey, from, to)
	if err != nil {
		return fmt.Errorf("load metrics window: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	analysis := Analyze(exp, rows)
	if !analysis.ShouldStop {
		return nil
	}

	reason := fmt.Sprintf("auto-stop: control ctr %.4f vs treatment ctr %.4f, degradation %.4f over %d day(s)",
		analysis.AvgControlCtr, analysis.AvgTreatmentCtr, analysis.MaxDegradation, analysis.DaysWithDegradation)

	if err := m.experiments.Stop(ctx, exp.ExperimentKey, reason); err != nil {
		return fmt.Errorf("stop experiment: %w", err)
	}

	alert := &domain.ExperimentAlert{
		ExperimentKey: exp.ExperimentKey,
		Kind:          "auto_stop",
		Message:       reason,
		ControlCtr:    analysis.AvgControlCtr,
		TreatmentCtr:  analysis.AvgTreatmentCtr,
		Degradation:   analysis.MaxDegradation,
		Resolved:      false,
	}
	if err := m.alerts.Save(ctx, alert); err != nil {
		logger.Warn("auto-stop alert not recorded", "experiment_key", exp.ExperimentKey, "error", err)
	}

	metrics.AutoStopsTotal.Inc()
	logger.Info("experiment auto-stopped", "experiment_key", exp.ExperimentKey,
		"control_ctr", analysis.AvgControlCtr, "treatment_ctr", analysis.AvgTreatmentCtr,
		"max_degradation", analysis.MaxDegradation, "days", analysis.DaysWithDegradation)
	return nil
}

// Analyze compares control against every treatment variant day by day. A day
// counts only when both sides reach the minimum sample size; a counted day
// degrades when control CTR exceeds treatment CTR by at least the threshold.
func Analyze(exp domain.Experiment, rows []domain.DailyMetric) Analysis {
	threshold := exp.AutoStopThreshold
	if threshold <= 0 {
		threshold = DefaultCtrDegradationThreshold
	}
	minSample := exp.MinSampleSize
	if minSample <= 0 {
		minSample = DefaultMinSampleSize
	}
	requiredDays := exp.AutoStopConsecutiveDays
	if requiredDays <= 0 {
		requiredDays = 1
	}

	controlByDate := make(map[string]domain.DailyMetric)
	treatmentsByDate := make(map[string][]domain.DailyMetric)
	for _, row := range rows {
		if row.Variant == controlVariant {
			controlByDate[row.DatePartition] = row
		} else {
			treatmentsByDate[row.DatePartition] = append(treatmentsByDate[row.DatePartition], row)
		}
	}

	var analysis Analysis
	comparedDays := 0
	controlCtrSum := 0.0
	treatmentCtrSum := 0.0

	for date, control := range controlByDate {
		if control.Impressions < minSample {
			continue
		}
		for _, treatment := range treatmentsByDate[date] {
			if treatment.Impressions < minSample {
				continue
			}

			comparedDays++
			controlCtrSum += control.Ctr
			treatmentCtrSum += treatment.Ctr

			degradation := control.Ctr - treatment.Ctr
			if degradation > analysis.MaxDegradation {
				analysis.MaxDegradation = degradation
			}
			if degradation >= threshold {
				analysis.DaysWithDegradation++
			}
		}
	}

	if comparedDays == 0 {
		return analysis
	}

	analysis.AvgControlCtr = controlCtrSum / float64(comparedDays)
	analysis.AvgTreatmentCtr = treatmentCtrSum / float64(comparedDays)
	analysis.ShouldStop = analysis.DaysWithDegradation >= requiredDays &&
		analysis.MaxDegradation >= threshold
	return analysis
}
