package expmetrics

import (
	"testing"

	"newsRanker/domain"
)

func metricRow(variant, date string, impressions int64, ctr float64) domain.DailyMetric {
	return domain.DailyMetric{
		ExperimentKey: "ranking_ab",
		Variant:       variant,
		DatePartition: date,
		Impressions:   impressions,
		Ctr:           ctr,
	}
}

func guardedExperiment() domain.Experiment {
	return domain.Experiment{
		ExperimentKey:           "ranking_ab",
		AutoStopEnabled:         true,
		AutoStopThreshold:       0.05,
		AutoStopConsecutiveDays: 2,
		MinSampleSize:           1000,
	}
}

func TestAnalyzeFiresOnSustainedDegradation(t *testing.T) {
	// Control 10% CTR vs treatment 4% over two days, both variants well past
	// the sample floor: degradation 0.06 >= threshold 0.05 on both days.
	rows := []domain.DailyMetric{
		metricRow("control", "2026-08-27", 1500, 0.10),
		metricRow("treatment", "2026-08-27", 1400, 0.04),
		metricRow("control", "2026-08-28", 1600, 0.10),
		metricRow("treatment", "2026-08-28", 1500, 0.04),
	}

	analysis := Analyze(guardedExperiment(), rows)

	if !analysis.ShouldStop {
		t.Fatalf("sustained degradation did not fire: %+v", analysis)
	}
	if analysis.DaysWithDegradation != 2 {
		t.Fatalf("days with degradation = %d, want 2", analysis.DaysWithDegradation)
	}
	if analysis.MaxDegradation < 0.05 {
		t.Fatalf("max degradation = %f, want >= threshold", analysis.MaxDegradation)
	}
	t.Logf("control=%.4f treatment=%.4f degradation=%.4f",
		analysis.AvgControlCtr, analysis.AvgTreatmentCtr, analysis.MaxDegradation)
}

func TestAnalyzeInsufficientSampleNeverFires(t *testing.T) {
	// Massive gap but the treatment variant never reaches the sample floor.
	rows := []domain.DailyMetric{
		metricRow("control", "2026-08-27", 1500, 0.20),
		metricRow("treatment", "2026-08-27", 200, 0.01),
		metricRow("control", "2026-08-28", 1600, 0.20),
		metricRow("treatment", "2026-08-28", 300, 0.01),
	}

	analysis := Analyze(guardedExperiment(), rows)

	if analysis.ShouldStop {
		t.Fatalf("auto-stop fired on insufficient sample: %+v", analysis)
	}
	if analysis.DaysWithDegradation != 0 {
		t.Fatalf("undersampled days counted: %d", analysis.DaysWithDegradation)
	}
}

func TestAnalyzeSingleDayBelowRequiredDays(t *testing.T) {
	// Only one qualifying degraded day against a two-day requirement.
	rows := []domain.DailyMetric{
		metricRow("control", "2026-08-27", 1500, 0.10),
		metricRow("treatment", "2026-08-27", 1400, 0.04),
		metricRow("control", "2026-08-28", 1600, 0.10),
		metricRow("treatment", "2026-08-28", 1500, 0.09),
	}

	analysis := Analyze(guardedExperiment(), rows)

	if analysis.ShouldStop {
		t.Fatalf("one degraded day fired a two-day guardrail: %+v", analysis)
	}
	if analysis.DaysWithDegradation != 1 {
		t.Fatalf("days with degradation = %d, want 1", analysis.DaysWithDegradation)
	}
}

func TestAnalyzeTreatmentWinningNeverFires(t *testing.T) {
	rows := []domain.DailyMetric{
		metricRow("control", "2026-08-27", 1500, 0.04),
		metricRow("treatment", "2026-08-27", 1400, 0.10),
		metricRow("control", "2026-08-28", 1600, 0.04),
		metricRow("treatment", "2026-08-28", 1500, 0.10),
	}

	analysis := Analyze(guardedExperiment(), rows)

	if analysis.ShouldStop {
		t.Fatalf("auto-stop fired on improving treatment: %+v", analysis)
	}
	if analysis.MaxDegradation != 0 {
		t.Fatalf("negative degradation recorded as max: %f", analysis.MaxDegradation)
	}
}

func TestAnalyzeMissingControlNeverFires(t *testing.T) {
	rows := []domain.DailyMetric{
		metricRow("treatment", "2026-08-27", 1500, 0.01),
		metricRow("treatment", "2026-08-28", 1500, 0.01),
	}

	if analysis := Analyze(guardedExperiment(), rows); analysis.ShouldStop {
		t.Fatalf("auto-stop fired without control data: %+v", analysis)
	}
}

func TestBuildDailyMetricZeroImpressions(t *testing.T) {
	metric := BuildDailyMetric("ranking_ab", "treatment", "2026-08-28", VariantDayStats{})

	if metric.Ctr != 0 || metric.HideRate != 0 || metric.DiversityScore != 0 || metric.PersonalizationScore != 0 {
		t.Fatalf("zero-impression partition produced non-zero ratios: %+v", metric)
	}
}

func TestBuildDailyMetricRatios(t *testing.T) {
	stats := VariantDayStats{
		Impressions:        1000,
		Clicks:             50,
		UniqueSubjects:     200,
		SubjectsWithClicks: 40,
		AvgDwellTimeMs:     12000,
		AvgPosition:        4.2,
		DiversityApplied:   1000,
		Personalized:       500,
	}

	metric := BuildDailyMetric("ranking_ab", "treatment", "2026-08-28", stats)

	if metric.Ctr != 0.05 {
		t.Fatalf("ctr = %f, want 0.05", metric.Ctr)
	}
	if metric.HideRate != 0.8 {
		t.Fatalf("hide rate = %f, want 0.8", metric.HideRate)
	}
	if metric.DiversityScore != 1.0 {
		t.Fatalf("diversity score = %f, want 1.0", metric.DiversityScore)
	}
	if metric.PersonalizationScore != 0.5 {
		t.Fatalf("personalization score = %f, want 0.5", metric.PersonalizationScore)
	}
	if metric.IsFinal {
		t.Fatalf("fresh rollup marked final")
	}
}
