package experiment

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gorm.io/datatypes"

	"newsRanker/domain"
)

type fakeExperimentRepo struct {
	experiments map[string]*domain.Experiment
}

func (r *fakeExperimentRepo) GetByKey(_ context.Context, key string) (*domain.Experiment, error) {
	exp, ok := r.experiments[key]
	if !ok {
		return nil, nil
	}
	copied := *exp
	return &copied, nil
}

func (r *fakeExperimentRepo) ListActive(_ context.Context) ([]domain.Experiment, error) {
	var out []domain.Experiment
	for _, exp := range r.experiments {
		if exp.IsActive {
			out = append(out, *exp)
		}
	}
	return out, nil
}

func (r *fakeExperimentRepo) Save(_ context.Context, exp *domain.Experiment) error {
	copied := *exp
	r.experiments[exp.ExperimentKey] = &copied
	return nil
}

func mustAllocations(t *testing.T, allocations []domain.VariantAllocation) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(allocations)
	if err != nil {
		t.Fatalf("marshal allocations: %v", err)
	}
	return raw
}

func newRunningExperiment(t *testing.T, key string, allocations []domain.VariantAllocation) *domain.Experiment {
	t.Helper()
	return &domain.Experiment{
		ExperimentKey: key,
		Name:          key,
		Allocations:   mustAllocations(t, allocations),
		StartAt:       time.Now().Add(-time.Hour),
		IsActive:      true,
	}
}

func TestGetAssignmentDeterministic(t *testing.T) {
	repo := &fakeExperimentRepo{experiments: map[string]*domain.Experiment{}}
	repo.experiments["ranking_ab"] = newRunningExperiment(t, "ranking_ab", []domain.VariantAllocation{
		{Variant: "control", Percent: 50},
		{Variant: "treatment", Percent: 50},
	})
	svc := NewService(repo)

	first := svc.GetAssignment(context.Background(), "u1", "ranking_ab")
	second := svc.GetAssignment(context.Background(), "u1", "ranking_ab")

	if first.Variant != second.Variant {
		t.Fatalf("assignment not stable: %q then %q", first.Variant, second.Variant)
	}
	if first.Bucket != second.Bucket {
		t.Fatalf("bucket not stable: %d then %d", first.Bucket, second.Bucket)
	}
	if !first.IsActive {
		t.Fatalf("expected active assignment for running experiment")
	}
	t.Logf("u1/ranking_ab -> variant=%s bucket=%d", first.Variant, first.Bucket)
}

func TestComputeBucketRange(t *testing.T) {
	subjects := []string{"u1", "u2", "anon-abc", "anon-def", "", "한국어-사용자"}
	for _, subject := range subjects {
		bucket := ComputeBucket(subject, "ranking_ab")
		if bucket < 0 || bucket >= 100 {
			t.Fatalf("bucket out of range for %q: %d", subject, bucket)
		}
	}
}

func TestAssignVariantPartitionsAllBuckets(t *testing.T) {
	allocations := []domain.VariantAllocation{
		{Variant: "control", Percent: 30},
		{Variant: "treatment_a", Percent: 30},
		{Variant: "treatment_b", Percent: 40},
	}

	counts := map[string]int{}
	for bucket := 0; bucket < 100; bucket++ {
		counts[assignVariant(bucket, allocations, "multi")]++
	}

	if counts["control"] != 30 || counts["treatment_a"] != 30 || counts["treatment_b"] != 40 {
		t.Fatalf("allocation percentages not honored: %v", counts)
	}

	// Ordered walk: bucket 0 belongs to the first variant, bucket 99 to the last.
	if got := assignVariant(0, allocations, "multi"); got != "control" {
		t.Fatalf("bucket 0 assigned to %q, want control", got)
	}
	if got := assignVariant(99, allocations, "multi"); got != "treatment_b" {
		t.Fatalf("bucket 99 assigned to %q, want treatment_b", got)
	}
}

func TestAssignVariantUndersubscribedFallsToLast(t *testing.T) {
	allocations := []domain.VariantAllocation{
		{Variant: "control", Percent: 40},
		{Variant: "treatment", Percent: 40},
	}

	if got := assignVariant(95, allocations, "partial"); got != "treatment" {
		t.Fatalf("uncovered bucket assigned to %q, want treatment", got)
	}
}

func TestGetAssignmentMissingExperimentIsControl(t *testing.T) {
	repo := &fakeExperimentRepo{experiments: map[string]*domain.Experiment{}}
	svc := NewService(repo)

	assignment := svc.GetAssignment(context.Background(), "u1", "does_not_exist")
	if assignment.Variant != "control" {
		t.Fatalf("missing experiment assigned %q, want control", assignment.Variant)
	}
	if assignment.IsActive {
		t.Fatalf("missing experiment must not report active")
	}
}

func TestGetAssignmentInactiveExperimentIsControl(t *testing.T) {
	repo := &fakeExperimentRepo{experiments: map[string]*domain.Experiment{}}
	exp := newRunningExperiment(t, "paused_ab", []domain.VariantAllocation{
		{Variant: "control", Percent: 50},
		{Variant: "treatment", Percent: 50},
	})
	exp.IsActive = false
	repo.experiments["paused_ab"] = exp
	svc := NewService(repo)

	assignment := svc.GetAssignment(context.Background(), "u1", "paused_ab")
	if assignment.Variant != "control" || assignment.IsActive {
		t.Fatalf("inactive experiment must assign inactive control, got %+v", assignment)
	}
}

func TestCreateRejectsBadAllocationSum(t *testing.T) {
	repo := &fakeExperimentRepo{experiments: map[string]*domain.Experiment{}}
	svc := NewService(repo)

	exp := newRunningExperiment(t, "bad_sum", []domain.VariantAllocation{
		{Variant: "control", Percent: 50},
		{Variant: "treatment", Percent: 40},
	})
	if err := svc.Create(context.Background(), exp); err == nil {
		t.Fatalf("expected error for allocations summing to 90")
	}
}
