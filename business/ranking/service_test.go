package ranking

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"newsRanker/business/analytics"
	"newsRanker/business/diversity"
	"newsRanker/business/experiment"
	"newsRanker/business/personalization"
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
	return nil, nil
}

func (r *fakeExperimentRepo) Save(_ context.Context, exp *domain.Experiment) error {
	copied := *exp
	r.experiments[exp.ExperimentKey] = &copied
	return nil
}

type fakeProfileRepo struct{}

func (fakeProfileRepo) GetBySubject(_ context.Context, subjectID string) (*domain.UserProfile, error) {
	return &domain.UserProfile{SubjectID: subjectID, PersonalizationEnabled: false, IsActive: true}, nil
}

func (fakeProfileRepo) Save(_ context.Context, _ *domain.UserProfile) error { return nil }

type fakeClickStore struct {
	mu     sync.Mutex
	clicks []domain.ClickEvent
}

func (s *fakeClickStore) RecentClicks(_ context.Context, _ string, _ time.Time) ([]domain.ClickEvent, error) {
	return nil, nil
}

func (s *fakeClickStore) Save(_ context.Context, event *domain.ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks = append(s.clicks, *event)
	return nil
}

type fakeImpressionStore struct {
	mu      sync.Mutex
	batches [][]domain.ImpressionEvent
}

func (s *fakeImpressionStore) SaveBatch(_ context.Context, events []domain.ImpressionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, events)
	return nil
}

func (s *fakeImpressionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

type zeroSim struct{}

func (zeroSim) Similarity(_ context.Context, _, _ domain.Candidate) float64 { return 0 }

func newTestRankingService(t *testing.T, allocations []domain.VariantAllocation) (*Service, *fakeImpressionStore) {
	t.Helper()

	raw, err := json.Marshal(allocations)
	if err != nil {
		t.Fatalf("marshal allocations: %v", err)
	}

	expRepo := &fakeExperimentRepo{experiments: map[string]*domain.Experiment{
		ExperimentKey: {
			ExperimentKey: ExperimentKey,
			Allocations:   raw,
			StartAt:       time.Now().Add(-time.Hour),
			IsActive:      true,
		},
	}}

	impressions := &fakeImpressionStore{}
	analyticsService := analytics.NewService(impressions, &fakeClickStore{})

	svc := NewService(
		experiment.NewService(expRepo),
		personalization.NewService(fakeProfileRepo{}, &fakeClickStore{}, personalization.DefaultWeights()),
		diversity.NewFilter(zeroSim{}),
		analyticsService,
		0.7, 2,
	)
	return svc, impressions
}

func rankCandidates() []domain.Candidate {
	now := time.Now()
	return []domain.Candidate{
		{ID: 1, Title: "alpha", ImportanceScore: 0.9, PublishedAt: now.Add(-time.Hour)},
		{ID: 2, Title: "beta", ImportanceScore: 0.4, PublishedAt: now.Add(-30 * time.Hour)},
		{ID: 3, Title: "gamma", ImportanceScore: 0.7, PublishedAt: now.Add(-10 * time.Minute)},
		{ID: 4, Title: "delta", ImportanceScore: 0.2, PublishedAt: now.Add(-40 * time.Hour)},
	}
}

func TestRankControlServesBaseline(t *testing.T) {
	// All traffic to control: baseline blend, no diversity pass.
	svc, _ := newTestRankingService(t, []domain.VariantAllocation{{Variant: "control", Percent: 100}})

	result, err := svc.Rank(context.Background(), Request{
		SubjectID:  "u1",
		TargetSize: 3,
		Candidates: rankCandidates(),
	})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	if result.Assignment.Variant != "control" {
		t.Fatalf("variant %q, want control", result.Assignment.Variant)
	}
	if len(result.Items) != 3 {
		t.Fatalf("served %d items, want 3", len(result.Items))
	}
	for i := 1; i < len(result.Items); i++ {
		if result.Items[i].RankScore > result.Items[i-1].RankScore {
			t.Fatalf("baseline order not descending at %d", i)
		}
	}
	for _, item := range result.Items {
		if item.DiversityApplied {
			t.Fatalf("control item %d carries diversity marker", item.Candidate.ID)
		}
		if item.SelectedVariant != "control" {
			t.Fatalf("item variant %q", item.SelectedVariant)
		}
	}
}

func TestRankTreatmentAppliesDiversity(t *testing.T) {
	svc, _ := newTestRankingService(t, []domain.VariantAllocation{{Variant: "treatment", Percent: 100}})

	result, err := svc.Rank(context.Background(), Request{
		SubjectID:  "u1",
		TargetSize: 3,
		Candidates: rankCandidates(),
	})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	if result.Assignment.Variant != "treatment" {
		t.Fatalf("variant %q, want treatment", result.Assignment.Variant)
	}
	for _, item := range result.Items {
		if !item.DiversityApplied {
			t.Fatalf("treatment item %d missing diversity marker", item.Candidate.ID)
		}
	}
}

func TestRankLogsImpressions(t *testing.T) {
	svc, impressions := newTestRankingService(t, []domain.VariantAllocation{{Variant: "control", Percent: 100}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.analytics.Run(ctx)

	if _, err := svc.Rank(context.Background(), Request{SubjectID: "u1", TargetSize: 2, Candidates: rankCandidates()}); err != nil {
		t.Fatalf("Rank: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for impressions.count() == 0 {
		select {
		case <-deadline:
			t.Fatalf("impressions never reached the store")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRankEmptyPoolFails(t *testing.T) {
	svc, _ := newTestRankingService(t, []domain.VariantAllocation{{Variant: "control", Percent: 100}})

	if _, err := svc.Rank(context.Background(), Request{SubjectID: "u1"}); err == nil {
		t.Fatalf("empty candidate pool accepted")
	}
}
