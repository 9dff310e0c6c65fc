package bandit

import (
	"context"
	"errors"
	"testing"
	"time"

	"newsRanker/business/diversity"
	"newsRanker/business/personalization"
	"newsRanker/domain"
)

type fakeDecisionRepo struct {
	decisions map[string]*domain.BanditDecision
	saveErr   error
}

func newFakeDecisionRepo() *fakeDecisionRepo {
	return &fakeDecisionRepo{decisions: map[string]*domain.BanditDecision{}}
}

func (r *fakeDecisionRepo) Save(_ context.Context, decision *domain.BanditDecision) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	copied := *decision
	r.decisions[decision.DecisionID] = &copied
	return nil
}

func (r *fakeDecisionRepo) Get(_ context.Context, decisionID string) (*domain.BanditDecision, error) {
	d, ok := r.decisions[decisionID]
	if !ok {
		return nil, nil
	}
	copied := *d
	return &copied, nil
}

type fakeRewardRepo struct {
	rewards []domain.BanditReward
}

func (r *fakeRewardRepo) Save(_ context.Context, reward *domain.BanditReward) error {
	r.rewards = append(r.rewards, *reward)
	return nil
}

func (r *fakeRewardRepo) HasRecent(_ context.Context, decisionID, rewardType string, _ time.Time) (bool, error) {
	for _, reward := range r.rewards {
		if reward.DecisionID == decisionID && reward.RewardType == rewardType {
			return true, nil
		}
	}
	return false, nil
}

type failingStrategy struct{}

func (failingStrategy) SelectArm(_ context.Context, _ map[string]any, _ []domain.BanditArm) (Selection, error) {
	return Selection{}, errors.New("strategy unavailable")
}

type fixedStrategy struct {
	armID uint
}

func (s fixedStrategy) SelectArm(_ context.Context, _ map[string]any, _ []domain.BanditArm) (Selection, error) {
	return Selection{ArmID: s.armID, DecisionValue: 0.42, Reason: ReasonExploitation}, nil
}

type noopProfileRepo struct{}

func (noopProfileRepo) GetBySubject(_ context.Context, _ string) (*domain.UserProfile, error) {
	return &domain.UserProfile{PersonalizationEnabled: false, IsActive: true}, nil
}

func (noopProfileRepo) Save(_ context.Context, _ *domain.UserProfile) error { return nil }

type noopClickRepo struct{}

func (noopClickRepo) RecentClicks(_ context.Context, _ string, _ time.Time) ([]domain.ClickEvent, error) {
	return nil, nil
}

type zeroSim struct{}

func (zeroSim) Similarity(_ context.Context, _, _ domain.Candidate) float64 { return 0 }

func newTestBanditService(t *testing.T, strategy StrategyClient, decisionRepo DecisionRepository, rewardRepo RewardRepository) (*Service, *Registry) {
	t.Helper()

	registry := NewRegistry(newFakeArmRepo())
	if err := registry.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	scorer := personalization.NewService(noopProfileRepo{}, noopClickRepo{}, personalization.DefaultWeights())
	filter := diversity.NewFilter(zeroSim{})

	return NewService(registry, strategy, decisionRepo, rewardRepo, scorer, filter, 0.7, 2), registry
}

func decisionCandidates() []domain.Candidate {
	now := time.Now()
	return []domain.Candidate{
		{ID: 1, Title: "first", ImportanceScore: 0.9, PublishedAt: now.Add(-time.Hour)},
		{ID: 2, Title: "second", ImportanceScore: 0.5, PublishedAt: now.Add(-2 * time.Hour)},
		{ID: 3, Title: "third", ImportanceScore: 0.7, PublishedAt: now.Add(-10 * time.Minute)},
	}
}

func TestDecidePersistsDecision(t *testing.T) {
	decisionRepo := newFakeDecisionRepo()
	svc, registry := newTestBanditService(t, fixedStrategy{armID: 2}, decisionRepo, &fakeRewardRepo{})

	arm, _ := registry.ArmByID(2)
	decision, err := svc.Decide(context.Background(), "u1", decisionCandidates(), map[string]any{"slot": "home"}, 2)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if decision.DecisionID == "" {
		t.Fatalf("decision id missing")
	}
	if decision.ArmName != arm.Name {
		t.Fatalf("arm name %q, want %q", decision.ArmName, arm.Name)
	}
	if len(decision.Items) != 2 {
		t.Fatalf("served %d items, want limit 2", len(decision.Items))
	}

	stored, err := decisionRepo.Get(context.Background(), decision.DecisionID)
	if err != nil || stored == nil {
		t.Fatalf("decision not persisted: %v", err)
	}
	if stored.SelectionReason != ReasonExploitation {
		t.Fatalf("stored reason %q", stored.SelectionReason)
	}
}

func TestDecideFallbackOnStrategyFailure(t *testing.T) {
	decisionRepo := newFakeDecisionRepo()
	svc, _ := newTestBanditService(t, failingStrategy{}, decisionRepo, &fakeRewardRepo{})

	decision, err := svc.Decide(context.Background(), "u1", decisionCandidates(), nil, 2)
	if err != nil {
		t.Fatalf("fallback must still serve: %v", err)
	}

	if decision.SelectionReason != ReasonFallback {
		t.Fatalf("reason %q, want %q", decision.SelectionReason, ReasonFallback)
	}
	if decision.ArmName != DefaultArm {
		t.Fatalf("arm %q, want default %q", decision.ArmName, DefaultArm)
	}
	if decision.DecisionID != "" {
		t.Fatalf("fallback decisions must not carry an id")
	}
	if len(decisionRepo.decisions) != 0 {
		t.Fatalf("fallback decision was persisted")
	}
}

func TestDecideFallbackOnPersistenceFailure(t *testing.T) {
	decisionRepo := newFakeDecisionRepo()
	decisionRepo.saveErr = errors.New("db down")
	svc, _ := newTestBanditService(t, fixedStrategy{armID: 2}, decisionRepo, &fakeRewardRepo{})

	decision, err := svc.Decide(context.Background(), "u1", decisionCandidates(), nil, 2)
	if err != nil {
		t.Fatalf("persistence failure must still serve: %v", err)
	}
	if decision.SelectionReason != ReasonFallback {
		t.Fatalf("reason %q, want %q", decision.SelectionReason, ReasonFallback)
	}
}

func TestRewardValueNormalization(t *testing.T) {
	if v, err := RewardValue(RewardClick, 123); err != nil || v != 1.0 {
		t.Fatalf("click reward = %f (%v), want 1.0", v, err)
	}
	if v, err := RewardValue(RewardDwell, 30); err != nil || v != 0.5 {
		t.Fatalf("30s dwell reward = %f (%v), want 0.5", v, err)
	}
	if v, err := RewardValue(RewardDwell, 600); err != nil || v != 1.0 {
		t.Fatalf("10min dwell reward = %f (%v), want capped 1.0", v, err)
	}
	if _, err := RewardValue("purchase", 1); err == nil {
		t.Fatalf("unknown reward type accepted")
	}
}

func TestProcessRewardCreditsArm(t *testing.T) {
	decisionRepo := newFakeDecisionRepo()
	rewardRepo := &fakeRewardRepo{}
	svc, registry := newTestBanditService(t, fixedStrategy{armID: 2}, decisionRepo, rewardRepo)

	decision, err := svc.Decide(context.Background(), "u1", decisionCandidates(), nil, 2)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	task := rewardTask{
		decisionID: decision.DecisionID,
		rewardType: RewardClick,
		value:      1.0,
		receivedAt: time.Now(),
	}
	if err := svc.processReward(context.Background(), task); err != nil {
		t.Fatalf("processReward: %v", err)
	}

	arm, _ := registry.ArmByID(decision.ArmID)
	if arm.RewardCount != 1 || arm.RewardSum != 1.0 {
		t.Fatalf("arm not credited: count=%d sum=%f", arm.RewardCount, arm.RewardSum)
	}
	if len(rewardRepo.rewards) != 1 {
		t.Fatalf("reward row not appended")
	}

	// Same decision, same type inside the window: duplicate is dropped.
	if err := svc.processReward(context.Background(), task); err != nil {
		t.Fatalf("duplicate processReward: %v", err)
	}
	arm, _ = registry.ArmByID(decision.ArmID)
	if arm.RewardCount != 1 {
		t.Fatalf("duplicate reward credited the arm: count=%d", arm.RewardCount)
	}
}

func TestProcessRewardUnknownDecision(t *testing.T) {
	svc, registry := newTestBanditService(t, fixedStrategy{armID: 2}, newFakeDecisionRepo(), &fakeRewardRepo{})

	task := rewardTask{decisionID: "missing", rewardType: RewardClick, value: 1.0, receivedAt: time.Now()}
	if err := svc.processReward(context.Background(), task); err == nil {
		t.Fatalf("unknown decision accepted")
	}

	for _, arm := range registry.Arms() {
		if arm.RewardCount != 0 {
			t.Fatalf("arm %s credited for unknown decision", arm.Name)
		}
	}
}
