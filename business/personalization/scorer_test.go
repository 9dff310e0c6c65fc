package personalization

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gorm.io/datatypes"

	"newsRanker/domain"
)

type fakeProfileRepo struct {
	profiles map[string]*domain.UserProfile
}

func (r *fakeProfileRepo) GetBySubject(_ context.Context, subjectID string) (*domain.UserProfile, error) {
	p, ok := r.profiles[subjectID]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (r *fakeProfileRepo) Save(_ context.Context, profile *domain.UserProfile) error {
	copied := *profile
	r.profiles[profile.SubjectID] = &copied
	return nil
}

type fakeClickRepo struct {
	clicks []domain.ClickEvent
}

func (r *fakeClickRepo) RecentClicks(_ context.Context, _ string, _ time.Time) ([]domain.ClickEvent, error) {
	return r.clicks, nil
}

func jsonList(t *testing.T, values []string) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(values)
	if err != nil {
		t.Fatalf("marshal list: %v", err)
	}
	return raw
}

func closeTo(got, want float64) bool {
	diff := got - want
	return diff < 1e-9 && diff > -1e-9
}

func newTestService(profiles map[string]*domain.UserProfile, clicks []domain.ClickEvent) *Service {
	return NewService(
		&fakeProfileRepo{profiles: profiles},
		&fakeClickRepo{clicks: clicks},
		DefaultWeights(),
	)
}

func TestRelevanceDisabledProfileIsZero(t *testing.T) {
	svc := newTestService(map[string]*domain.UserProfile{}, nil)

	profile := &domain.UserProfile{PersonalizationEnabled: false}
	cand := domain.Candidate{Title: "samsung earnings", Tickers: []string{"005930"}}

	if got := svc.Relevance(profile, nil, cand); got != 0.0 {
		t.Fatalf("disabled profile relevance = %f, want 0", got)
	}
	if got := svc.Relevance(nil, nil, cand); got != 0.0 {
		t.Fatalf("nil profile relevance = %f, want 0", got)
	}
}

func TestRelevanceTickerMatchCountsOnce(t *testing.T) {
	svc := newTestService(map[string]*domain.UserProfile{}, nil)

	profile := &domain.UserProfile{
		PersonalizationEnabled: true,
		InterestedTickers:      jsonList(t, []string{"005930", "000660"}),
		InterestedKeywords:     jsonList(t, nil),
	}
	// Candidate matches both interested tickers; the boost applies once.
	cand := domain.Candidate{Tickers: []string{"005930", "000660"}}

	if got := svc.Relevance(profile, nil, cand); got != 0.3 {
		t.Fatalf("double ticker match relevance = %f, want single boost 0.3", got)
	}
}

func TestRelevanceClickHistoryBand(t *testing.T) {
	svc := newTestService(map[string]*domain.UserProfile{}, nil)
	profile := &domain.UserProfile{PersonalizationEnabled: true}
	cand := domain.Candidate{Tickers: []string{"005930"}}

	// No relevant clicks: the term contributes nothing, not the band floor.
	unrelated := []domain.ClickEvent{{Tickers: "035420"}, {Tickers: "000660"}}
	if got := svc.Relevance(profile, unrelated, cand); got != 0.0 {
		t.Fatalf("no relevant clicks relevance = %f, want 0", got)
	}

	// Half the clicks relevant: 0.1 + 0.5*0.2 = 0.2.
	mixed := []domain.ClickEvent{{Tickers: "005930"}, {Tickers: "035420"}}
	if got := svc.Relevance(profile, mixed, cand); !closeTo(got, 0.2) {
		t.Fatalf("half relevant clicks relevance = %f, want 0.2", got)
	}

	// All clicks relevant: band ceiling 0.3.
	all := []domain.ClickEvent{{Tickers: "005930"}, {Tickers: "005930,000660"}}
	if got := svc.Relevance(profile, all, cand); !closeTo(got, 0.3) {
		t.Fatalf("all relevant clicks relevance = %f, want 0.3", got)
	}
}

func TestScoreAllWithoutProfileMatchesBaseline(t *testing.T) {
	svc := newTestService(map[string]*domain.UserProfile{}, nil)

	now := time.Now()
	candidates := []domain.Candidate{
		{ID: 1, ImportanceScore: 0.9, PublishedAt: now.Add(-30 * time.Minute)},
		{ID: 2, ImportanceScore: 0.5, PublishedAt: now.Add(-3 * time.Hour)},
	}

	items, personalized, err := svc.ScoreAll(context.Background(), "new-subject", candidates)
	if err != nil {
		t.Fatalf("ScoreAll: %v", err)
	}
	if personalized {
		t.Fatalf("fresh subject must not be personalized")
	}

	for _, item := range items {
		want := svc.RankScore(item.Candidate, 0, now)
		if diff := item.RankScore - want; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("item %d score %f deviates from zero-relevance blend %f", item.Candidate.ID, item.RankScore, want)
		}
	}
	if items[0].Candidate.ID != 1 {
		t.Fatalf("ranking order wrong: first item %d", items[0].Candidate.ID)
	}
}

func TestRecencyScoreMonotone(t *testing.T) {
	now := time.Now()

	if got := RecencyScore(now.Add(-30*time.Minute), now); got != 1.0 {
		t.Fatalf("30min old scored %f, want 1", got)
	}
	if got := RecencyScore(now.Add(-49*time.Hour), now); got != 0.0 {
		t.Fatalf("49h old scored %f, want 0", got)
	}

	previous := 1.0
	for hours := 1; hours <= 48; hours++ {
		score := RecencyScore(now.Add(-time.Duration(hours)*time.Hour), now)
		if score > previous {
			t.Fatalf("recency not monotone at %dh: %f > %f", hours, score, previous)
		}
		previous = score
	}
}

func TestNoveltyScoreSteps(t *testing.T) {
	now := time.Now()
	cases := []struct {
		age  time.Duration
		want float64
	}{
		{10 * time.Minute, 1.0},
		{time.Hour, 0.7},
		{4 * time.Hour, 0.4},
		{24 * time.Hour, 0.1},
	}
	for _, tc := range cases {
		if got := NoveltyScore(now.Add(-tc.age), now); got != tc.want {
			t.Fatalf("age %v scored %f, want %f", tc.age, got, tc.want)
		}
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	repo := map[string]*domain.UserProfile{}
	svc := newTestService(repo, nil)

	enabled := true
	profile, err := svc.UpdateProfile(context.Background(), "u1", []string{"005930"}, nil, nil, &enabled)
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if !profile.PersonalizationEnabled {
		t.Fatalf("personalization flag not applied")
	}

	// Second partial update leaves tickers untouched.
	weight := 0.5
	profile, err = svc.UpdateProfile(context.Background(), "u1", nil, nil, &weight, nil)
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if profile.DiversityWeight != 0.5 {
		t.Fatalf("diversity weight = %f, want 0.5", profile.DiversityWeight)
	}
	var tickers []string
	if err := json.Unmarshal(profile.InterestedTickers, &tickers); err != nil || len(tickers) != 1 || tickers[0] != "005930" {
		t.Fatalf("tickers not preserved across partial update: %v (%v)", tickers, err)
	}
}
