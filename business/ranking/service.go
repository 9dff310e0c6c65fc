package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"newsRanker/business/analytics"
	"newsRanker/business/diversity"
	"newsRanker/business/experiment"
	"newsRanker/business/personalization"
	"newsRanker/domain"
	"newsRanker/pkg/metrics"
)

// ExperimentKey is the A/B test governing the serving path: control gets the
// baseline blend, treatment gets personalization plus MMR diversity.
const ExperimentKey = "ranking_ab"

// Request is one ranking call for a subject.
type Request struct {
	SubjectID       string
	TargetSize      int
	DiversityWeight float64
	TopicCap        int
	Candidates      []domain.Candidate
}

// Result carries the served list together with the experiment assignment it
// was produced under.
type Result struct {
	Items      []domain.RankedItem
	Assignment domain.ExperimentAssignment
}

// Service is the experiment-aware serving path.
type Service struct {
	experiments *experiment.Service
	scorer      *personalization.Service
	filter      *diversity.Filter
	analytics   *analytics.Service

	defaultDiversityWeight float64
	defaultTopicCap        int
}

func NewService(
	experiments *experiment.Service,
	scorer *personalization.Service,
	filter *diversity.Filter,
	analyticsService *analytics.Service,
	defaultDiversityWeight float64,
	defaultTopicCap int,
) *Service {
	return &Service{
		experiments:            experiments,
		scorer:                 scorer,
		filter:                 filter,
		analytics:              analyticsService,
		defaultDiversityWeight: defaultDiversityWeight,
		defaultTopicCap:        defaultTopicCap,
	}
}

// Rank serves a subject's list under their experiment assignment and logs
// the impressions. Ranking never fails on degraded collaborators; only an
// empty pool or a scorer hard error surfaces.
func (s *Service) Rank(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	defer func() {
		metrics.RankLatency.Observe(time.Since(started).Seconds())
		metrics.RankRequests.Inc()
	}()

	if len(req.Candidates) == 0 {
		return nil, fmt.Errorf("empty candidate pool")
	}

	targetSize := req.TargetSize
	if targetSize <= 0 || targetSize > len(req.Candidates) {
		targetSize = len(req.Candidates)
	}
	lambda := req.DiversityWeight
	if lambda <= 0 || lambda > 1 {
		lambda = s.defaultDiversityWeight
	}
	topicCap := req.TopicCap
	if topicCap <= 0 {
		topicCap = s.defaultTopicCap
	}

	assignment := s.experiments.GetAssignment(ctx, req.SubjectID, ExperimentKey)

	var items []domain.RankedItem
	if assignment.Variant == "treatment" {
		ranked, _, err := s.scorer.ScoreAll(ctx, req.SubjectID, req.Candidates)
		if err != nil {
			return nil, fmt.Errorf("score candidates: %w", err)
		}
		items = s.filter.Select(ctx, ranked, targetSize, lambda, topicCap)
	} else {
		items = s.baseline(req.Candidates, targetSize)
	}

	for i := range items {
		items[i].SelectedVariant = assignment.Variant
	}

	s.analytics.LogImpressions(req.SubjectID, items, assignment)

	return &Result{Items: items, Assignment: assignment}, nil
}

// baseline is the control ranking: the weighted blend with the relevance
// term zeroed, no diversity pass.
func (s *Service) baseline(candidates []domain.Candidate, targetSize int) []domain.RankedItem {
	now := time.Now()
	items := make([]domain.RankedItem, 0, len(candidates))
	for _, cand := range candidates {
		items = append(items, domain.RankedItem{
			Candidate: cand,
			RankScore: s.scorer.RankScore(cand, 0, now),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].RankScore > items[j].RankScore
	})

	if len(items) > targetSize {
		items = items[:targetSize]
	}
	return items
}
