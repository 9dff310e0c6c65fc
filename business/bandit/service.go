package bandit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"newsRanker/business/diversity"
	"newsRanker/business/personalization"
	"newsRanker/domain"
	"newsRanker/pkg/logger"
)

// DefaultArm receives traffic whenever arm selection cannot complete.
const DefaultArm = "personalized"

// DecisionRepository persists immutable decision records. Get returns
// (nil, nil) when the decision id is unknown.
type DecisionRepository interface {
	Save(ctx context.Context, decision *domain.BanditDecision) error
	Get(ctx context.Context, decisionID string) (*domain.BanditDecision, error)
}

// RewardRepository appends reward rows. HasRecent reports whether a reward of
// the same type already landed for the decision within the dedup window.
type RewardRepository interface {
	Save(ctx context.Context, reward *domain.BanditReward) error
	HasRecent(ctx context.Context, decisionID, rewardType string, since time.Time) (bool, error)
}

// Decision is the outcome of one Decide call.
type Decision struct {
	DecisionID      string
	ArmID           uint
	ArmName         string
	SelectionReason string
	DecisionValue   float64
	Items           []domain.RankedItem
}

// Service runs the multi-armed bandit over the ranking strategies.
type Service struct {
	registry     *Registry
	strategy     StrategyClient
	decisionRepo DecisionRepository
	rewardRepo   RewardRepository
	scorer       *personalization.Service
	filter       *diversity.Filter

	diversityWeight float64
	topicCap        int

	rewards chan rewardTask
}

func NewService(
	registry *Registry,
	strategy StrategyClient,
	decisionRepo DecisionRepository,
	rewardRepo RewardRepository,
	scorer *personalization.Service,
	filter *diversity.Filter,
	diversityWeight float64,
	topicCap int,
) *Service {
	return &Service{
		registry:        registry,
		strategy:        strategy,
		decisionRepo:    decisionRepo,
		rewardRepo:      rewardRepo,
		scorer:          scorer,
		filter:          filter,
		diversityWeight: diversityWeight,
		topicCap:        topicCap,
		rewards:         make(chan rewardTask, rewardQueueSize),
	}
}

// Decide picks an arm, applies that arm's ranking strategy to the candidate
// pool, and persists the decision before returning it. When selection or
// persistence fails the default arm serves the request with reason FALLBACK
// and no decision row is written, so the serving path never fails on bandit
// trouble.
func (s *Service) Decide(ctx context.Context, subjectID string, candidates []domain.Candidate, decisionContext map[string]any, limit int) (*Decision, error) {
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}

	arms := s.registry.Arms()
	selection, err := s.strategy.SelectArm(ctx, decisionContext, arms)
	if err != nil {
		logger.Warn("arm selection failed, serving default arm", "subject_id", subjectID, "error", err)
		return s.fallback(ctx, subjectID, candidates, limit)
	}

	arm, ok := s.registry.ArmByID(selection.ArmID)
	if !ok {
		logger.Warn("strategy selected unknown arm, serving default arm", "arm_id", selection.ArmID)
		return s.fallback(ctx, subjectID, candidates, limit)
	}

	items, err := s.applyStrategy(ctx, arm.Name, subjectID, candidates, limit)
	if err != nil {
		return nil, fmt.Errorf("apply strategy %q: %w", arm.Name, err)
	}

	decision := &Decision{
		DecisionID:      uuid.NewString(),
		ArmID:           arm.ID,
		ArmName:         arm.Name,
		SelectionReason: selection.Reason,
		DecisionValue:   selection.DecisionValue,
		Items:           items,
	}

	if err := s.persistDecision(ctx, subjectID, decision, decisionContext); err != nil {
		logger.Warn("decision persistence failed, serving default arm", "subject_id", subjectID, "error", err)
		return s.fallback(ctx, subjectID, candidates, limit)
	}

	decisionsTotal.WithLabelValues(arm.Name, selection.Reason).Inc()
	return decision, nil
}

// fallback serves the default arm without recording a decision; rewards can
// never be attributed to it.
func (s *Service) fallback(ctx context.Context, subjectID string, candidates []domain.Candidate, limit int) (*Decision, error) {
	items, err := s.applyStrategy(ctx, DefaultArm, subjectID, candidates, limit)
	if err != nil {
		return nil, fmt.Errorf("apply default strategy: %w", err)
	}

	decision := &Decision{
		ArmName:         DefaultArm,
		SelectionReason: ReasonFallback,
		Items:           items,
	}
	if arm, ok := s.registry.ArmByName(DefaultArm); ok {
		decision.ArmID = arm.ID
	}

	decisionsTotal.WithLabelValues(DefaultArm, ReasonFallback).Inc()
	return decision, nil
}

func (s *Service) applyStrategy(ctx context.Context, armName, subjectID string, candidates []domain.Candidate, limit int) ([]domain.RankedItem, error) {
	var items []domain.RankedItem

	switch armName {
	case "personalized":
		ranked, _, err := s.scorer.ScoreAll(ctx, subjectID, candidates)
		if err != nil {
			return nil, err
		}
		items = ranked

	case "popular":
		items = rankBy(candidates, func(a, b domain.Candidate) bool {
			return a.ImportanceScore > b.ImportanceScore
		})

	case "recent":
		items = rankBy(candidates, func(a, b domain.Candidate) bool {
			return a.PublishedAt.After(b.PublishedAt)
		})

	case "diverse":
		ranked, _, err := s.scorer.ScoreAll(ctx, subjectID, candidates)
		if err != nil {
			return nil, err
		}
		return withVariant(s.filter.Select(ctx, ranked, limit, s.diversityWeight, s.topicCap), armName), nil

	default:
		return nil, fmt.Errorf("unknown arm %q", armName)
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return withVariant(items, armName), nil
}

// rankBy orders the pool by the given comparison, scoring items by position
// so downstream consumers still see a descending RankScore.
func rankBy(candidates []domain.Candidate, less func(a, b domain.Candidate) bool) []domain.RankedItem {
	sorted := make([]domain.Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	items := make([]domain.RankedItem, 0, len(sorted))
	for i, cand := range sorted {
		items = append(items, domain.RankedItem{
			Candidate: cand,
			RankScore: 1.0 - float64(i)/float64(len(sorted)),
		})
	}
	return items
}

func withVariant(items []domain.RankedItem, armName string) []domain.RankedItem {
	for i := range items {
		items[i].SelectedVariant = armName
	}
	return items
}

func (s *Service) persistDecision(ctx context.Context, subjectID string, decision *Decision, decisionContext map[string]any) error {
	servedIDs := make([]int64, 0, len(decision.Items))
	for _, it := range decision.Items {
		servedIDs = append(servedIDs, it.Candidate.ID)
	}
	encoded, err := json.Marshal(servedIDs)
	if err != nil {
		return fmt.Errorf("encode served item ids: %w", err)
	}

	record := &domain.BanditDecision{
		DecisionID:      decision.DecisionID,
		ArmID:           decision.ArmID,
		SubjectID:       subjectID,
		Context:         datatypes.JSONMap(decisionContext),
		DecisionValue:   decision.DecisionValue,
		SelectionReason: decision.SelectionReason,
		ServedItemIDs:   datatypes.JSON(encoded),
	}
	return s.decisionRepo.Save(ctx, record)
}
