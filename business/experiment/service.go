package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"newsRanker/domain"
	"newsRanker/pkg/logger"
)

const definitionCacheTTL = time.Minute

// Repository persists experiment definitions. GetByKey returns (nil, nil)
// when no experiment exists under the key.
type Repository interface {
	GetByKey(ctx context.Context, key string) (*domain.Experiment, error)
	ListActive(ctx context.Context) ([]domain.Experiment, error)
	Save(ctx context.Context, exp *domain.Experiment) error
}

// AlertRepository records automatic interventions.
type AlertRepository interface {
	Save(ctx context.Context, alert *domain.ExperimentAlert) error
}

type Service struct {
	repo  Repository
	cache *definitionCache
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		cache: newDefinitionCache(definitionCacheTTL),
	}
}

// Create validates and stores a new experiment definition.
func (s *Service) Create(ctx context.Context, exp *domain.Experiment) error {
	if exp.ExperimentKey == "" {
		return fmt.Errorf("experiment_key is required")
	}

	allocations, err := DecodeAllocations(exp.Allocations)
	if err != nil {
		return fmt.Errorf("invalid allocations: %w", err)
	}
	if len(allocations) == 0 {
		return fmt.Errorf("at least one variant allocation is required")
	}
	if sum := allocationSum(allocations); sum != 100 {
		return fmt.Errorf("variant percentages must sum to 100, got %d", sum)
	}

	if exp.AutoStopConsecutiveDays <= 0 {
		exp.AutoStopConsecutiveDays = 2
	}

	if err := s.repo.Save(ctx, exp); err != nil {
		return fmt.Errorf("save experiment: %w", err)
	}
	s.cache.invalidate(exp.ExperimentKey)
	return nil
}

// Get returns the definition for a key, nil when absent.
func (s *Service) Get(ctx context.Context, key string) (*domain.Experiment, error) {
	if exp, ok := s.cache.get(key); ok {
		return exp, nil
	}

	exp, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load experiment %q: %w", key, err)
	}
	s.cache.put(key, exp)
	return exp, nil
}

func (s *Service) ListActive(ctx context.Context) ([]domain.Experiment, error) {
	return s.repo.ListActive(ctx)
}

// Activate flips an experiment live.
func (s *Service) Activate(ctx context.Context, key string) error {
	return s.setActive(ctx, key, true, "")
}

// Stop deactivates an experiment. Definitions are never deleted; the row
// stays behind for audit.
func (s *Service) Stop(ctx context.Context, key, reason string) error {
	return s.setActive(ctx, key, false, reason)
}

func (s *Service) setActive(ctx context.Context, key string, active bool, reason string) error {
	exp, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return fmt.Errorf("load experiment %q: %w", key, err)
	}
	if exp == nil {
		return fmt.Errorf("experiment %q not found", key)
	}

	exp.IsActive = active
	if err := s.repo.Save(ctx, exp); err != nil {
		return fmt.Errorf("save experiment %q: %w", key, err)
	}
	s.cache.invalidate(key)

	if !active {
		logger.Info("experiment stopped", "experiment_key", key, "reason", reason)
	}
	return nil
}

// DecodeAllocations parses the ordered traffic table from its JSON column.
func DecodeAllocations(raw []byte) ([]domain.VariantAllocation, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var allocations []domain.VariantAllocation
	if err := json.Unmarshal(raw, &allocations); err != nil {
		return nil, err
	}
	return allocations, nil
}

func allocationSum(allocations []domain.VariantAllocation) int {
	sum := 0
	for _, a := range allocations {
		sum += a.Percent
	}
	return sum
}
