package bandit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"newsRanker/domain"
)

// ArmRepository persists arm statistics. AddReward must be atomic at the
// storage level (single UPDATE incrementing count and sum).
type ArmRepository interface {
	List(ctx context.Context) ([]domain.BanditArm, error)
	Save(ctx context.Context, arm *domain.BanditArm) error
	AddReward(ctx context.Context, armID uint, value float64) error
}

// Registry holds the live arm statistics. Reads are lock-protected
// snapshots; reward updates go through the repository first so the database
// row and the in-memory view move together.
type Registry struct {
	mu   sync.RWMutex
	repo ArmRepository
	arms map[uint]domain.BanditArm
}

func NewRegistry(repo ArmRepository) *Registry {
	return &Registry{
		repo: repo,
		arms: make(map[uint]domain.BanditArm),
	}
}

// Load pulls the registered arms from storage, seeding the defaults when the
// table is empty (first boot).
func (r *Registry) Load(ctx context.Context) error {
	arms, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list arms: %w", err)
	}

	if len(arms) == 0 {
		for _, name := range []string{"personalized", "popular", "recent", "diverse"} {
			arm := domain.BanditArm{Name: name}
			if err := r.repo.Save(ctx, &arm); err != nil {
				return fmt.Errorf("seed arm %q: %w", name, err)
			}
			arms = append(arms, arm)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, arm := range arms {
		r.arms[arm.ID] = arm
	}
	return nil
}

// Arms returns a stable snapshot sorted by arm id.
func (r *Registry) Arms() []domain.BanditArm {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.BanditArm, 0, len(r.arms))
	for _, arm := range r.arms {
		out = append(out, arm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) ArmByID(id uint) (domain.BanditArm, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	arm, ok := r.arms[id]
	return arm, ok
}

func (r *Registry) ArmByName(name string) (domain.BanditArm, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, arm := range r.arms {
		if arm.Name == name {
			return arm, true
		}
	}
	return domain.BanditArm{}, false
}

// AddReward applies one observed reward to an arm, storage first, then the
// in-memory statistics under the registry lock so concurrent updates are
// never lost.
func (r *Registry) AddReward(ctx context.Context, armID uint, value float64) error {
	if err := r.repo.AddReward(ctx, armID, value); err != nil {
		return fmt.Errorf("persist reward for arm %d: %w", armID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	arm, ok := r.arms[armID]
	if !ok {
		return fmt.Errorf("arm %d not registered", armID)
	}
	arm.RewardCount++
	arm.RewardSum += value
	r.arms[armID] = arm
	return nil
}
