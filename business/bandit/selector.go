package bandit

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"newsRanker/domain"
)

// Selection reasons recorded on every decision.
const (
	ReasonExploration  = "EXPLORATION"
	ReasonExploitation = "EXPLOITATION"
	ReasonFallback     = "FALLBACK"
)

// Selection is the outcome of one arm pick.
type Selection struct {
	ArmID         uint
	DecisionValue float64
	Reason        string
}

// StrategyClient chooses an arm given the decision context and the current
// arm statistics. The default wiring is the local epsilon-greedy Selector; a
// remote strategy sidecar satisfies the same interface.
type StrategyClient interface {
	SelectArm(ctx context.Context, decisionContext map[string]any, arms []domain.BanditArm) (Selection, error)
}

// Selector is the in-process epsilon-greedy strategy.
type Selector struct {
	epsilon float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSelector(epsilon float64, seed int64) *Selector {
	return &Selector{
		epsilon: epsilon,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// SelectArm explores with probability epsilon, and always explores while no
// arm has been pulled yet. Otherwise it exploits the highest mean reward,
// breaking ties toward the lowest arm id.
func (s *Selector) SelectArm(_ context.Context, _ map[string]any, arms []domain.BanditArm) (Selection, error) {
	if len(arms) == 0 {
		return Selection{}, fmt.Errorf("no arms registered")
	}

	totalPulls := int64(0)
	for _, arm := range arms {
		totalPulls += arm.RewardCount
	}

	if totalPulls == 0 || s.roll() < s.epsilon {
		arm := arms[s.pick(len(arms))]
		return Selection{
			ArmID:         arm.ID,
			DecisionValue: s.epsilon,
			Reason:        ReasonExploration,
		}, nil
	}

	best := arms[0]
	for _, arm := range arms[1:] {
		if arm.MeanReward() > best.MeanReward() {
			best = arm
		}
	}
	return Selection{
		ArmID:         best.ID,
		DecisionValue: best.MeanReward(),
		Reason:        ReasonExploitation,
	}, nil
}

func (s *Selector) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Selector) pick(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
