package bandit

import (
	"context"
	"fmt"
	"math"
	"time"

	"newsRanker/domain"
	"newsRanker/pkg/logger"
)

const (
	rewardQueueSize = 1024

	// Rewards of the same type for the same decision within this window are
	// treated as duplicates.
	rewardDedupWindow = time.Second
)

// Reward event types accepted on the ingestion path.
const (
	RewardClick = "click"
	RewardDwell = "dwell"
)

type rewardTask struct {
	decisionID string
	rewardType string
	value      float64
	itemID     *int64
	receivedAt time.Time
}

// RewardValue normalizes an incoming reward event to [0,1]. Clicks are a full
// reward; dwell time saturates at one minute.
func RewardValue(rewardType string, raw float64) (float64, error) {
	switch rewardType {
	case RewardClick:
		return 1.0, nil
	case RewardDwell:
		return math.Min(raw/60.0, 1.0), nil
	default:
		return 0, fmt.Errorf("unknown reward type %q", rewardType)
	}
}

// RecordReward enqueues a reward event for asynchronous processing. It never
// blocks the caller: when the queue is full the event is dropped and counted.
func (s *Service) RecordReward(decisionID, rewardType string, raw float64, itemID *int64) error {
	value, err := RewardValue(rewardType, raw)
	if err != nil {
		rewardsDropped.WithLabelValues("invalid_type").Inc()
		return err
	}

	task := rewardTask{
		decisionID: decisionID,
		rewardType: rewardType,
		value:      value,
		itemID:     itemID,
		receivedAt: time.Now(),
	}

	select {
	case s.rewards <- task:
		return nil
	default:
		rewardsDropped.WithLabelValues("queue_full").Inc()
		logger.Warn("reward queue full, dropping event", "decision_id", decisionID, "reward_type", rewardType)
		return nil
	}
}

// RunRewardWorker drains the reward queue until the context is cancelled.
// Launched once from main.
func (s *Service) RunRewardWorker(ctx context.Context) {
	logger.Info("reward worker started", "queue_size", rewardQueueSize)
	for {
		select {
		case <-ctx.Done():
			logger.Info("reward worker stopped")
			return
		case task := <-s.rewards:
			if err := s.processReward(ctx, task); err != nil {
				logger.Warn("reward rejected", "decision_id", task.decisionID, "reward_type", task.rewardType, "error", err)
			}
		}
	}
}

// processReward validates the event against its decision, appends the reward
// row, and credits the arm. Duplicate events inside the dedup window are
// dropped so retried clients cannot double-credit an arm.
func (s *Service) processReward(ctx context.Context, task rewardTask) error {
	decision, err := s.decisionRepo.Get(ctx, task.decisionID)
	if err != nil {
		rewardsDropped.WithLabelValues("lookup_failed").Inc()
		return fmt.Errorf("load decision: %w", err)
	}
	if decision == nil {
		rewardsDropped.WithLabelValues("unknown_decision").Inc()
		return fmt.Errorf("decision %q not found", task.decisionID)
	}

	duplicate, err := s.rewardRepo.HasRecent(ctx, task.decisionID, task.rewardType, task.receivedAt.Add(-rewardDedupWindow))
	if err != nil {
		rewardsDropped.WithLabelValues("dedup_failed").Inc()
		return fmt.Errorf("check duplicate: %w", err)
	}
	if duplicate {
		rewardsDropped.WithLabelValues("duplicate").Inc()
		return nil
	}

	reward := &domain.BanditReward{
		DecisionID:  task.decisionID,
		RewardType:  task.rewardType,
		RewardValue: task.value,
		ItemID:      task.itemID,
	}
	if err := s.rewardRepo.Save(ctx, reward); err != nil {
		rewardsDropped.WithLabelValues("save_failed").Inc()
		return fmt.Errorf("save reward: %w", err)
	}

	if err := s.registry.AddReward(ctx, decision.ArmID, task.value); err != nil {
		return fmt.Errorf("credit arm: %w", err)
	}

	arm, _ := s.registry.ArmByID(decision.ArmID)
	rewardsTotal.WithLabelValues(arm.Name, task.rewardType).Inc()
	return nil
}
