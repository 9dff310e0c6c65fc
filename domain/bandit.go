package domain

import (
	"time"

	"gorm.io/datatypes"
)

// BanditArm is one ranking strategy with its running reward statistics.
// Count/sum are mutated atomically on reward ingestion and never reset.
type BanditArm struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"column:name;uniqueIndex;not null;size:100" json:"name"`
	RewardCount int64     `gorm:"column:reward_count;not null;default:0" json:"reward_count"`
	RewardSum   float64   `gorm:"column:reward_sum;not null;default:0" json:"reward_sum"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (BanditArm) TableName() string {
	return "bandit_arm"
}

// MeanReward is the arm's observed average, 0 before any reward.
func (a BanditArm) MeanReward() float64 {
	if a.RewardCount == 0 {
		return 0
	}
	return a.RewardSum / float64(a.RewardCount)
}

// BanditDecision is one arm-selection event. Immutable once written.
type BanditDecision struct {
	DecisionID      string            `gorm:"column:decision_id;primaryKey;size:36" json:"decision_id"`
	ArmID           uint              `gorm:"column:arm_id;not null;index" json:"arm_id"`
	SubjectID       string            `gorm:"column:subject_id;index;size:100" json:"subject_id"`
	Context         datatypes.JSONMap `gorm:"column:context;type:jsonb" json:"context"`
	DecisionValue   float64           `gorm:"column:decision_value" json:"decision_value"`
	SelectionReason string            `gorm:"column:selection_reason;size:50" json:"selection_reason"`
	ServedItemIDs   datatypes.JSON    `gorm:"column:served_item_ids;type:jsonb" json:"served_item_ids"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (BanditDecision) TableName() string {
	return "bandit_decision"
}

// BanditReward ties an observed outcome back to a decision. Append-only; one
// decision may accumulate several rewards.
type BanditReward struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DecisionID  string    `gorm:"column:decision_id;not null;index;size:36" json:"decision_id"`
	RewardType  string    `gorm:"column:reward_type;not null;size:50" json:"reward_type"`
	RewardValue float64   `gorm:"column:reward_value;not null" json:"reward_value"`
	ItemID      *int64    `gorm:"column:item_id" json:"item_id,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (BanditReward) TableName() string {
	return "bandit_reward"
}
