package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"newsRanker/domain"
)

type BanditArmRepository struct {
	DB *gorm.DB
}

func NewBanditArmRepository(db *gorm.DB) *BanditArmRepository {
	return &BanditArmRepository{
		DB: db,
	}
}

func (r *BanditArmRepository) List(ctx context.Context) ([]domain.BanditArm, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var arms []domain.BanditArm
	err := r.DB.WithContext(ctx).Order("id ASC").Find(&arms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bandit arms: %w", err)
	}

	return arms, nil
}

func (r *BanditArmRepository) Save(ctx context.Context, arm *domain.BanditArm) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Save(arm).Error; err != nil {
		return fmt.Errorf("failed to save bandit arm: %w", err)
	}

	return nil
}

// AddReward increments the arm statistics in a single UPDATE so concurrent
// reward workers never lose an increment.
func (r *BanditArmRepository) AddReward(ctx context.Context, armID uint, value float64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).
		Model(&domain.BanditArm{}).
		Where("id = ?", armID).
		Updates(map[string]interface{}{
			"reward_count": gorm.Expr("reward_count + 1"),
			"reward_sum":   gorm.Expr("reward_sum + ?", value),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to credit bandit arm: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("bandit arm not found")
	}

	return nil
}

type BanditDecisionRepository struct {
	DB *gorm.DB
}

func NewBanditDecisionRepository(db *gorm.DB) *BanditDecisionRepository {
	return &BanditDecisionRepository{
		DB: db,
	}
}

func (r *BanditDecisionRepository) Save(ctx context.Context, decision *domain.BanditDecision) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(decision).Error; err != nil {
		return fmt.Errorf("failed to save bandit decision: %w", err)
	}

	return nil
}

// Get returns (nil, nil) for an unknown decision id.
func (r *BanditDecisionRepository) Get(ctx context.Context, decisionID string) (*domain.BanditDecision, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var decision domain.BanditDecision
	err := r.DB.WithContext(ctx).Where("decision_id = ?", decisionID).First(&decision).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find bandit decision: %w", err)
	}

	return &decision, nil
}

type BanditRewardRepository struct {
	DB *gorm.DB
}

func NewBanditRewardRepository(db *gorm.DB) *BanditRewardRepository {
	return &BanditRewardRepository{
		DB: db,
	}
}

func (r *BanditRewardRepository) Save(ctx context.Context, reward *domain.BanditReward) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(reward).Error; err != nil {
		return fmt.Errorf("failed to save bandit reward: %w", err)
	}

	return nil
}

func (r *BanditRewardRepository) HasRecent(ctx context.Context, decisionID, rewardType string, since time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}

	var count int64
	err := r.DB.WithContext(ctx).
		Model(&domain.BanditReward{}).
		Where("decision_id = ? AND reward_type = ? AND created_at >= ?", decisionID, rewardType, since).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate reward: %w", err)
	}

	return count > 0, nil
}
