package personalization

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"newsRanker/domain"
	"newsRanker/pkg/logger"

	"gorm.io/datatypes"
)

const (
	// Clicks older than this window no longer influence relevance.
	clickHistoryDays = 7

	defaultDiversityWeight = 0.7
)

// ProfileRepository persists subject preference rows.
type ProfileRepository interface {
	GetBySubject(ctx context.Context, subjectID string) (*domain.UserProfile, error)
	Save(ctx context.Context, profile *domain.UserProfile) error
}

// ClickRepository reads a subject's recent click history.
type ClickRepository interface {
	RecentClicks(ctx context.Context, subjectID string, since time.Time) ([]domain.ClickEvent, error)
}

type Service struct {
	profileRepo ProfileRepository
	clickRepo   ClickRepository
	weights     Weights
}

func NewService(profileRepo ProfileRepository, clickRepo ClickRepository, weights Weights) *Service {
	return &Service{
		profileRepo: profileRepo,
		clickRepo:   clickRepo,
		weights:     weights.normalized(),
	}
}

// GetProfile returns the subject's profile, creating a default one with
// personalization disabled when none exists yet.
func (s *Service) GetProfile(ctx context.Context, subjectID string) (*domain.UserProfile, error) {
	profile, err := s.profileRepo.GetBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile != nil {
		return profile, nil
	}

	profile = &domain.UserProfile{
		SubjectID:              subjectID,
		InterestedTickers:      datatypes.JSON([]byte("[]")),
		InterestedKeywords:     datatypes.JSON([]byte("[]")),
		DiversityWeight:        defaultDiversityWeight,
		PersonalizationEnabled: false,
		IsActive:               true,
	}
	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return nil, fmt.Errorf("create default profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile applies partial preference updates. Nil fields are left
// untouched.
func (s *Service) UpdateProfile(
	ctx context.Context,
	subjectID string,
	tickers []string,
	keywords []string,
	diversityWeight *float64,
	personalizationEnabled *bool,
) (*domain.UserProfile, error) {
	profile, err := s.GetProfile(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	if tickers != nil {
		raw, err := json.Marshal(tickers)
		if err != nil {
			return nil, fmt.Errorf("encode tickers: %w", err)
		}
		profile.InterestedTickers = raw
	}
	if keywords != nil {
		raw, err := json.Marshal(keywords)
		if err != nil {
			return nil, fmt.Errorf("encode keywords: %w", err)
		}
		profile.InterestedKeywords = raw
	}
	if diversityWeight != nil {
		profile.DiversityWeight = *diversityWeight
	}
	if personalizationEnabled != nil {
		profile.PersonalizationEnabled = *personalizationEnabled
	}

	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}

// Deactivate soft-disables a profile; preference rows are never deleted.
func (s *Service) Deactivate(ctx context.Context, subjectID string) error {
	profile, err := s.GetProfile(ctx, subjectID)
	if err != nil {
		return err
	}
	profile.IsActive = false
	return s.profileRepo.Save(ctx, profile)
}

func (s *Service) recentClicks(ctx context.Context, subjectID string) []domain.ClickEvent {
	since := time.Now().AddDate(0, 0, -clickHistoryDays)
	clicks, err := s.clickRepo.RecentClicks(ctx, subjectID, since)
	if err != nil {
		logger.Warn("failed to load click history, scoring without it", "subject_id", subjectID, "error", err)
		return nil
	}
	return clicks
}

func decodeStringList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.Warn("malformed preference list, ignoring", "error", err)
		return nil
	}
	return out
}
