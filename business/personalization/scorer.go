package personalization

import (
	"context"
	"sort"
	"strings"
	"time"

	"newsRanker/domain"
	"newsRanker/pkg/logger"
)

const (
	tickerMatchBoost  = 0.3
	keywordMatchBoost = 0.1

	// Click-history contribution band.
	minClickWeight = 0.1
	maxClickWeight = 0.3

	topicMatchBoost = 0.1
)

// Weights is the final rank-score blend. The four terms must sum to 1;
// normalized() repairs drifted configuration instead of failing.
type Weights struct {
	Importance float64
	Recency    float64
	Relevance  float64
	Novelty    float64
}

func DefaultWeights() Weights {
	return Weights{Importance: 0.45, Recency: 0.20, Relevance: 0.25, Novelty: 0.10}
}

func (w Weights) normalized() Weights {
	sum := w.Importance + w.Recency + w.Relevance + w.Novelty
	if sum <= 0 {
		return DefaultWeights()
	}
	if sum != 1.0 {
		logger.Warn("rank weights do not sum to 1, normalizing", "sum", sum)
		w.Importance /= sum
		w.Recency /= sum
		w.Relevance /= sum
		w.Novelty /= sum
	}
	return w
}

// Relevance computes the subject-specific relevance term in [0,1] for one
// candidate. A disabled profile always contributes 0.
func (s *Service) Relevance(profile *domain.UserProfile, clicks []domain.ClickEvent, cand domain.Candidate) float64 {
	if profile == nil || !profile.PersonalizationEnabled {
		return 0.0
	}

	relevance := interestRelevance(profile, cand)
	relevance += clickHistoryRelevance(clicks, cand)
	relevance += topicRelevance(clicks, cand)

	if relevance > 1.0 {
		relevance = 1.0
	}
	if relevance < 0.0 {
		relevance = 0.0
	}
	return relevance
}

func interestRelevance(profile *domain.UserProfile, cand domain.Candidate) float64 {
	relevance := 0.0

	for _, interested := range decodeStringList(profile.InterestedTickers) {
		if containsTicker(cand.Tickers, interested) {
			relevance += tickerMatchBoost
			break // one match is enough
		}
	}

	text := strings.ToLower(cand.Title + " " + cand.Body)
	for _, keyword := range decodeStringList(profile.InterestedKeywords) {
		if keyword != "" && strings.Contains(text, strings.ToLower(keyword)) {
			relevance += keywordMatchBoost
		}
	}

	return relevance
}

// clickHistoryRelevance scales the fraction of recent clicks sharing a
// ticker with the candidate into [minClickWeight, maxClickWeight].
func clickHistoryRelevance(clicks []domain.ClickEvent, cand domain.Candidate) float64 {
	if len(clicks) == 0 || len(cand.Tickers) == 0 {
		return 0.0
	}

	relevant := 0
	for _, click := range clicks {
		for _, t := range strings.Split(click.Tickers, ",") {
			if t != "" && containsTicker(cand.Tickers, t) {
				relevant++
				break
			}
		}
	}
	if relevant == 0 {
		return 0.0
	}

	fraction := float64(relevant) / float64(len(clicks))
	return minClickWeight + fraction*(maxClickWeight-minClickWeight)
}

// topicRelevance rewards overlap with the topics of recently clicked items;
// 0 whenever topic data is unavailable on either side.
func topicRelevance(clicks []domain.ClickEvent, cand domain.Candidate) float64 {
	if cand.TopicID == nil || len(clicks) == 0 {
		return 0.0
	}

	matching := 0
	withTopic := 0
	for _, click := range clicks {
		if click.TopicID == nil {
			continue
		}
		withTopic++
		if *click.TopicID == *cand.TopicID {
			matching++
		}
	}
	if withTopic == 0 {
		return 0.0
	}

	return topicMatchBoost * float64(matching) / float64(withTopic)
}

func containsTicker(tickers []string, ticker string) bool {
	for _, t := range tickers {
		if strings.EqualFold(t, ticker) {
			return true
		}
	}
	return false
}

// RankScore blends importance, recency, relevance and novelty with the
// configured weight vector.
func (s *Service) RankScore(cand domain.Candidate, relevance float64, now time.Time) float64 {
	return s.weights.Importance*cand.ImportanceScore +
		s.weights.Recency*RecencyScore(cand.PublishedAt, now) +
		s.weights.Relevance*relevance +
		s.weights.Novelty*NoveltyScore(cand.PublishedAt, now)
}

// ScoreAll ranks the pool for one subject, descending by blended score.
// The returned flag reports whether personalization was actually applied.
func (s *Service) ScoreAll(ctx context.Context, subjectID string, candidates []domain.Candidate) ([]domain.RankedItem, bool, error) {
	profile, err := s.GetProfile(ctx, subjectID)
	if err != nil {
		// Degraded: rank without the relevance term rather than fail.
		logger.Warn("profile store unavailable, serving unpersonalized", "subject_id", subjectID, "error", err)
		profile = nil
	}

	personalized := profile != nil && profile.PersonalizationEnabled

	var clicks []domain.ClickEvent
	if personalized {
		clicks = s.recentClicks(ctx, subjectID)
	}

	now := time.Now()
	items := make([]domain.RankedItem, 0, len(candidates))
	for _, cand := range candidates {
		relevance := s.Relevance(profile, clicks, cand)
		items = append(items, domain.RankedItem{
			Candidate:             cand,
			RankScore:             s.RankScore(cand, relevance, now),
			PersonalizedRelevance: relevance,
			Personalized:          personalized,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].RankScore > items[j].RankScore
	})

	return items, personalized, nil
}

// RecencyScore decays linearly from 1.0 below one hour of age to 0.0 at 48
// hours.
func RecencyScore(publishedAt, now time.Time) float64 {
	if publishedAt.IsZero() {
		return 0.0
	}

	hours := now.Sub(publishedAt).Hours()
	switch {
	case hours <= 1:
		return 1.0
	case hours >= 48:
		return 0.0
	default:
		return 1.0 - (hours-1)/47
	}
}

// NoveltyScore is a coarser step decay keyed off minutes since publication.
func NoveltyScore(publishedAt, now time.Time) float64 {
	if publishedAt.IsZero() {
		return 0.0
	}

	age := now.Sub(publishedAt)
	switch {
	case age < 30*time.Minute:
		return 1.0
	case age < 2*time.Hour:
		return 0.7
	case age < 6*time.Hour:
		return 0.4
	default:
		return 0.1
	}
}
