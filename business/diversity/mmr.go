package diversity

import (
	"context"
	"math"
	"sort"

	"newsRanker/domain"
)

// DefaultTopicCap limits how many items of one topic cluster survive into a
// served list.
const DefaultTopicCap = 2

// SimilarityResolver scores two candidates in [0,1].
type SimilarityResolver interface {
	Similarity(ctx context.Context, a, b domain.Candidate) float64
}

// Filter selects a diverse subset of an already relevance-sorted pool using
// Maximal Marginal Relevance, then enforces a per-topic cap.
type Filter struct {
	sim SimilarityResolver
}

func NewFilter(sim SimilarityResolver) *Filter {
	return &Filter{sim: sim}
}

// Select runs MMR over the pool and applies the topic cap. The input must be
// sorted descending by rank score; callers bound the pool size themselves
// (min(3K, 100) is the convention) to keep the O(K·N) similarity work cheap.
func (f *Filter) Select(ctx context.Context, items []domain.RankedItem, targetSize int, lambda float64, topicCap int) []domain.RankedItem {
	if topicCap <= 0 {
		topicCap = DefaultTopicCap
	}

	selected := f.ApplyMMR(ctx, items, targetSize, lambda)
	selected = enforceTopicCap(selected, topicCap)

	if len(selected) > targetSize {
		selected = selected[:targetSize]
	}
	for i := range selected {
		selected[i].DiversityApplied = true
	}
	return selected
}

// ApplyMMR greedily picks targetSize items maximizing
// lambda*relevance - (1-lambda)*max similarity to the already-chosen set.
// Ties go to the earlier candidate in the original order.
func (f *Filter) ApplyMMR(ctx context.Context, items []domain.RankedItem, targetSize int, lambda float64) []domain.RankedItem {
	if len(items) <= targetSize {
		return items
	}

	maxScore := 0.0
	for _, it := range items {
		if it.RankScore > maxScore {
			maxScore = it.RankScore
		}
	}
	if maxScore == 0 {
		maxScore = 1
	}

	selected := make([]domain.RankedItem, 0, targetSize)
	remaining := make([]domain.RankedItem, len(items))
	copy(remaining, items)

	// Highest-ranked item always leads.
	selected = append(selected, remaining[0])
	remaining = remaining[1:]

	for len(selected) < targetSize && len(remaining) > 0 {
		bestIdx := 0
		bestScore := math.Inf(-1)

		for i, cand := range remaining {
			relevance := cand.RankScore / maxScore

			maxSim := 0.0
			for _, s := range selected {
				sim := f.sim.Similarity(ctx, cand.Candidate, s.Candidate)
				if sim > maxSim {
					maxSim = sim
				}
			}

			score := lambda*relevance - (1-lambda)*maxSim
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

// enforceTopicCap keeps at most cap items per topic cluster, preferring
// higher rank scores, then re-sorts the survivors by rank score descending.
// Items without a topic id are exempt.
func enforceTopicCap(items []domain.RankedItem, maxPerTopic int) []domain.RankedItem {
	byTopic := make(map[int64]int)
	out := make([]domain.RankedItem, 0, len(items))

	sorted := make([]domain.RankedItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RankScore > sorted[j].RankScore
	})

	for _, it := range sorted {
		if it.Candidate.TopicID == nil {
			out = append(out, it)
			continue
		}
		topic := *it.Candidate.TopicID
		if byTopic[topic] >= maxPerTopic {
			continue
		}
		byTopic[topic]++
		out = append(out, it)
	}

	return out
}

// Score reports 1 minus the average pairwise similarity of the list: an
// all-identical list scores 0, an all-dissimilar list approaches 1.
func (f *Filter) Score(ctx context.Context, items []domain.RankedItem) float64 {
	if len(items) < 2 {
		return 1.0
	}

	total := 0.0
	pairs := 0
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			total += f.sim.Similarity(ctx, items[i].Candidate, items[j].Candidate)
			pairs++
		}
	}

	return 1.0 - total/float64(pairs)
}
