package similarity

import (
	"context"
	"math"
	"strings"

	"newsRanker/domain"
	"newsRanker/pkg/logger"
)

// sameTopicSimilarity is the fixed score for two candidates that share a
// topic cluster when neither has a resolvable embedding.
const sameTopicSimilarity = 0.9

// Resolver scores how alike two candidates are, in [0,1], using the best
// available signal: embedding cosine, then topic identity, then lexical
// overlap. It never returns an error; a failing tier degrades to the next.
type Resolver struct {
	vectors VectorStore
}

func NewResolver(vectors VectorStore) *Resolver {
	return &Resolver{vectors: vectors}
}

func (r *Resolver) Similarity(ctx context.Context, a, b domain.Candidate) float64 {
	if sim, ok := r.embeddingSimilarity(ctx, a, b); ok {
		return sim
	}

	if a.TopicID != nil && b.TopicID != nil {
		if *a.TopicID == *b.TopicID {
			return sameTopicSimilarity
		}
		return 0.0
	}

	return r.lexicalSimilarity(a, b)
}

func (r *Resolver) embeddingSimilarity(ctx context.Context, a, b domain.Candidate) (float64, bool) {
	if r.vectors == nil || a.EmbeddingRef == nil || b.EmbeddingRef == nil {
		return 0, false
	}

	va, err := r.vectors.GetVector(ctx, *a.EmbeddingRef)
	if err != nil {
		logger.Warn("embedding lookup failed, degrading to topic tier", "ref", *a.EmbeddingRef, "error", err)
		return 0, false
	}
	vb, err := r.vectors.GetVector(ctx, *b.EmbeddingRef)
	if err != nil {
		logger.Warn("embedding lookup failed, degrading to topic tier", "ref", *b.EmbeddingRef, "error", err)
		return 0, false
	}

	sim, ok := cosine(va, vb)
	return sim, ok
}

// cosine returns the cosine similarity clamped to [0,1]. Mismatched or
// zero-norm vectors report not-ok so the caller can degrade.
func cosine(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return sim, true
}

func (r *Resolver) lexicalSimilarity(a, b domain.Candidate) float64 {
	titleSim := jaccard(Tokenize(a.Title), Tokenize(b.Title))
	bodySim := jaccard(Tokenize(a.Body), Tokenize(b.Body))
	return 0.7*titleSim + 0.3*bodySim
}

// Tokenize lower-cases, splits on whitespace, and drops stop words and
// tokens shorter than 3 runes.
func Tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		if len([]rune(field)) < 3 {
			continue
		}
		if isStopWord(field) {
			continue
		}
		tokens[field] = struct{}{}
	}
	return tokens
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection

	return float64(intersection) / float64(union)
}
