package domain

import "time"

// Candidate is an item eligible for ranking. It arrives fully scored from
// upstream ingestion; this engine never mutates it.
type Candidate struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Body            string    `json:"body"`
	Tickers         []string  `json:"tickers,omitempty"`
	ImportanceScore float64   `json:"importance_score"`
	PublishedAt     time.Time `json:"published_at"`
	TopicID         *int64    `json:"topic_id,omitempty"`
	EmbeddingRef    *string   `json:"embedding_ref,omitempty"`
}

// RankedItem is a candidate plus the scores computed for one request.
type RankedItem struct {
	Candidate             Candidate `json:"candidate"`
	RankScore             float64   `json:"rank_score"`
	PersonalizedRelevance float64   `json:"personalized_relevance"`
	SelectedVariant       string    `json:"selected_variant,omitempty"`
	Personalized          bool      `json:"personalized"`
	DiversityApplied      bool      `json:"diversity_applied"`
}
