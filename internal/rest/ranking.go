package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"newsRanker/business/ranking"
	"newsRanker/domain"
)

type (
	RankingHandler struct {
		validate       *validator.Validate
		rankingService RankingService
	}

	RankingService interface {
		Rank(ctx context.Context, req ranking.Request) (*ranking.Result, error)
	}

	CandidateRequest struct {
		ID              int64     `json:"id" validate:"required"`
		Title           string    `json:"title" validate:"required"`
		Body            string    `json:"body"`
		Tickers         []string  `json:"tickers"`
		ImportanceScore float64   `json:"importance_score"`
		PublishedAt     time.Time `json:"published_at"`
		TopicID         *int64    `json:"topic_id"`
		EmbeddingRef    *string   `json:"embedding_ref"`
	}

	RankRequest struct {
		AnonID          string             `json:"anon_id" validate:"required"`
		TargetSize      int                `json:"target_size"`
		DiversityWeight float64            `json:"diversity_weight"`
		TopicCap        int                `json:"topic_cap"`
		Candidates      []CandidateRequest `json:"candidates" validate:"required,min=1,dive"`
	}

	RankResponse struct {
		ExperimentKey string              `json:"experiment_key"`
		Variant       string              `json:"variant"`
		Items         []domain.RankedItem `json:"items"`
	}
)

func NewRankingHandler(rankingService RankingService) *RankingHandler {
	return &RankingHandler{
		validate:       validator.New(),
		rankingService: rankingService,
	}
}

// Rank handles POST /api/v1/rank
func (h *RankingHandler) Rank(c echo.Context) error {
	var req RankRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	candidates := make([]domain.Candidate, 0, len(req.Candidates))
	for _, cr := range req.Candidates {
		candidates = append(candidates, domain.Candidate{
			ID:              cr.ID,
			Title:           cr.Title,
			Body:            cr.Body,
			Tickers:         cr.Tickers,
			ImportanceScore: cr.ImportanceScore,
			PublishedAt:     cr.PublishedAt,
			TopicID:         cr.TopicID,
			EmbeddingRef:    cr.EmbeddingRef,
		})
	}

	result, err := h.rankingService.Rank(c.Request().Context(), ranking.Request{
		SubjectID:       req.AnonID,
		TargetSize:      req.TargetSize,
		DiversityWeight: req.DiversityWeight,
		TopicCap:        req.TopicCap,
		Candidates:      candidates,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(RankResponse{
		ExperimentKey: result.Assignment.ExperimentKey,
		Variant:       result.Assignment.Variant,
		Items:         result.Items,
	}))
}
