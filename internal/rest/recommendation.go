package rest

import (
	"context"
	"net/http"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"newsRanker/business/bandit"
	"newsRanker/domain"
)

type (
	RecommendationHandler struct {
		validate      *validator.Validate
		banditService BanditService
	}

	BanditService interface {
		Decide(ctx context.Context, subjectID string, candidates []domain.Candidate, decisionContext map[string]any, limit int) (*bandit.Decision, error)
		RecordReward(decisionID, rewardType string, raw float64, itemID *int64) error
	}

	DecideRequest struct {
		AnonID     string             `json:"anon_id" validate:"required"`
		Limit      int                `json:"limit"`
		Context    map[string]any     `json:"context"`
		Candidates []CandidateRequest `json:"candidates" validate:"required,min=1,dive"`
	}

	DecideResponse struct {
		DecisionID      string              `json:"decision_id,omitempty"`
		ArmID           uint                `json:"arm_id"`
		ArmName         string              `json:"arm_name"`
		SelectionReason string              `json:"selection_reason"`
		DecisionValue   float64             `json:"decision_value"`
		Items           []domain.RankedItem `json:"items"`
	}

	RewardRequest struct {
		DecisionID  string  `json:"decision_id" validate:"required,uuid4"`
		RewardType  string  `json:"reward_type" validate:"required,oneof=click dwell"`
		RewardValue float64 `json:"reward_value"`
		ItemID      *int64  `json:"item_id"`
	}
)

func NewRecommendationHandler(banditService BanditService) *RecommendationHandler {
	return &RecommendationHandler{
		validate:      validator.New(),
		banditService: banditService,
	}
}

// Decide handles POST /api/v1/recommendations/decide
func (h *RecommendationHandler) Decide(c echo.Context) error {
	var req DecideRequest
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

	decision, err := h.banditService.Decide(c.Request().Context(), req.AnonID, candidates, req.Context, req.Limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(DecideResponse{
		DecisionID:      decision.DecisionID,
		ArmID:           decision.ArmID,
		ArmName:         decision.ArmName,
		SelectionReason: decision.SelectionReason,
		DecisionValue:   decision.DecisionValue,
		Items:           decision.Items,
	}))
}

// Reward handles POST /api/v1/recommendations/reward. Accepted events are
// processed asynchronously; the response only confirms enqueueing.
func (h *RecommendationHandler) Reward(c echo.Context) error {
	var req RewardRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.banditService.RecordReward(req.DecisionID, req.RewardType, req.RewardValue, req.ItemID); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusAccepted, fres.Response.StatusOK("reward accepted"))
}
