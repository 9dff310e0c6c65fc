package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"newsRanker/domain"
)

type (
	PreferenceHandler struct {
		validate          *validator.Validate
		preferenceService PreferenceService
		analyticsService  AnalyticsService
	}

	PreferenceService interface {
		GetProfile(ctx context.Context, subjectID string) (*domain.UserProfile, error)
		UpdateProfile(ctx context.Context, subjectID string, tickers, keywords []string, diversityWeight *float64, personalizationEnabled *bool) (*domain.UserProfile, error)
		Deactivate(ctx context.Context, subjectID string) error
	}

	AnalyticsService interface {
		LogClick(event domain.ClickEvent)
	}

	UpdatePreferenceRequest struct {
		Tickers                []string `json:"tickers"`
		Keywords               []string `json:"keywords"`
		DiversityWeight        *float64 `json:"diversity_weight" validate:"omitempty,gte=0,lte=1"`
		PersonalizationEnabled *bool    `json:"personalization_enabled"`
	}

	ClickEventRequest struct {
		AnonID        string   `json:"anon_id" validate:"required"`
		ItemID        int64    `json:"item_id" validate:"required"`
		Position      int      `json:"position"`
		ExperimentKey string   `json:"experiment_key"`
		Variant       string   `json:"variant"`
		Tickers       []string `json:"tickers"`
		TopicID       *int64   `json:"topic_id"`
		Personalized  bool     `json:"personalized"`
		DwellTimeMs   int64    `json:"dwell_time_ms"`
	}
)

func NewPreferenceHandler(preferenceService PreferenceService, analyticsService AnalyticsService) *PreferenceHandler {
	return &PreferenceHandler{
		validate:          validator.New(),
		preferenceService: preferenceService,
		analyticsService:  analyticsService,
	}
}

// Get handles GET /api/v1/preferences?anon_id=
func (h *PreferenceHandler) Get(c echo.Context) error {
	subjectID := c.QueryParam("anon_id")
	if subjectID == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "anon_id is required"})
	}

	profile, err := h.preferenceService.GetProfile(c.Request().Context(), subjectID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(profile))
}

// Update handles PUT /api/v1/preferences?anon_id=
func (h *PreferenceHandler) Update(c echo.Context) error {
	subjectID := c.QueryParam("anon_id")
	if subjectID == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "anon_id is required"})
	}

	var req UpdatePreferenceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	profile, err := h.preferenceService.UpdateProfile(
		c.Request().Context(), subjectID,
		req.Tickers, req.Keywords, req.DiversityWeight, req.PersonalizationEnabled,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(profile))
}

// Deactivate handles DELETE /api/v1/preferences?anon_id=
func (h *PreferenceHandler) Deactivate(c echo.Context) error {
	subjectID := c.QueryParam("anon_id")
	if subjectID == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "anon_id is required"})
	}

	if err := h.preferenceService.Deactivate(c.Request().Context(), subjectID); err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("preferences deactivated"))
}

// LogClick handles POST /api/v1/events/click. Fire-and-forget.
func (h *PreferenceHandler) LogClick(c echo.Context) error {
	var req ClickEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	h.analyticsService.LogClick(domain.ClickEvent{
		SubjectID:     req.AnonID,
		ItemID:        req.ItemID,
		Position:      req.Position,
		ExperimentKey: req.ExperimentKey,
		Variant:       req.Variant,
		Tickers:       strings.Join(req.Tickers, ","),
		TopicID:       req.TopicID,
		Personalized:  req.Personalized,
		DwellTimeMs:   req.DwellTimeMs,
		Timestamp:     time.Now(),
	})

	return c.JSON(http.StatusAccepted, fres.Response.StatusOK("click recorded"))
}
