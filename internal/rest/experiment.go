package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"newsRanker/domain"
)

type ResponseError struct {
	Message string `json:"message"`
}

type (
	ExperimentHandler struct {
		validate          *validator.Validate
		experimentService ExperimentService
		metricService     MetricService
	}

	ExperimentService interface {
		Create(ctx context.Context, exp *domain.Experiment) error
		Get(ctx context.Context, key string) (*domain.Experiment, error)
		ListActive(ctx context.Context) ([]domain.Experiment, error)
		Activate(ctx context.Context, key string) error
		Stop(ctx context.Context, key, reason string) error
		GetAssignment(ctx context.Context, subjectID, experimentKey string) domain.ExperimentAssignment
	}

	MetricService interface {
		ListRange(ctx context.Context, experimentKey, fromDate, toDate string) ([]domain.DailyMetric, error)
	}

	CreateExperimentRequest struct {
		ExperimentKey string                     `json:"experiment_key" validate:"required"`
		Name          string                     `json:"name" validate:"required"`
		Description   string                     `json:"description"`
		Allocations   []domain.VariantAllocation `json:"allocations" validate:"required,min=1"`
		StartAt       time.Time                  `json:"start_at"`
		EndAt         *time.Time                 `json:"end_at"`

		AutoStopEnabled         bool    `json:"auto_stop_enabled"`
		AutoStopThreshold       float64 `json:"auto_stop_threshold"`
		AutoStopConsecutiveDays int     `json:"auto_stop_consecutive_days"`
		MinSampleSize           int64   `json:"min_sample_size"`

		CreatedBy string `json:"created_by"`
	}

	StopExperimentRequest struct {
		Reason string `json:"reason"`
	}
)

func NewExperimentHandler(experimentService ExperimentService, metricService MetricService) *ExperimentHandler {
	return &ExperimentHandler{
		validate:          validator.New(),
		experimentService: experimentService,
		metricService:     metricService,
	}
}

// GetAssignment handles GET /api/v1/experiments/:key/assignment?anon_id=
func (h *ExperimentHandler) GetAssignment(c echo.Context) error {
	experimentKey := c.Param("key")
	subjectID := c.QueryParam("anon_id")
	if subjectID == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "anon_id is required"})
	}

	assignment := h.experimentService.GetAssignment(c.Request().Context(), subjectID, experimentKey)

	return c.JSON(http.StatusOK, fres.Response.StatusOK(assignment))
}

// GetMetrics handles GET /api/v1/experiments/:key/metrics?from=&to=
func (h *ExperimentHandler) GetMetrics(c echo.Context) error {
	experimentKey := c.Param("key")

	to := c.QueryParam("to")
	if to == "" {
		to = domain.DatePartitionOf(time.Now())
	}
	from := c.QueryParam("from")
	if from == "" {
		from = domain.DatePartitionOf(time.Now().AddDate(0, 0, -7))
	}

	rows, err := h.metricService.ListRange(c.Request().Context(), experimentKey, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(rows))
}

// Create handles POST /api/v1/admin/experiments
func (h *ExperimentHandler) Create(c echo.Context) error {
	var req CreateExperimentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	allocations, err := json.Marshal(req.Allocations)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	startAt := req.StartAt
	if startAt.IsZero() {
		startAt = time.Now()
	}

	exp := &domain.Experiment{
		ExperimentKey:           req.ExperimentKey,
		Name:                    req.Name,
		Description:             req.Description,
		Allocations:             allocations,
		StartAt:                 startAt,
		EndAt:                   req.EndAt,
		AutoStopEnabled:         req.AutoStopEnabled,
		AutoStopThreshold:       req.AutoStopThreshold,
		AutoStopConsecutiveDays: req.AutoStopConsecutiveDays,
		MinSampleSize:           req.MinSampleSize,
		CreatedBy:               req.CreatedBy,
	}

	if err := h.experimentService.Create(c.Request().Context(), exp); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(exp))
}

// Activate handles POST /api/v1/admin/experiments/:key/activate
func (h *ExperimentHandler) Activate(c echo.Context) error {
	if err := h.experimentService.Activate(c.Request().Context(), c.Param("key")); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("experiment activated"))
}

// Stop handles POST /api/v1/admin/experiments/:key/stop
func (h *ExperimentHandler) Stop(c echo.Context) error {
	var req StopExperimentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if req.Reason == "" {
		req.Reason = "manual stop"
	}

	if err := h.experimentService.Stop(c.Request().Context(), c.Param("key"), req.Reason); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("experiment stopped"))
}
