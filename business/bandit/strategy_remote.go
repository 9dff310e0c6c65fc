package bandit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"newsRanker/domain"
)

// RemoteStrategy delegates arm selection to an external strategy service
// over HTTP. Calls carry a hard timeout and run through a circuit breaker so
// a slow sidecar cannot stall the serving path; callers fall back to the
// default arm when selection fails.
type RemoteStrategy struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[Selection]
}

func NewRemoteStrategy(baseURL string, timeout time.Duration) *RemoteStrategy {
	breaker := gobreaker.NewCircuitBreaker[Selection](gobreaker.Settings{
		Name:    "strategy-service",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &RemoteStrategy{
		baseURL: baseURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

type strategyRequest struct {
	Context map[string]any    `json:"context"`
	Arms    []strategyArmStat `json:"arms"`
}

type strategyArmStat struct {
	ArmID       uint    `json:"arm_id"`
	Name        string  `json:"name"`
	RewardCount int64   `json:"reward_count"`
	RewardSum   float64 `json:"reward_sum"`
}

type strategyResponse struct {
	SelectedArmID   uint    `json:"selected_arm_id"`
	DecisionValue   float64 `json:"decision_value"`
	SelectionReason string  `json:"selection_reason"`
}

func (r *RemoteStrategy) SelectArm(ctx context.Context, decisionContext map[string]any, arms []domain.BanditArm) (Selection, error) {
	return r.breaker.Execute(func() (Selection, error) {
		return r.selectArm(ctx, decisionContext, arms)
	})
}

func (r *RemoteStrategy) selectArm(ctx context.Context, decisionContext map[string]any, arms []domain.BanditArm) (Selection, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payload := strategyRequest{Context: decisionContext}
	for _, arm := range arms {
		payload.Arms = append(payload.Arms, strategyArmStat{
			ArmID:       arm.ID,
			Name:        arm.Name,
			RewardCount: arm.RewardCount,
			RewardSum:   arm.RewardSum,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Selection{}, fmt.Errorf("encode strategy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/select", bytes.NewReader(body))
	if err != nil {
		return Selection{}, fmt.Errorf("build strategy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Selection{}, fmt.Errorf("call strategy service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Selection{}, fmt.Errorf("strategy service returned %d", resp.StatusCode)
	}

	var decoded strategyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Selection{}, fmt.Errorf("decode strategy response: %w", err)
	}

	return Selection{
		ArmID:         decoded.SelectedArmID,
		DecisionValue: decoded.DecisionValue,
		Reason:        decoded.SelectionReason,
	}, nil
}
