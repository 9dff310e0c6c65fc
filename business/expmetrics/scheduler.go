package expmetrics

import (
	"context"
	"time"

	"newsRanker/pkg/logger"
)

// Scheduler drives the periodic jobs. Each job has its own ticker so a slow
// aggregation cycle never delays the guardrail checks.
type Scheduler struct {
	aggregator *Aggregator
	monitor    *Monitor

	aggregationInterval time.Duration
	autoStopInterval    time.Duration
}

func NewScheduler(aggregator *Aggregator, monitor *Monitor, aggregationInterval, autoStopInterval time.Duration) *Scheduler {
	return &Scheduler{
		aggregator:          aggregator,
		monitor:             monitor,
		aggregationInterval: aggregationInterval,
		autoStopInterval:    autoStopInterval,
	}
}

// Run blocks until the context is cancelled. Launched from main in its own
// goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	aggregation := time.NewTicker(s.aggregationInterval)
	autoStop := time.NewTicker(s.autoStopInterval)
	defer aggregation.Stop()
	defer autoStop.Stop()

	logger.Info("experiment schedulers started",
		"aggregation_interval", s.aggregationInterval, "auto_stop_interval", s.autoStopInterval)

	for {
		select {
		case <-ctx.Done():
			logger.Info("experiment schedulers stopped")
			return
		case <-aggregation.C:
			if err := s.aggregator.RunOnce(ctx); err != nil {
				logger.Warn("aggregation cycle failed", "error", err)
			}
		case <-autoStop.C:
			if err := s.monitor.RunOnce(ctx); err != nil {
				logger.Warn("auto-stop cycle failed", "error", err)
			}
		}
	}
}
