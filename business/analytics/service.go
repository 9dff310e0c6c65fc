package analytics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"newsRanker/domain"
	"newsRanker/pkg/logger"
)

const queueSize = 2048

var eventsDropped = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "analytics_events_dropped_total",
		Help: "Count of analytics events dropped on queue overflow.",
	},
	[]string{"kind"},
)

func init() {
	prometheus.MustRegister(eventsDropped)
}

// ImpressionRepository appends impression rows in batches.
type ImpressionRepository interface {
	SaveBatch(ctx context.Context, events []domain.ImpressionEvent) error
}

// ClickRepository appends click rows.
type ClickRepository interface {
	Save(ctx context.Context, event *domain.ClickEvent) error
}

// Service ingests behavioral events off the serving path. Logging never
// blocks a request: events go onto buffered channels and are dropped, with a
// counter, when the worker falls behind.
type Service struct {
	impressionRepo ImpressionRepository
	clickRepo      ClickRepository

	impressions chan []domain.ImpressionEvent
	clicks      chan domain.ClickEvent
}

func NewService(impressionRepo ImpressionRepository, clickRepo ClickRepository) *Service {
	return &Service{
		impressionRepo: impressionRepo,
		clickRepo:      clickRepo,
		impressions:    make(chan []domain.ImpressionEvent, queueSize),
		clicks:         make(chan domain.ClickEvent, queueSize),
	}
}

// LogImpressions records one served list for a subject under its experiment
// assignment. Fire-and-forget.
func (s *Service) LogImpressions(subjectID string, items []domain.RankedItem, assignment domain.ExperimentAssignment) {
	if len(items) == 0 {
		return
	}

	now := time.Now()
	events := make([]domain.ImpressionEvent, 0, len(items))
	for position, item := range items {
		events = append(events, domain.ImpressionEvent{
			SubjectID:        subjectID,
			ItemID:           item.Candidate.ID,
			Position:         position + 1,
			ExperimentKey:    assignment.ExperimentKey,
			Variant:          assignment.Variant,
			RankScore:        item.RankScore,
			Personalized:     item.Personalized,
			DiversityApplied: item.DiversityApplied,
			Timestamp:        now,
			DatePartition:    domain.DatePartitionOf(now),
		})
	}

	select {
	case s.impressions <- events:
	default:
		eventsDropped.WithLabelValues("impression").Inc()
		logger.Warn("impression queue full, dropping batch", "subject_id", subjectID, "size", len(events))
	}
}

// LogClick records one click event. Fire-and-forget.
func (s *Service) LogClick(event domain.ClickEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.DatePartition == "" {
		event.DatePartition = domain.DatePartitionOf(event.Timestamp)
	}

	select {
	case s.clicks <- event:
	default:
		eventsDropped.WithLabelValues("click").Inc()
		logger.Warn("click queue full, dropping event", "subject_id", event.SubjectID, "item_id", event.ItemID)
	}
}

// Run drains the event queues until the context is cancelled. Launched once
// from main.
func (s *Service) Run(ctx context.Context) {
	logger.Info("analytics worker started", "queue_size", queueSize)
	for {
		select {
		case <-ctx.Done():
			logger.Info("analytics worker stopped")
			return
		case batch := <-s.impressions:
			if err := s.impressionRepo.SaveBatch(ctx, batch); err != nil {
				logger.Warn("impression batch not persisted", "size", len(batch), "error", err)
			}
		case click := <-s.clicks:
			if err := s.clickRepo.Save(ctx, &click); err != nil {
				logger.Warn("click not persisted", "subject_id", click.SubjectID, "error", err)
			}
		}
	}
}
