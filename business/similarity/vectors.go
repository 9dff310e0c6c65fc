package similarity

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrVectorNotFound is returned when an embedding ref resolves to nothing.
var ErrVectorNotFound = errors.New("vector not found")

// VectorStore resolves an embedding reference to its vector.
type VectorStore interface {
	GetVector(ctx context.Context, ref string) ([]float64, error)
}

// BreakerVectorStore wraps a VectorStore with a timeout and a circuit
// breaker so a slow or dead embedding backend degrades the similarity tier
// instead of stalling the serving path.
type BreakerVectorStore struct {
	inner   VectorStore
	breaker *gobreaker.CircuitBreaker[[]float64]
	timeout time.Duration
}

func NewBreakerVectorStore(inner VectorStore, timeout time.Duration) *BreakerVectorStore {
	settings := gobreaker.Settings{
		Name:    "embedding-store",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// A missing vector is an answer, not a backend failure.
			return err == nil || errors.Is(err, ErrVectorNotFound)
		},
	}

	return &BreakerVectorStore{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[[]float64](settings),
		timeout: timeout,
	}
}

func (s *BreakerVectorStore) GetVector(ctx context.Context, ref string) ([]float64, error) {
	return s.breaker.Execute(func() ([]float64, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.inner.GetVector(ctx, ref)
	})
}
