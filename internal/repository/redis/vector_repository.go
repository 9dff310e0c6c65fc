package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"newsRanker/business/similarity"
)

// VectorRepository serves precomputed embedding vectors out of Redis. Vectors
// are written by the offline embedding pipeline; this side only reads.
type VectorRepository struct {
	client *redis.Client
}

func NewVectorRepository(client *redis.Client) *VectorRepository {
	return &VectorRepository{
		client: client,
	}
}

// GetVector returns the embedding stored under the reference, or
// similarity.ErrVectorNotFound when the pipeline has not produced one yet.
func (r *VectorRepository) GetVector(ctx context.Context, ref string) ([]float64, error) {
	key := fmt.Sprintf("embedding:%s", ref)

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, similarity.ErrVectorNotFound
		}
		return nil, fmt.Errorf("failed to get vector from Redis: %w", err)
	}

	var vector []float64
	if err := json.Unmarshal([]byte(val), &vector); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vector: %w", err)
	}

	return vector, nil
}

// StoreVector writes an embedding, used by backfill tooling and tests.
func (r *VectorRepository) StoreVector(ctx context.Context, ref string, vector []float64, ttl time.Duration) error {
	key := fmt.Sprintf("embedding:%s", ref)

	jsonData, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to marshal vector: %w", err)
	}

	if err := r.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store vector in Redis: %w", err)
	}

	return nil
}
