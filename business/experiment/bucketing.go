package experiment

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"newsRanker/domain"
	"newsRanker/pkg/logger"
	"newsRanker/pkg/metrics"
)

// GetAssignment deterministically maps (subject, experiment) to a variant.
// It never fails: a missing, inactive, or out-of-window experiment yields the
// control assignment. Identical inputs always yield identical output across
// processes and restarts.
func (s *Service) GetAssignment(ctx context.Context, subjectID, experimentKey string) domain.ExperimentAssignment {
	exp, err := s.Get(ctx, experimentKey)
	if err != nil {
		logger.Warn("experiment lookup failed, assigning control", "experiment_key", experimentKey, "error", err)
		return domain.ControlAssignment(subjectID, experimentKey)
	}
	if exp == nil || !exp.IsRunning(time.Now()) {
		return domain.ControlAssignment(subjectID, experimentKey)
	}

	allocations, err := DecodeAllocations(exp.Allocations)
	if err != nil || len(allocations) == 0 {
		logger.Warn("experiment has unusable allocations, assigning control", "experiment_key", experimentKey, "error", err)
		return domain.ControlAssignment(subjectID, experimentKey)
	}

	bucket := ComputeBucket(subjectID, experimentKey)
	variant := assignVariant(bucket, allocations, experimentKey)

	metrics.AssignmentsTotal.WithLabelValues(experimentKey, variant).Inc()

	return domain.ExperimentAssignment{
		SubjectID:     subjectID,
		ExperimentKey: experimentKey,
		Variant:       variant,
		Bucket:        bucket,
		IsActive:      true,
	}
}

// GetAllAssignments evaluates every active experiment for one subject.
func (s *Service) GetAllAssignments(ctx context.Context, subjectID string) (map[string]domain.ExperimentAssignment, error) {
	active, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	assignments := make(map[string]domain.ExperimentAssignment, len(active))
	for _, exp := range active {
		assignments[exp.ExperimentKey] = s.GetAssignment(ctx, subjectID, exp.ExperimentKey)
	}
	return assignments, nil
}

// ComputeBucket hashes subject and experiment key into [0,100). The first
// four bytes of the SHA-256 digest are read big-endian; no randomness and no
// clock involvement, so the mapping is stable across restarts.
func ComputeBucket(subjectID, experimentKey string) int {
	digest := sha256.Sum256([]byte(subjectID + ":" + experimentKey))
	return int(binary.BigEndian.Uint32(digest[:4]) % 100)
}

// assignVariant walks the ordered allocation table accumulating percentages;
// the first variant whose cumulative upper bound exceeds the bucket wins.
// Buckets left uncovered by a table that does not sum to 100 fall to the
// last variant.
func assignVariant(bucket int, allocations []domain.VariantAllocation, experimentKey string) string {
	cumulative := 0
	for _, a := range allocations {
		cumulative += a.Percent
		if bucket < cumulative {
			return a.Variant
		}
	}

	if cumulative != 100 {
		logger.Warn("traffic allocation does not sum to 100, uncovered buckets fall to last variant",
			"experiment_key", experimentKey, "sum", cumulative)
	}
	return allocations[len(allocations)-1].Variant
}
