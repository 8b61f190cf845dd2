package faceauth

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	biometric_types "faceguard.io/infrastructure/biometric/types"
)

// FaceComparator runs provider comparisons and applies the match policy.
// Providers report raw similarity; the match decision is made here so it is
// identical across vendors.
type FaceComparator struct {
	Provider biometric_types.RecognitionProvider
	Config   FaceAuthConfig
}

func NewFaceComparator(config FaceAuthConfig, provider biometric_types.RecognitionProvider) *FaceComparator {
	return &FaceComparator{
		Provider: provider,
		Config:   config,
	}
}

// Compare compares two face images and decides the match against the
// configured thresholds.
func (comparator *FaceComparator) Compare(ctx context.Context, image []byte, reference []byte) (*biometric_types.ComparisonResult, error) {
	result, err := comparator.Provider.Compare(ctx, image, reference)
	if err != nil {
		return nil, err
	}
	comparator.applyMatchPolicy(result)
	return result, nil
}

// MatchTemplate compares a face image against a stored feature vector.
func (comparator *FaceComparator) MatchTemplate(ctx context.Context, image []byte, template []byte) (*biometric_types.ComparisonResult, error) {
	result, err := comparator.Provider.MatchTemplate(ctx, image, template)
	if err != nil {
		return nil, err
	}
	comparator.applyMatchPolicy(result)
	return result, nil
}

// BatchMatchTemplates compares one image against many stored feature vectors
// with bounded concurrency. The returned slice preserves candidate order, one
// entry per candidate. A failing candidate yields an entry with Error set and
// never aborts the rest of the batch.
func (comparator *FaceComparator) BatchMatchTemplates(ctx context.Context, image []byte, templates [][]byte) []biometric_types.ComparisonResult {
	return comparator.batch(ctx, templates, func(ctx context.Context, candidate []byte) (*biometric_types.ComparisonResult, error) {
		return comparator.MatchTemplate(ctx, image, candidate)
	})
}

// BatchCompare compares one image against many candidate images with bounded
// concurrency, preserving candidate order.
func (comparator *FaceComparator) BatchCompare(ctx context.Context, image []byte, candidates [][]byte) []biometric_types.ComparisonResult {
	return comparator.batch(ctx, candidates, func(ctx context.Context, candidate []byte) (*biometric_types.ComparisonResult, error) {
		return comparator.Compare(ctx, image, candidate)
	})
}

func (comparator *FaceComparator) batch(ctx context.Context, candidates [][]byte, compare func(context.Context, []byte) (*biometric_types.ComparisonResult, error)) []biometric_types.ComparisonResult {
	results := make([]biometric_types.ComparisonResult, len(candidates))
	limiter := semaphore.NewWeighted(comparator.Config.BatchConcurrency)
	var waitGroup sync.WaitGroup
	for i, candidate := range candidates {
		if err := limiter.Acquire(ctx, 1); err != nil {
			msg := err.Error()
			results[i] = biometric_types.ComparisonResult{Error: &msg}
			continue
		}
		waitGroup.Add(1)
		go func(index int, payload []byte) {
			defer waitGroup.Done()
			defer limiter.Release(1)
			result, err := compare(ctx, payload)
			if err != nil {
				msg := err.Error()
				results[index] = biometric_types.ComparisonResult{Error: &msg}
				return
			}
			results[index] = *result
		}(i, candidate)
	}
	waitGroup.Wait()
	return results
}

func (comparator *FaceComparator) applyMatchPolicy(result *biometric_types.ComparisonResult) {
	result.Threshold = comparator.Config.MatchThreshold
	result.IsMatch = result.Similarity >= comparator.Config.MatchThreshold &&
		result.Confidence >= comparator.Config.ConfidenceThreshold
}
