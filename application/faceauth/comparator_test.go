package faceauth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	biometric_types "faceguard.io/infrastructure/biometric/types"
)

func TestCompareAppliesMatchPolicy(t *testing.T) {
	config := testConfig()
	config.MatchThreshold = 0.8
	config.ConfidenceThreshold = 0.75

	tests := []struct {
		name       string
		similarity float64
		confidence float64
		wantMatch  bool
	}{
		{
			name:       "above both thresholds",
			similarity: 0.9,
			confidence: 0.9,
			wantMatch:  true,
		},
		{
			name:       "similarity exactly at threshold",
			similarity: 0.8,
			confidence: 0.8,
			wantMatch:  true,
		},
		{
			name:       "similarity below threshold",
			similarity: 0.79,
			confidence: 0.99,
			wantMatch:  false,
		},
		{
			name:       "high similarity but low confidence",
			similarity: 0.95,
			confidence: 0.5,
			wantMatch:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{
				compareFn: func(ctx context.Context, imageA []byte, imageB []byte) (*biometric_types.ComparisonResult, error) {
					return &biometric_types.ComparisonResult{Similarity: tt.similarity, Confidence: tt.confidence}, nil
				},
			}
			comparator := NewFaceComparator(config, provider)
			result, err := comparator.Compare(context.Background(), []byte("a"), []byte("b"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.IsMatch != tt.wantMatch {
				t.Errorf("isMatch = %v, want %v", result.IsMatch, tt.wantMatch)
			}
			if result.Threshold != config.MatchThreshold {
				t.Errorf("threshold = %v, want %v", result.Threshold, config.MatchThreshold)
			}
		})
	}
}

func TestBatchMatchTemplatesPreservesOrder(t *testing.T) {
	config := testConfig()
	provider := &mockProvider{
		matchFn: func(ctx context.Context, image []byte, template []byte) (*biometric_types.ComparisonResult, error) {
			// similarity derived from the candidate so order is observable
			return &biometric_types.ComparisonResult{
				Similarity: float64(template[0]) / 100,
				Confidence: 0.9,
			}, nil
		},
	}
	comparator := NewFaceComparator(config, provider)

	candidates := [][]byte{{10}, {20}, {30}, {40}, {50}, {60}, {70}, {80}}
	results := comparator.BatchMatchTemplates(context.Background(), []byte("probe"), candidates)

	if len(results) != len(candidates) {
		t.Fatalf("got %d results, want %d", len(results), len(candidates))
	}
	for i, result := range results {
		want := float64(candidates[i][0]) / 100
		if result.Similarity != want {
			t.Errorf("result %d similarity = %v, want %v", i, result.Similarity, want)
		}
	}
}

func TestBatchMatchTemplatesIsolatesFailures(t *testing.T) {
	config := testConfig()
	provider := &mockProvider{
		matchFn: func(ctx context.Context, image []byte, template []byte) (*biometric_types.ComparisonResult, error) {
			if template[0] == 2 {
				return nil, &biometric_types.ProviderError{Provider: "mock", Operation: "match", Err: fmt.Errorf("boom")}
			}
			return &biometric_types.ComparisonResult{Similarity: 0.9, Confidence: 0.9}, nil
		},
	}
	comparator := NewFaceComparator(config, provider)

	results := comparator.BatchMatchTemplates(context.Background(), []byte("probe"), [][]byte{{1}, {2}, {3}})

	if results[0].Error != nil || results[2].Error != nil {
		t.Error("healthy candidates should not carry errors")
	}
	if results[1].Error == nil {
		t.Fatal("failing candidate should carry an error entry")
	}
	if !strings.Contains(*results[1].Error, "boom") {
		t.Errorf("error entry %q does not mention the cause", *results[1].Error)
	}
}

func TestBatchMatchTemplatesRespectsConcurrencyBound(t *testing.T) {
	config := testConfig()
	config.BatchConcurrency = 2

	var mu sync.Mutex
	inFlight := 0
	peak := 0
	ready := make(chan struct{}, 16)

	provider := &mockProvider{
		matchFn: func(ctx context.Context, image []byte, template []byte) (*biometric_types.ComparisonResult, error) {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()
			ready <- struct{}{}
			mu.Lock()
			inFlight--
			mu.Unlock()
			return &biometric_types.ComparisonResult{Similarity: 0.5, Confidence: 0.5}, nil
		},
	}
	comparator := NewFaceComparator(config, provider)
	comparator.BatchMatchTemplates(context.Background(), []byte("probe"), [][]byte{{1}, {2}, {3}, {4}, {5}, {6}})

	if peak > 2 {
		t.Errorf("peak in-flight comparisons = %d, want at most 2", peak)
	}
}
