package faceauth

import (
	"fmt"
	"strings"
	"time"
)

// FaceAuthConfig is the immutable configuration snapshot for the face
// authentication core. It is validated once at construction and passed
// explicitly into every component; nothing reads configuration ambiently.
type FaceAuthConfig struct {
	// MatchThreshold is the minimum similarity for a comparison to count as a match.
	MatchThreshold float64
	// ConfidenceThreshold is the minimum comparison/detection confidence.
	ConfidenceThreshold float64
	LivenessThreshold   float64
	QualityThreshold    float64

	MaxImageSize   int
	AllowedFormats []string

	EnableLiveness     bool
	EnableQualityCheck bool

	RetryAttempts int
	BackoffBase   time.Duration
	Timeout       time.Duration

	// BatchConcurrency caps in-flight provider calls during batch comparison.
	BatchConcurrency int64

	// ChallengeScoreThreshold is the per-challenge completion bar during
	// streaming liveness.
	ChallengeScoreThreshold float64
}

func DefaultFaceAuthConfig() FaceAuthConfig {
	return FaceAuthConfig{
		MatchThreshold:          0.8,
		ConfidenceThreshold:     0.75,
		LivenessThreshold:       0.7,
		QualityThreshold:        0.6,
		MaxImageSize:            5 << 20,
		AllowedFormats:          []string{"jpeg", "jpg", "png"},
		EnableLiveness:          true,
		EnableQualityCheck:      true,
		RetryAttempts:           3,
		BackoffBase:             200 * time.Millisecond,
		Timeout:                 10 * time.Second,
		BatchConcurrency:        4,
		ChallengeScoreThreshold: 0.7,
	}
}

func (config FaceAuthConfig) Validate() error {
	for name, value := range map[string]float64{
		"match threshold":           config.MatchThreshold,
		"confidence threshold":      config.ConfidenceThreshold,
		"liveness threshold":        config.LivenessThreshold,
		"quality threshold":         config.QualityThreshold,
		"challenge score threshold": config.ChallengeScoreThreshold,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0.0 and 1.0, got %v", name, value)
		}
	}
	if config.MaxImageSize <= 0 {
		return fmt.Errorf("max image size must be positive, got %d", config.MaxImageSize)
	}
	if len(config.AllowedFormats) == 0 {
		return fmt.Errorf("at least one allowed image format is required")
	}
	for _, format := range config.AllowedFormats {
		if strings.TrimSpace(format) == "" {
			return fmt.Errorf("allowed image formats must not be blank")
		}
	}
	if config.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts must not be negative, got %d", config.RetryAttempts)
	}
	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", config.Timeout)
	}
	if config.BatchConcurrency < 1 {
		return fmt.Errorf("batch concurrency must be at least 1, got %d", config.BatchConcurrency)
	}
	return nil
}
