package faceauth

import (
	biometric_types "faceguard.io/infrastructure/biometric/types"
)

const (
	minImageBrightness = 0.4
	minImageClarity    = 0.5
)

// QualityGate decides whether a detection is good enough to enroll or
// authenticate against. Findings use stable strings so callers can surface
// them verbatim.
type QualityGate struct {
	QualityThreshold float64
}

type QualityCheck struct {
	Passed bool
	Issues []string
}

func NewQualityGate(config FaceAuthConfig) *QualityGate {
	return &QualityGate{QualityThreshold: config.QualityThreshold}
}

// Assess inspects the primary face of a detection result. The detection must
// contain at least one face.
func (gate *QualityGate) Assess(detection *biometric_types.DetectionResult) QualityCheck {
	check := QualityCheck{Passed: true}
	if detection == nil || len(detection.Faces) == 0 {
		check.Passed = false
		check.Issues = append(check.Issues, "No face detected")
		return check
	}
	primary := detection.Faces[0]
	if primary.Confidence < gate.QualityThreshold {
		check.Issues = append(check.Issues, "Low face confidence")
	}
	if detection.ImageQuality.Brightness < minImageBrightness {
		check.Issues = append(check.Issues, "Poor image brightness")
	}
	if detection.ImageQuality.Clarity < minImageClarity {
		check.Issues = append(check.Issues, "Poor image clarity")
	}
	check.Passed = len(check.Issues) == 0
	return check
}
