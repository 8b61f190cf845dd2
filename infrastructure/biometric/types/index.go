package types

import (
	"context"
	"fmt"
	"time"
)

// RecognitionProvider abstracts an external face detection/comparison/liveness
// engine. Adapters translate vendor payloads into the canonical types below and
// never apply match or liveness policy; thresholds are applied by the caller.
type RecognitionProvider interface {
	Detect(ctx context.Context, image []byte) (*DetectionResult, error)
	Compare(ctx context.Context, imageA []byte, imageB []byte) (*ComparisonResult, error)
	MatchTemplate(ctx context.Context, image []byte, template []byte) (*ComparisonResult, error)
	ExtractTemplate(ctx context.Context, image []byte) (*FeatureExtraction, error)
	Liveness(ctx context.Context, frames [][]byte) (*LivenessResult, error)
}

// TemplateSearcher is an optional capability for vendors that maintain an
// indexed template collection. Callers fall back to linear comparison when the
// active provider does not implement it.
type TemplateSearcher interface {
	IndexTemplate(ctx context.Context, templateID string, userID string, template []byte) error
	RemoveTemplate(ctx context.Context, templateID string) error
	SearchTemplates(ctx context.Context, image []byte, limit int) ([]SearchMatch, error)
}

// HealthChecker is an optional capability for vendors that expose a
// reachability probe.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// LivenessSessionProvider is an optional capability for vendors with stateful
// frame-by-frame liveness sessions.
type LivenessSessionProvider interface {
	OpenLivenessSession(ctx context.Context) (string, error)
	SubmitLivenessFrame(ctx context.Context, sessionRef string, frameNumber int, frame []byte) (*LivenessResult, error)
	CloseLivenessSession(ctx context.Context, sessionRef string) error
}

type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Landmark struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// FaceAttributes are advisory only and never feed security decisions.
type FaceAttributes struct {
	Age     *int    `json:"age"`
	Gender  *string `json:"gender"`
	Emotion *string `json:"emotion"`
}

type FaceInfo struct {
	FaceID      string          `json:"face_id"`
	BoundingBox BoundingBox     `json:"bounding_box"`
	Confidence  float64         `json:"confidence"`
	Landmarks   []Landmark      `json:"landmarks"`
	Attributes  *FaceAttributes `json:"attributes"`
}

type ImageQuality struct {
	Brightness   float64 `json:"brightness"`
	Clarity      float64 `json:"clarity"`
	Completeness float64 `json:"completeness"`
}

type DetectionResult struct {
	Faces        []FaceInfo   `json:"faces"`
	ImageQuality ImageQuality `json:"image_quality"`
}

type ComparisonDetails struct {
	FaceDistance         float64 `json:"face_distance"`
	FeatureMatches       float64 `json:"feature_matches"`
	GeometricConsistency float64 `json:"geometric_consistency"`
}

type ComparisonResult struct {
	Similarity float64           `json:"similarity"`
	Confidence float64           `json:"confidence"`
	IsMatch    bool              `json:"is_match"`
	Threshold  float64           `json:"threshold"`
	Details    ComparisonDetails `json:"details"`
	Error      *string           `json:"error"`
}

type LivenessSignal string

const (
	SignalBlink        LivenessSignal = "blink"
	SignalHeadMovement LivenessSignal = "head_movement"
	SignalLipMovement  LivenessSignal = "lip_movement"
	SignalGaze         LivenessSignal = "gaze"
	SignalTexture      LivenessSignal = "texture"
	SignalDepth        LivenessSignal = "depth"
	SignalMotion       LivenessSignal = "motion"
)

type ChallengeStatus struct {
	Type      string  `json:"type"`
	Completed bool    `json:"completed"`
	Score     float64 `json:"score"`
}

type LivenessResult struct {
	IsLive     bool                       `json:"is_live"`
	Confidence float64                    `json:"confidence"`
	Score      float64                    `json:"score"`
	Details    map[LivenessSignal]float64 `json:"details"`
	Challenges []ChallengeStatus          `json:"challenges"`
}

// FrameResult is the interim outcome for one frame of a streaming liveness session.
type FrameResult struct {
	FrameNumber int       `json:"frame_number"`
	Timestamp   time.Time `json:"timestamp"`
	IsLive      bool      `json:"is_live"`
	Confidence  float64   `json:"confidence"`
	Err         error     `json:"-"`
}

type FeatureExtraction struct {
	Vector  []byte  `json:"vector"`
	Quality float64 `json:"quality"`
}

type SearchMatch struct {
	TemplateID string  `json:"template_id"`
	UserID     string  `json:"user_id"`
	Similarity float64 `json:"similarity"`
	Confidence float64 `json:"confidence"`
}

// ProviderError marks a vendor or network failure. Timeouts are wrapped in it
// so the retry policy can treat them uniformly.
type ProviderError struct {
	Provider  string
	Operation string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Provider, e.Operation, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
