package faceauth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	biometric_types "faceguard.io/infrastructure/biometric/types"
	"faceguard.io/infrastructure/logger"
	queue_tasks "faceguard.io/infrastructure/message_queue/tasks"
	mq_types "faceguard.io/infrastructure/message_queue/types"
	"faceguard.io/infrastructure/metrics"
	metric_types "faceguard.io/infrastructure/metrics/types"

	"faceguard.io/entities"
)

// Authentication pipeline states, used to tag metrics so a failed attempt
// shows how far it got.
const (
	StateStart           = "start"
	StateValidated       = "validated"
	StateDetected        = "detected"
	StateQualityChecked  = "quality_checked"
	StateCompared        = "compared"
	StateLivenessChecked = "liveness_checked"
	StateDecided         = "decided"
)

const (
	ReasonInvalidImage        = "Invalid image"
	ReasonNoEnrolledTemplates = "No enrolled templates"
	ReasonLowConfidence       = "Low detection confidence"
	ReasonNoMatch             = "No matching template"
	ReasonLivenessFailed      = "Liveness detection failed"
	ReasonNoLivenessFrames    = "No liveness frames provided"
)

// AuthenticateOptions tune a single authentication attempt.
type AuthenticateOptions struct {
	// Format is the declared image format, e.g. "jpeg".
	Format string
	// LivenessFrames is the burst of frames for the liveness check.
	LivenessFrames [][]byte
	// EnableLiveness overrides the configured default when set.
	EnableLiveness *bool
}

type LivenessCheck struct {
	Passed bool                            `json:"passed"`
	Result *biometric_types.LivenessResult `json:"result"`
}

// AuthenticationResult is the terminal outcome of one authentication attempt.
// Reason is set exactly when Success is false.
type AuthenticationResult struct {
	Success           bool           `json:"success"`
	Confidence        float64        `json:"confidence"`
	Similarity        float64        `json:"similarity"`
	MatchedTemplateID *string        `json:"matchedTemplateId"`
	LivenessCheck     *LivenessCheck `json:"livenessCheck"`
	Reason            *string        `json:"reason"`
}

// AuthenticationOrchestrator drives the full pipeline: validation, detection,
// quality gating, comparison, liveness and the final decision. Business
// failures become a structured result; infrastructure failures surface as
// errors after retries exhaust.
type AuthenticationOrchestrator struct {
	Config     FaceAuthConfig
	Provider   biometric_types.RecognitionProvider
	Store      *TemplateStore
	Validator  *ImageValidator
	Gate       *QualityGate
	Comparator *FaceComparator
	Verifier   *LivenessVerifier
	Metrics    metric_types.MetricsSink
	Queue      mq_types.TaskQueueBroker
	Retry      RetryPolicy
}

func NewAuthenticationOrchestrator(config FaceAuthConfig, provider biometric_types.RecognitionProvider, store *TemplateStore, verifier *LivenessVerifier, sink metric_types.MetricsSink, queue mq_types.TaskQueueBroker) (*AuthenticationOrchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	return &AuthenticationOrchestrator{
		Config:     config,
		Provider:   provider,
		Store:      store,
		Validator:  NewImageValidator(config),
		Gate:       NewQualityGate(config),
		Comparator: NewFaceComparator(config, provider),
		Verifier:   verifier,
		Metrics:    sink,
		Queue:      queue,
		Retry:      RetryPolicy{Attempts: config.RetryAttempts, BackoffBase: config.BackoffBase},
	}, nil
}

// DetectFace validates the image and runs face detection with retries.
func (orchestrator *AuthenticationOrchestrator) DetectFace(ctx context.Context, image []byte, format string) (*biometric_types.DetectionResult, error) {
	if err := orchestrator.Validator.Validate(image, format); err != nil {
		return nil, err
	}
	return doWithRetry(ctx, orchestrator.Retry, "detect", func(ctx context.Context) (*biometric_types.DetectionResult, error) {
		callCtx, cancel := orchestrator.callContext(ctx)
		defer cancel()
		return orchestrator.Provider.Detect(callCtx, image)
	})
}

// CompareFaces validates both images and compares them with retries.
func (orchestrator *AuthenticationOrchestrator) CompareFaces(ctx context.Context, imageA []byte, imageB []byte, format string) (*biometric_types.ComparisonResult, error) {
	if err := orchestrator.Validator.Validate(imageA, format); err != nil {
		return nil, err
	}
	if err := orchestrator.Validator.Validate(imageB, format); err != nil {
		return nil, err
	}
	return doWithRetry(ctx, orchestrator.Retry, "compare", func(ctx context.Context) (*biometric_types.ComparisonResult, error) {
		callCtx, cancel := orchestrator.callContext(ctx)
		defer cancel()
		return orchestrator.Comparator.Compare(callCtx, imageA, imageB)
	})
}

// AuthenticateUser runs the full decision pipeline for one user. Every
// transition failure terminates with a structured result and never advances.
func (orchestrator *AuthenticationOrchestrator) AuthenticateUser(ctx context.Context, userID string, image []byte, opts AuthenticateOptions) (*AuthenticationResult, error) {
	startedAt := time.Now()
	state := StateStart

	fail := func(reason string) *AuthenticationResult {
		result := &AuthenticationResult{Success: false, Reason: &reason}
		orchestrator.recordAttempt("authenticate", userID, result, state, startedAt)
		return result
	}

	if err := orchestrator.Validator.Validate(image, opts.Format); err != nil {
		return fail(ReasonInvalidImage), nil
	}
	state = StateValidated

	livenessWanted := orchestrator.livenessEnabled(opts)
	if livenessWanted && len(opts.LivenessFrames) == 0 {
		return fail(ReasonNoLivenessFrames), nil
	}

	templates, err := orchestrator.Store.FindByUser(ctx, userID)
	if err != nil {
		orchestrator.recordFailure("authenticate", userID, state, startedAt, err)
		return nil, err
	}
	if len(templates) == 0 {
		return fail(ReasonNoEnrolledTemplates), nil
	}

	detection, err := doWithRetry(ctx, orchestrator.Retry, "detect", func(ctx context.Context) (*biometric_types.DetectionResult, error) {
		callCtx, cancel := orchestrator.callContext(ctx)
		defer cancel()
		return orchestrator.Provider.Detect(callCtx, image)
	})
	if err != nil {
		orchestrator.recordFailure("authenticate", userID, state, startedAt, err)
		return nil, err
	}
	if len(detection.Faces) == 0 || detection.Faces[0].Confidence < orchestrator.Config.ConfidenceThreshold {
		return fail(ReasonLowConfidence), nil
	}
	state = StateDetected

	if orchestrator.Config.EnableQualityCheck {
		if check := orchestrator.Gate.Assess(detection); !check.Passed {
			return fail(fmt.Sprintf("Poor image quality: %s", strings.Join(check.Issues, ", "))), nil
		}
	}
	state = StateQualityChecked

	vectors := make([][]byte, 0, len(templates))
	owners := make([]entities.FaceTemplate, 0, len(templates))
	for i := range templates {
		vector, decryptErr := orchestrator.Store.DecryptVector(&templates[i])
		if decryptErr != nil {
			orchestrator.recordFailure("authenticate", userID, state, startedAt, decryptErr)
			return nil, decryptErr
		}
		vectors = append(vectors, vector)
		owners = append(owners, templates[i])
	}
	comparisons := orchestrator.Comparator.BatchMatchTemplates(ctx, image, vectors)

	bestIndex := -1
	for i, comparison := range comparisons {
		if comparison.Error != nil || !comparison.IsMatch {
			continue
		}
		if bestIndex == -1 || comparison.Similarity > comparisons[bestIndex].Similarity {
			bestIndex = i
		}
	}
	if bestIndex == -1 {
		return fail(ReasonNoMatch), nil
	}
	state = StateCompared
	best := comparisons[bestIndex]
	matched := owners[bestIndex]

	result := &AuthenticationResult{
		Success:           true,
		Confidence:        best.Confidence,
		Similarity:        best.Similarity,
		MatchedTemplateID: &matched.ID,
	}

	if livenessWanted {
		liveness, livenessErr := doWithRetry(ctx, orchestrator.Retry, "liveness", func(ctx context.Context) (*biometric_types.LivenessResult, error) {
			callCtx, cancel := orchestrator.callContext(ctx)
			defer cancel()
			return orchestrator.Verifier.VerifySingle(callCtx, opts.LivenessFrames)
		})
		if livenessErr != nil {
			orchestrator.recordFailure("authenticate", userID, state, startedAt, livenessErr)
			return nil, livenessErr
		}
		result.LivenessCheck = &LivenessCheck{Passed: liveness.IsLive, Result: liveness}
		if !liveness.IsLive {
			logger.Warning("liveness check rejected an otherwise matching face", logger.LoggerOptions{
				Key:  "userID",
				Data: userID,
			}, logger.LoggerOptions{
				Key:  "score",
				Data: liveness.Score,
			})
			reason := ReasonLivenessFailed
			result.Success = false
			result.Reason = &reason
			orchestrator.recordAttempt("authenticate", userID, result, state, startedAt)
			return result, nil
		}
		state = StateLivenessChecked
	}

	state = StateDecided
	orchestrator.recordAttempt("authenticate", userID, result, state, startedAt)
	return result, nil
}

// RegisterFaceTemplate enrolls a new face for a user after the same
// validation, detection and quality gates used for authentication.
func (orchestrator *AuthenticationOrchestrator) RegisterFaceTemplate(ctx context.Context, userID string, image []byte, format string) (*entities.FaceTemplate, error) {
	startedAt := time.Now()
	detection, err := orchestrator.gateEnrollmentImage(ctx, userID, image, format, startedAt)
	if err != nil {
		return nil, err
	}
	template, err := orchestrator.Store.Register(ctx, userID, image, format, detection)
	if err != nil {
		orchestrator.recordFailure("register", userID, StateQualityChecked, startedAt, err)
		return nil, err
	}
	orchestrator.Metrics.RecordMetric("template_registered", map[string]any{
		"userID":     userID,
		"templateID": template.ID,
		"quality":    template.Quality,
	})
	return template, nil
}

// UpdateFaceTemplate re-enrolls an existing template from a fresh image.
func (orchestrator *AuthenticationOrchestrator) UpdateFaceTemplate(ctx context.Context, templateID string, image []byte, format string) (*entities.FaceTemplate, error) {
	startedAt := time.Now()
	detection, err := orchestrator.gateEnrollmentImage(ctx, "", image, format, startedAt)
	if err != nil {
		return nil, err
	}
	template, err := orchestrator.Store.Update(ctx, templateID, image, format, detection)
	if err != nil {
		orchestrator.recordFailure("update", "", StateQualityChecked, startedAt, err)
		return nil, err
	}
	return template, nil
}

// DeleteFaceTemplate removes an enrolled template and its stored image.
func (orchestrator *AuthenticationOrchestrator) DeleteFaceTemplate(ctx context.Context, templateID string) (bool, error) {
	startedAt := time.Now()
	deleted, err := orchestrator.Store.Delete(ctx, templateID)
	if err != nil {
		orchestrator.recordFailure("delete", "", StateStart, startedAt, err)
		return false, err
	}
	orchestrator.Metrics.RecordMetric("template_deleted", map[string]any{"templateID": templateID})
	return deleted, nil
}

// SearchSimilarFaces finds the stored templates closest to a probe image.
func (orchestrator *AuthenticationOrchestrator) SearchSimilarFaces(ctx context.Context, image []byte, format string, limit int) ([]biometric_types.SearchMatch, error) {
	startedAt := time.Now()
	if err := orchestrator.Validator.Validate(image, format); err != nil {
		return nil, err
	}
	var matches []biometric_types.SearchMatch
	err := orchestrator.Retry.Do(ctx, "search", func(ctx context.Context) error {
		callCtx, cancel := orchestrator.callContext(ctx)
		defer cancel()
		var searchErr error
		matches, searchErr = orchestrator.Store.SearchSimilar(callCtx, image, limit)
		return searchErr
	})
	if err != nil {
		orchestrator.recordFailure("search", "", StateValidated, startedAt, err)
		return nil, err
	}
	return matches, nil
}

func (orchestrator *AuthenticationOrchestrator) gateEnrollmentImage(ctx context.Context, userID string, image []byte, format string, startedAt time.Time) (*biometric_types.DetectionResult, error) {
	if err := orchestrator.Validator.Validate(image, format); err != nil {
		return nil, err
	}
	detection, err := doWithRetry(ctx, orchestrator.Retry, "detect", func(ctx context.Context) (*biometric_types.DetectionResult, error) {
		callCtx, cancel := orchestrator.callContext(ctx)
		defer cancel()
		return orchestrator.Provider.Detect(callCtx, image)
	})
	if err != nil {
		orchestrator.recordFailure("enroll", userID, StateValidated, startedAt, err)
		return nil, err
	}
	if len(detection.Faces) == 0 || detection.Faces[0].Confidence < orchestrator.Config.ConfidenceThreshold {
		return nil, &ValidationError{Reason: ReasonLowConfidence}
	}
	if orchestrator.Config.EnableQualityCheck {
		if check := orchestrator.Gate.Assess(detection); !check.Passed {
			return nil, &QualityError{Issues: check.Issues}
		}
	}
	return detection, nil
}

func (orchestrator *AuthenticationOrchestrator) livenessEnabled(opts AuthenticateOptions) bool {
	if opts.EnableLiveness != nil {
		return *opts.EnableLiveness
	}
	return orchestrator.Config.EnableLiveness
}

func (orchestrator *AuthenticationOrchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, orchestrator.Config.Timeout)
}

func (orchestrator *AuthenticationOrchestrator) recordAttempt(operation string, userID string, result *AuthenticationResult, state string, startedAt time.Time) {
	latency := time.Since(startedAt)
	orchestrator.Metrics.RecordMetric(fmt.Sprintf("%s_attempt", operation), map[string]any{
		"userID":     userID,
		"success":    result.Success,
		"confidence": result.Confidence,
		"similarity": result.Similarity,
		"state":      state,
		"latency_ms": latency.Milliseconds(),
	})
	orchestrator.Metrics.RecordLatency(operation, latency, map[string]string{"state": state})
	orchestrator.enqueueAudit(operation, userID, result, latency)
}

func (orchestrator *AuthenticationOrchestrator) recordFailure(operation string, userID string, state string, startedAt time.Time, err error) {
	latency := time.Since(startedAt)
	orchestrator.Metrics.RecordError(operation, map[string]any{
		"userID":     userID,
		"success":    false,
		"confidence": 0.0,
		"similarity": 0.0,
		"state":      state,
		"error":      err.Error(),
		"latency_ms": latency.Milliseconds(),
	})
	orchestrator.Metrics.RecordLatency(operation, latency, map[string]string{"state": state})
	reason := err.Error()
	orchestrator.enqueueAudit(operation, userID, &AuthenticationResult{Success: false, Reason: &reason}, latency)
}

func (orchestrator *AuthenticationOrchestrator) enqueueAudit(operation string, userID string, result *AuthenticationResult, latency time.Duration) {
	if orchestrator.Queue == nil {
		return
	}
	payload := queue_tasks.AuthAuditPayload{
		Operation:  operation,
		UserID:     userID,
		Success:    result.Success,
		Confidence: result.Confidence,
		Similarity: result.Similarity,
		LatencyMs:  latency.Milliseconds(),
		RecordedAt: time.Now(),
	}
	if result.MatchedTemplateID != nil {
		payload.TemplateID = *result.MatchedTemplateID
	}
	if result.Reason != nil {
		payload.Reason = *result.Reason
	}
	serialised, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal auth audit payload", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return
	}
	orchestrator.Queue.Enqueue(mq_types.QueueTask{
		Name:     queue_tasks.HandleAuthAuditTaskName,
		Payload:  serialised,
		Priority: mq_types.Low,
	})
}
