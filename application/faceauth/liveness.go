package faceauth

import (
	"context"
	"crypto/sha256"
	"errors"
	"time"

	"faceguard.io/application/utils"
	biometric_types "faceguard.io/infrastructure/biometric/types"
	"faceguard.io/infrastructure/logger"
)

// ErrSessionCancelled is returned by LivenessSession.Final after Cancel.
var ErrSessionCancelled = errors.New("liveness session cancelled")

// signalWeights drive the aggregation of per-signal sub-scores into a single
// liveness score. Signals a provider does not report simply carry no weight.
var signalWeights = map[biometric_types.LivenessSignal]float64{
	biometric_types.SignalBlink:        0.20,
	biometric_types.SignalHeadMovement: 0.20,
	biometric_types.SignalLipMovement:  0.15,
	biometric_types.SignalGaze:         0.10,
	biometric_types.SignalTexture:      0.15,
	biometric_types.SignalDepth:        0.10,
	biometric_types.SignalMotion:       0.10,
}

// challengeSignals maps each challenge action to the liveness signal whose
// score evidences it.
var challengeSignals = map[string]biometric_types.LivenessSignal{
	ChallengeBlink:         biometric_types.SignalBlink,
	ChallengeTurnHeadLeft:  biometric_types.SignalHeadMovement,
	ChallengeTurnHeadRight: biometric_types.SignalHeadMovement,
	ChallengeNod:           biometric_types.SignalHeadMovement,
	ChallengeOpenMouth:     biometric_types.SignalLipMovement,
}

// LivenessVerifier decides whether face frames come from a live subject.
// Providers report raw signals; the live/not-live decision is made here.
type LivenessVerifier struct {
	Provider   biometric_types.RecognitionProvider
	Config     FaceAuthConfig
	Challenges ChallengeStore
}

func NewLivenessVerifier(config FaceAuthConfig, provider biometric_types.RecognitionProvider, challenges ChallengeStore) *LivenessVerifier {
	return &LivenessVerifier{
		Provider:   provider,
		Config:     config,
		Challenges: challenges,
	}
}

// GenerateChallenge issues a one-time challenge of three actions, valid for ttl.
func (verifier *LivenessVerifier) GenerateChallenge(ttl time.Duration) (*Challenge, error) {
	challenge := newChallenge(ttl, 3)
	if verifier.Challenges == nil || !verifier.Challenges.SaveChallenge(challenge, ttl) {
		return nil, &StorageError{Operation: "save liveness challenge", Err: errors.New("challenge store rejected the entry")}
	}
	return &challenge, nil
}

// VerifySingle runs a one-shot liveness check over a short burst of frames.
// When two or more frames are supplied they must not all be identical; a
// replayed static image scores zero motion and never passes.
func (verifier *LivenessVerifier) VerifySingle(ctx context.Context, frames [][]byte) (*biometric_types.LivenessResult, error) {
	if len(frames) == 0 {
		return nil, &ValidationError{Reason: "at least one liveness frame is required"}
	}
	result, err := verifier.Provider.Liveness(ctx, frames)
	if err != nil {
		return nil, err
	}
	staticBurst := len(frames) >= 2 && distinctFrameCount(frames) < 2
	if staticBurst {
		if result.Details == nil {
			result.Details = map[biometric_types.LivenessSignal]float64{}
		}
		result.Details[biometric_types.SignalMotion] = 0
	}
	result.Score = aggregateSignals(result)
	result.IsLive = result.Score >= verifier.Config.LivenessThreshold && !staticBurst
	return result, nil
}

// RequireLive runs VerifySingle and converts a below-threshold outcome into a
// LivenessFailureError for callers that gate on liveness as a hard error.
func (verifier *LivenessVerifier) RequireLive(ctx context.Context, frames [][]byte) (*biometric_types.LivenessResult, error) {
	result, err := verifier.VerifySingle(ctx, frames)
	if err != nil {
		return nil, err
	}
	if !result.IsLive {
		return result, &LivenessFailureError{Score: result.Score, Threshold: verifier.Config.LivenessThreshold}
	}
	return result, nil
}

// SessionOptions configure a streaming liveness session. Frames is consumed
// until closed or the session is cancelled. ChallengeID is optional; when set
// the session only passes once every challenge action is evidenced.
type SessionOptions struct {
	Frames      <-chan []byte
	ChallengeID string
}

// LivenessSession is a cancellable streaming liveness check. Interim frame
// verdicts arrive on Results; Final blocks until the session completes and
// returns the overall outcome.
type LivenessSession struct {
	ID string

	verifier        *LivenessVerifier
	sessionProvider biometric_types.LivenessSessionProvider
	providerRef     string
	required        []string
	progress        map[string]float64

	results chan biometric_types.FrameResult
	cancel  context.CancelFunc
	done    chan struct{}

	frameHashes map[[sha256.Size]byte]struct{}
	frameCount  int
	scoreSum    float64
	scoredCount int

	final    *biometric_types.LivenessResult
	finalErr error
}

// StartSession validates the challenge, opens a vendor session when the
// provider supports one, and begins consuming frames in the background.
func (verifier *LivenessVerifier) StartSession(ctx context.Context, opts SessionOptions) (*LivenessSession, error) {
	if opts.Frames == nil {
		return nil, &ValidationError{Reason: "a frame source is required"}
	}
	var required []string
	if opts.ChallengeID != "" {
		if verifier.Challenges == nil {
			return nil, &ValidationError{Reason: "challenge verification is not configured"}
		}
		challenge := verifier.Challenges.FindChallenge(opts.ChallengeID)
		if challenge == nil || challenge.Used || challenge.Expired(time.Now()) {
			return nil, &ValidationError{Reason: "liveness challenge is unknown, used or expired"}
		}
		verifier.Challenges.MarkChallengeUsed(opts.ChallengeID)
		required = challenge.Actions
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	session := &LivenessSession{
		ID:          utils.GenerateULIDString(),
		verifier:    verifier,
		required:    required,
		progress:    map[string]float64{},
		results:     make(chan biometric_types.FrameResult, 16),
		cancel:      cancel,
		done:        make(chan struct{}),
		frameHashes: map[[sha256.Size]byte]struct{}{},
	}
	if sessionProvider, ok := verifier.Provider.(biometric_types.LivenessSessionProvider); ok {
		ref, err := sessionProvider.OpenLivenessSession(sessionCtx)
		if err != nil {
			cancel()
			return nil, err
		}
		session.sessionProvider = sessionProvider
		session.providerRef = ref
	}
	go session.run(sessionCtx, opts.Frames)
	return session, nil
}

// Results streams one interim verdict per submitted frame. The channel is
// closed when the session ends.
func (session *LivenessSession) Results() <-chan biometric_types.FrameResult {
	return session.results
}

// Cancel stops the session. In-flight frames are dropped and Final returns
// ErrSessionCancelled.
func (session *LivenessSession) Cancel() {
	session.cancel()
}

// Final blocks until the session has finished and returns the overall result.
func (session *LivenessSession) Final() (*biometric_types.LivenessResult, error) {
	<-session.done
	return session.final, session.finalErr
}

func (session *LivenessSession) run(ctx context.Context, frames <-chan []byte) {
	defer session.closeVendorSession()
	for {
		select {
		case <-ctx.Done():
			session.finish(ErrSessionCancelled)
			return
		case frame, open := <-frames:
			if !open {
				session.finish(nil)
				return
			}
			session.processFrame(ctx, frame)
		}
	}
}

func (session *LivenessSession) processFrame(ctx context.Context, frame []byte) {
	session.frameCount++
	session.frameHashes[sha256.Sum256(frame)] = struct{}{}

	var result *biometric_types.LivenessResult
	var err error
	if session.sessionProvider != nil {
		result, err = session.sessionProvider.SubmitLivenessFrame(ctx, session.providerRef, session.frameCount, frame)
	} else {
		result, err = session.verifier.Provider.Liveness(ctx, [][]byte{frame})
	}

	frameResult := biometric_types.FrameResult{
		FrameNumber: session.frameCount,
		Timestamp:   time.Now(),
	}
	if err != nil {
		frameResult.Err = err
		logger.Warning("liveness frame check failed", logger.LoggerOptions{
			Key:  "sessionID",
			Data: session.ID,
		}, logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	} else {
		score := aggregateSignals(result)
		session.scoreSum += score
		session.scoredCount++
		session.recordChallengeProgress(result)
		frameResult.IsLive = score >= session.verifier.Config.LivenessThreshold
		frameResult.Confidence = result.Confidence
	}

	select {
	case session.results <- frameResult:
	case <-ctx.Done():
	}
}

func (session *LivenessSession) recordChallengeProgress(result *biometric_types.LivenessResult) {
	for _, action := range session.required {
		signal := challengeSignals[action]
		if score, found := result.Details[signal]; found && score > session.progress[action] {
			session.progress[action] = score
		}
	}
	for _, status := range result.Challenges {
		if status.Score > session.progress[status.Type] {
			session.progress[status.Type] = status.Score
		}
	}
}

func (session *LivenessSession) finish(err error) {
	if err != nil {
		session.finalErr = err
		close(session.results)
		close(session.done)
		return
	}

	avgScore := 0.0
	if session.scoredCount > 0 {
		avgScore = session.scoreSum / float64(session.scoredCount)
	}
	challenges := make([]biometric_types.ChallengeStatus, 0, len(session.required))
	allComplete := true
	for _, action := range session.required {
		score := session.progress[action]
		completed := score >= session.verifier.Config.ChallengeScoreThreshold
		if !completed {
			allComplete = false
		}
		challenges = append(challenges, biometric_types.ChallengeStatus{
			Type:      action,
			Completed: completed,
			Score:     score,
		})
	}
	staticStream := session.frameCount >= 2 && len(session.frameHashes) < 2
	session.final = &biometric_types.LivenessResult{
		IsLive:     avgScore >= session.verifier.Config.LivenessThreshold && allComplete && !staticStream && session.scoredCount > 0,
		Confidence: avgScore,
		Score:      avgScore,
		Challenges: challenges,
	}
	close(session.results)
	close(session.done)
}

func (session *LivenessSession) closeVendorSession() {
	if session.sessionProvider == nil {
		return
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := session.sessionProvider.CloseLivenessSession(closeCtx, session.providerRef); err != nil {
		logger.Warning("failed to close vendor liveness session", logger.LoggerOptions{
			Key:  "sessionRef",
			Data: session.providerRef,
		}, logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}
}

func aggregateSignals(result *biometric_types.LivenessResult) float64 {
	if len(result.Details) == 0 {
		return result.Score
	}
	weightedSum := 0.0
	totalWeight := 0.0
	for signal, score := range result.Details {
		weight, known := signalWeights[signal]
		if !known {
			continue
		}
		weightedSum += score * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return result.Score
	}
	return weightedSum / totalWeight
}

func distinctFrameCount(frames [][]byte) int {
	hashes := map[[sha256.Size]byte]struct{}{}
	for _, frame := range frames {
		hashes[sha256.Sum256(frame)] = struct{}{}
	}
	return len(hashes)
}
