package faceauth

import (
	"context"
	"errors"
	"testing"
	"time"

	biometric_types "faceguard.io/infrastructure/biometric/types"
)

func livelyResult() *biometric_types.LivenessResult {
	return &biometric_types.LivenessResult{
		Confidence: 0.9,
		Details: map[biometric_types.LivenessSignal]float64{
			biometric_types.SignalBlink:        0.9,
			biometric_types.SignalHeadMovement: 0.9,
			biometric_types.SignalLipMovement:  0.9,
			biometric_types.SignalTexture:      0.9,
			biometric_types.SignalMotion:       0.9,
		},
	}
}

func TestVerifySingle(t *testing.T) {
	tests := []struct {
		name     string
		frames   [][]byte
		result   *biometric_types.LivenessResult
		wantLive bool
		wantErr  bool
	}{
		{
			name:     "live subject with distinct frames",
			frames:   [][]byte{[]byte("frame-1"), []byte("frame-2"), []byte("frame-3")},
			result:   livelyResult(),
			wantLive: true,
		},
		{
			name:    "no frames",
			frames:  nil,
			wantErr: true,
		},
		{
			name:   "score below threshold",
			frames: [][]byte{[]byte("frame-1"), []byte("frame-2")},
			result: &biometric_types.LivenessResult{
				Confidence: 0.9,
				Details: map[biometric_types.LivenessSignal]float64{
					biometric_types.SignalBlink:   0.2,
					biometric_types.SignalTexture: 0.3,
				},
			},
			wantLive: false,
		},
		{
			name:     "repeated static frame never passes",
			frames:   [][]byte{[]byte("same"), []byte("same"), []byte("same")},
			result:   livelyResult(),
			wantLive: false,
		},
		{
			name:     "single frame relies on passive signals",
			frames:   [][]byte{[]byte("only")},
			result:   livelyResult(),
			wantLive: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{
				livenessFn: func(ctx context.Context, frames [][]byte) (*biometric_types.LivenessResult, error) {
					return tt.result, nil
				},
			}
			verifier := NewLivenessVerifier(testConfig(), provider, newMemoryChallengeStore())
			result, err := verifier.VerifySingle(context.Background(), tt.frames)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.IsLive != tt.wantLive {
				t.Errorf("isLive = %v, want %v (score %v)", result.IsLive, tt.wantLive, result.Score)
			}
		})
	}
}

func TestRequireLive(t *testing.T) {
	lowScore := &biometric_types.LivenessResult{
		Confidence: 0.9,
		Details: map[biometric_types.LivenessSignal]float64{
			biometric_types.SignalBlink:   0.2,
			biometric_types.SignalTexture: 0.3,
		},
	}
	provider := &mockProvider{
		livenessFn: func(ctx context.Context, frames [][]byte) (*biometric_types.LivenessResult, error) {
			return lowScore, nil
		},
	}
	verifier := NewLivenessVerifier(testConfig(), provider, newMemoryChallengeStore())

	result, err := verifier.RequireLive(context.Background(), [][]byte{[]byte("frame-1"), []byte("frame-2")})
	var livenessErr *LivenessFailureError
	if !errors.As(err, &livenessErr) {
		t.Fatalf("expected LivenessFailureError, got %v", err)
	}
	if livenessErr.Threshold != testConfig().LivenessThreshold {
		t.Errorf("threshold = %v, want %v", livenessErr.Threshold, testConfig().LivenessThreshold)
	}
	if result == nil || result.IsLive {
		t.Errorf("expected a non-live result alongside the error, got %+v", result)
	}

	provider.livenessFn = func(ctx context.Context, frames [][]byte) (*biometric_types.LivenessResult, error) {
		return livelyResult(), nil
	}
	result, err = verifier.RequireLive(context.Background(), [][]byte{[]byte("frame-1"), []byte("frame-2")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsLive {
		t.Errorf("expected live result, got score %v", result.Score)
	}
}

func TestGenerateChallenge(t *testing.T) {
	verifier := NewLivenessVerifier(testConfig(), &mockProvider{}, newMemoryChallengeStore())

	challenge, err := verifier.GenerateChallenge(time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if challenge.ID == "" {
		t.Error("challenge is missing an id")
	}
	if len(challenge.Actions) != 3 {
		t.Errorf("got %d actions, want 3", len(challenge.Actions))
	}
	if !challenge.ExpiresAt.After(challenge.CreatedAt) {
		t.Error("challenge should expire after creation")
	}

	failing := newMemoryChallengeStore()
	failing.saveFailed = true
	verifier = NewLivenessVerifier(testConfig(), &mockProvider{}, failing)
	if _, err := verifier.GenerateChallenge(time.Minute); err == nil {
		t.Error("expected an error when the challenge store rejects the entry")
	}
}

func TestStreamingSessionCompletesChallenges(t *testing.T) {
	config := testConfig()
	challenges := newMemoryChallengeStore()
	now := time.Now()
	challenges.SaveChallenge(Challenge{
		ID:        "challenge-1",
		Actions:   []string{ChallengeBlink, ChallengeNod},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Minute),
	}, time.Minute)

	provider := &mockProvider{
		livenessFn: func(ctx context.Context, frames [][]byte) (*biometric_types.LivenessResult, error) {
			return livelyResult(), nil
		},
	}
	verifier := NewLivenessVerifier(config, provider, challenges)

	frames := make(chan []byte, 4)
	frames <- []byte("frame-1")
	frames <- []byte("frame-2")
	frames <- []byte("frame-3")
	close(frames)

	session, err := verifier.StartSession(context.Background(), SessionOptions{
		Frames:      frames,
		ChallengeID: "challenge-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	interim := 0
	for frameResult := range session.Results() {
		interim++
		if frameResult.Err != nil {
			t.Errorf("frame %d errored: %v", frameResult.FrameNumber, frameResult.Err)
		}
		if !frameResult.IsLive {
			t.Errorf("frame %d should be live", frameResult.FrameNumber)
		}
	}
	if interim != 3 {
		t.Errorf("got %d interim results, want 3", interim)
	}

	final, err := session.Final()
	if err != nil {
		t.Fatalf("unexpected final error: %v", err)
	}
	if !final.IsLive {
		t.Errorf("final result should be live, score %v", final.Score)
	}
	if len(final.Challenges) != 2 {
		t.Fatalf("got %d challenge statuses, want 2", len(final.Challenges))
	}
	for _, status := range final.Challenges {
		if !status.Completed {
			t.Errorf("challenge %s should be completed, score %v", status.Type, status.Score)
		}
	}

	stored := challenges.FindChallenge("challenge-1")
	if stored == nil || !stored.Used {
		t.Error("challenge should be marked used once the session starts")
	}
}

func TestStreamingSessionFailsIncompleteChallenges(t *testing.T) {
	challenges := newMemoryChallengeStore()
	now := time.Now()
	challenges.SaveChallenge(Challenge{
		ID:        "challenge-2",
		Actions:   []string{ChallengeOpenMouth},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Minute),
	}, time.Minute)

	// strong passive signals but no lip movement at all
	provider := &mockProvider{
		livenessFn: func(ctx context.Context, frames [][]byte) (*biometric_types.LivenessResult, error) {
			return &biometric_types.LivenessResult{
				Confidence: 0.9,
				Details: map[biometric_types.LivenessSignal]float64{
					biometric_types.SignalBlink:   0.95,
					biometric_types.SignalTexture: 0.95,
					biometric_types.SignalMotion:  0.95,
				},
			}, nil
		},
	}
	verifier := NewLivenessVerifier(testConfig(), provider, challenges)

	frames := make(chan []byte, 2)
	frames <- []byte("frame-1")
	frames <- []byte("frame-2")
	close(frames)

	session, err := verifier.StartSession(context.Background(), SessionOptions{
		Frames:      frames,
		ChallengeID: "challenge-2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range session.Results() {
	}
	final, err := session.Final()
	if err != nil {
		t.Fatalf("unexpected final error: %v", err)
	}
	if final.IsLive {
		t.Error("session should fail while required challenges are incomplete")
	}
}

func TestStreamingSessionCancel(t *testing.T) {
	provider := &mockProvider{
		livenessFn: func(ctx context.Context, frames [][]byte) (*biometric_types.LivenessResult, error) {
			return livelyResult(), nil
		},
	}
	verifier := NewLivenessVerifier(testConfig(), provider, newMemoryChallengeStore())

	frames := make(chan []byte)
	session, err := verifier.StartSession(context.Background(), SessionOptions{Frames: frames})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	session.Cancel()
	for range session.Results() {
	}
	if _, err := session.Final(); !errors.Is(err, ErrSessionCancelled) {
		t.Errorf("final error = %v, want ErrSessionCancelled", err)
	}
}

func TestStartSessionRejectsBadChallenges(t *testing.T) {
	challenges := newMemoryChallengeStore()
	now := time.Now()
	challenges.SaveChallenge(Challenge{
		ID:        "expired",
		Actions:   []string{ChallengeBlink},
		CreatedAt: now.Add(-2 * time.Minute),
		ExpiresAt: now.Add(-time.Minute),
	}, time.Minute)
	used := Challenge{
		ID:        "used",
		Actions:   []string{ChallengeBlink},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Minute),
		Used:      true,
	}
	challenges.SaveChallenge(used, time.Minute)

	verifier := NewLivenessVerifier(testConfig(), &mockProvider{}, challenges)
	frames := make(chan []byte)

	for _, challengeID := range []string{"expired", "used", "unknown"} {
		if _, err := verifier.StartSession(context.Background(), SessionOptions{
			Frames:      frames,
			ChallengeID: challengeID,
		}); err == nil {
			t.Errorf("challenge %q should be rejected", challengeID)
		}
	}
}
