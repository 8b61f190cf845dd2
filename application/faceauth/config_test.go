package faceauth

import (
	"strings"
	"testing"
)

func TestFaceAuthConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(config *FaceAuthConfig)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "defaults are valid",
			mutate: func(config *FaceAuthConfig) {},
		},
		{
			name: "match threshold above range",
			mutate: func(config *FaceAuthConfig) {
				config.MatchThreshold = 1.5
			},
			wantErr: true,
			errMsg:  "match threshold must be between 0.0 and 1.0",
		},
		{
			name: "negative liveness threshold",
			mutate: func(config *FaceAuthConfig) {
				config.LivenessThreshold = -0.1
			},
			wantErr: true,
			errMsg:  "liveness threshold must be between 0.0 and 1.0",
		},
		{
			name: "zero max image size",
			mutate: func(config *FaceAuthConfig) {
				config.MaxImageSize = 0
			},
			wantErr: true,
			errMsg:  "max image size must be positive",
		},
		{
			name: "no allowed formats",
			mutate: func(config *FaceAuthConfig) {
				config.AllowedFormats = nil
			},
			wantErr: true,
			errMsg:  "at least one allowed image format is required",
		},
		{
			name: "blank allowed format",
			mutate: func(config *FaceAuthConfig) {
				config.AllowedFormats = []string{"jpeg", "  "}
			},
			wantErr: true,
			errMsg:  "allowed image formats must not be blank",
		},
		{
			name: "negative retry attempts",
			mutate: func(config *FaceAuthConfig) {
				config.RetryAttempts = -1
			},
			wantErr: true,
			errMsg:  "retry attempts must not be negative",
		},
		{
			name: "zero timeout",
			mutate: func(config *FaceAuthConfig) {
				config.Timeout = 0
			},
			wantErr: true,
			errMsg:  "timeout must be positive",
		},
		{
			name: "zero batch concurrency",
			mutate: func(config *FaceAuthConfig) {
				config.BatchConcurrency = 0
			},
			wantErr: true,
			errMsg:  "batch concurrency must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultFaceAuthConfig()
			tt.mutate(&config)
			err := config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
