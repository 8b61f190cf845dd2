package dto

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestDecodeFrames(t *testing.T) {
	frame := base64.StdEncoding.EncodeToString([]byte("frame-bytes"))

	tests := []struct {
		name    string
		frames  []string
		want    int
		wantErr bool
		errMsg  string
	}{
		{
			name:   "no frames",
			frames: nil,
			want:   0,
		},
		{
			name:   "plain base64 frames",
			frames: []string{frame, frame},
			want:   2,
		},
		{
			name:   "data uri frame",
			frames: []string{"data:image/jpeg;base64," + frame},
			want:   1,
		},
		{
			name:    "invalid frame reports its index",
			frames:  []string{frame, "!!not-base64!!"},
			wantErr: true,
			errMsg:  "frame 1 is not valid base64",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeFrames(tt.frames)
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
			if len(decoded) != tt.want {
				t.Errorf("got %d frames, want %d", len(decoded), tt.want)
			}
			for _, payload := range decoded {
				if string(payload) != "frame-bytes" {
					t.Errorf("decoded frame = %q, want %q", payload, "frame-bytes")
				}
			}
		})
	}
}
