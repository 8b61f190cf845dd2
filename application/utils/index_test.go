package utils

import (
	"encoding/base64"
	"testing"
)

func TestDecodeBase64Image(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("image-bytes"))

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "plain base64",
			input: payload,
		},
		{
			name:  "data uri prefix",
			input: "data:image/png;base64," + payload,
		},
		{
			name:    "not base64",
			input:   "!!definitely not base64!!",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeBase64Image(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(decoded) != "image-bytes" {
				t.Errorf("decoded = %q, want %q", decoded, "image-bytes")
			}
		})
	}
}

func TestGenerateULIDStringIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateULIDString()
		if len(id) != 26 {
			t.Fatalf("ulid %q has length %d, want 26", id, len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate ulid %q", id)
		}
		seen[id] = true
	}
}

func TestPickRandomStrings(t *testing.T) {
	pool := []string{"a", "b", "c", "d"}

	picked := PickRandomStrings(pool, 2)
	if len(picked) != 2 {
		t.Fatalf("got %d items, want 2", len(picked))
	}
	if picked[0] == picked[1] {
		t.Error("picked items must be distinct")
	}

	all := PickRandomStrings(pool, 10)
	if len(all) != len(pool) {
		t.Errorf("got %d items, want the whole pool", len(all))
	}
}
