package faceauth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	biometric_types "faceguard.io/infrastructure/biometric/types"
)

func newTestStore(provider biometric_types.RecognitionProvider) (*TemplateStore, *memoryRepository, *memoryObjectStore) {
	repo := newMemoryRepository()
	objects := newMemoryObjectStore()
	store := NewTemplateStore(testConfig(), repo, objects, provider)
	store.EncryptionKey = &testEncKey
	return store, repo, objects
}

func TestRegisterEncryptsVectorAndUploadsImage(t *testing.T) {
	store, repo, objects := newTestStore(&mockProvider{})

	template, err := store.Register(context.Background(), "user-1", []byte("image-bytes"), "jpeg", goodDetection())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if template.ID == "" {
		t.Error("template is missing an id")
	}
	if template.FeatureVector == "feature-vector" {
		t.Error("feature vector was persisted in plaintext")
	}
	decrypted, err := store.DecryptVector(template)
	if err != nil {
		t.Fatalf("unexpected decrypt error: %v", err)
	}
	if !bytes.Equal(decrypted, []byte("feature-vector")) {
		t.Errorf("decrypted vector = %q, want %q", decrypted, "feature-vector")
	}
	if len(repo.templates) != 1 {
		t.Errorf("got %d rows, want 1", len(repo.templates))
	}
	if _, found := objects.objects[template.SourceImageRef]; !found {
		t.Error("source image was not uploaded")
	}
	if !strings.HasPrefix(template.SourceImageRef, "face-templates/user-1/") {
		t.Errorf("unexpected source image ref %q", template.SourceImageRef)
	}
}

func TestRegisterUsesDeclaredImageFormat(t *testing.T) {
	tests := []struct {
		name            string
		format          string
		wantSuffix      string
		wantContentType string
	}{
		{name: "png keeps its extension", format: "png", wantSuffix: ".png", wantContentType: "image/png"},
		{name: "jpeg normalises to jpg", format: "jpeg", wantSuffix: ".jpg", wantContentType: "image/jpeg"},
		{name: "jpg stays jpg", format: "jpg", wantSuffix: ".jpg", wantContentType: "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _, objects := newTestStore(&mockProvider{})
			template, err := store.Register(context.Background(), "user-1", []byte("image-bytes"), tt.format, goodDetection())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.HasSuffix(template.SourceImageRef, tt.wantSuffix) {
				t.Errorf("source image ref %q should end in %s", template.SourceImageRef, tt.wantSuffix)
			}
			if contentType := objects.contentTypes[template.SourceImageRef]; contentType != tt.wantContentType {
				t.Errorf("content type = %q, want %q", contentType, tt.wantContentType)
			}
		})
	}
}

func TestRegisterRollsBackUploadOnRowFailure(t *testing.T) {
	store, repo, objects := newTestStore(&mockProvider{})
	repo.createErr = fmt.Errorf("insert failed")

	_, err := store.Register(context.Background(), "user-1", []byte("image-bytes"), "jpeg", goodDetection())
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected a StorageError, got %v", err)
	}
	if len(objects.deleted) != 1 {
		t.Fatalf("uploaded blob should be rolled back, deleted %d", len(objects.deleted))
	}
	if len(objects.objects) != 0 {
		t.Error("no blob should survive a failed registration")
	}
}

func TestUpdatePreservesTemplateID(t *testing.T) {
	store, _, _ := newTestStore(&mockProvider{})
	created, err := store.Register(context.Background(), "user-1", []byte("image-one"), "jpeg", goodDetection())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := store.Update(context.Background(), created.ID, []byte("image-two"), "jpeg", goodDetection())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("template id changed from %s to %s", created.ID, updated.ID)
	}
	if updated.SourceImageRef == created.SourceImageRef {
		t.Error("source image ref should point at the replacement image")
	}
}

func TestUpdateUnknownTemplate(t *testing.T) {
	store, _, _ := newTestStore(&mockProvider{})
	_, err := store.Update(context.Background(), "missing", []byte("image"), "jpeg", goodDetection())
	var notFoundErr *TemplateNotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("expected a TemplateNotFoundError, got %v", err)
	}
}

func TestDeleteKeepsRowWhenBlobDeleteFails(t *testing.T) {
	store, repo, objects := newTestStore(&mockProvider{})
	created, err := store.Register(context.Background(), "user-1", []byte("image"), "jpeg", goodDetection())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	objects.deleteErr = fmt.Errorf("blob service down")
	_, err = store.Delete(context.Background(), created.ID)
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected a StorageError, got %v", err)
	}
	if len(repo.templates) != 1 {
		t.Error("row must survive when the blob delete fails")
	}

	objects.deleteErr = nil
	deleted, err := store.Delete(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Error("delete should report success")
	}
	if len(repo.templates) != 0 {
		t.Error("row should be gone after a clean delete")
	}
}

func TestSearchSimilarLinearFallbackOrdering(t *testing.T) {
	// similarity derived from the stored vector so ranking is predictable
	provider := &mockProvider{
		matchFn: func(ctx context.Context, image []byte, template []byte) (*biometric_types.ComparisonResult, error) {
			var similarity float64
			switch string(template) {
			case "vector-a":
				similarity = 0.7
			case "vector-b":
				similarity = 0.9
			case "vector-c":
				similarity = 0.9
			default:
				similarity = 0.1
			}
			return &biometric_types.ComparisonResult{Similarity: similarity, Confidence: 0.9}, nil
		},
	}
	store, _, _ := newTestStore(provider)

	ids := map[string]string{}
	for _, vector := range []string{"vector-a", "vector-b", "vector-c", "vector-d"} {
		vector := vector
		store.Provider = &mockProvider{
			extractFn: func(ctx context.Context, image []byte) (*biometric_types.FeatureExtraction, error) {
				return &biometric_types.FeatureExtraction{Vector: []byte(vector), Quality: 0.9}, nil
			},
		}
		template, err := store.Register(context.Background(), "user-1", []byte(vector), "jpeg", goodDetection())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids[vector] = template.ID
	}
	store.Provider = provider

	matches, err := store.SearchSimilar(context.Background(), []byte("probe"), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	if matches[0].Similarity != 0.9 || matches[1].Similarity != 0.9 {
		t.Errorf("top matches should carry the highest similarity, got %v and %v", matches[0].Similarity, matches[1].Similarity)
	}
	if matches[0].TemplateID > matches[1].TemplateID {
		t.Error("equal similarities must be ordered by ascending template id")
	}
	if matches[2].Similarity != 0.7 {
		t.Errorf("third match similarity = %v, want 0.7", matches[2].Similarity)
	}
	wantTop := map[string]bool{ids["vector-b"]: true, ids["vector-c"]: true}
	if !wantTop[matches[0].TemplateID] || !wantTop[matches[1].TemplateID] {
		t.Error("top matches should be the two 0.9 templates")
	}
}

func TestSearchSimilarRejectsBadLimit(t *testing.T) {
	store, _, _ := newTestStore(&mockProvider{})
	_, err := store.SearchSimilar(context.Background(), []byte("probe"), 0)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected a ValidationError, got %v", err)
	}
}
