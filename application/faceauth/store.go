package faceauth

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"faceguard.io/application/utils"
	biometric_types "faceguard.io/infrastructure/biometric/types"
	"faceguard.io/infrastructure/cryptography"
	mongo_repository "faceguard.io/infrastructure/database/repository/mongo"
	fileupload_types "faceguard.io/infrastructure/file_upload/types"
	"faceguard.io/infrastructure/logger"

	"faceguard.io/entities"
)

// TemplateRepository is the datastore surface the store needs. The generic
// mongo repository satisfies it.
type TemplateRepository interface {
	CreateOne(ctx context.Context, payload entities.FaceTemplate) (*entities.FaceTemplate, error)
	FindByID(ctx context.Context, id string) (*entities.FaceTemplate, error)
	FindMany(ctx context.Context, filter map[string]interface{}, opts ...mongo_repository.FindOptions) (*[]entities.FaceTemplate, error)
	UpdatePartialByID(ctx context.Context, id string, payload map[string]interface{}) (int64, error)
	DeleteByID(ctx context.Context, id string) (int64, error)
}

// TemplateStore manages enrolled face templates: feature vectors encrypted in
// the datastore, source images in the object store, and the vendor index when
// the active provider maintains one.
type TemplateStore struct {
	Repository TemplateRepository
	Objects    fileupload_types.FileUploaderType
	Provider   biometric_types.RecognitionProvider
	Comparator *FaceComparator
	Config     FaceAuthConfig

	// EncryptionKey overrides the ambient ENC_KEY when set.
	EncryptionKey *string
}

func NewTemplateStore(config FaceAuthConfig, repository TemplateRepository, objects fileupload_types.FileUploaderType, provider biometric_types.RecognitionProvider) *TemplateStore {
	return &TemplateStore{
		Repository: repository,
		Objects:    objects,
		Provider:   provider,
		Comparator: NewFaceComparator(config, provider),
		Config:     config,
	}
}

func templateImageRef(userID string, format string) string {
	return fmt.Sprintf("face-templates/%s/%s.%s", userID, utils.GenerateULIDString(), imageExtension(format))
}

func imageExtension(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" || format == "jpeg" {
		return "jpg"
	}
	return format
}

func imageContentType(format string) string {
	if imageExtension(format) == "png" {
		return "image/png"
	}
	return "image/jpeg"
}

// Register extracts a feature vector from the image and persists a new
// template. The source image is uploaded first; if the datastore insert then
// fails the uploaded blob is removed so no orphan is left behind.
func (store *TemplateStore) Register(ctx context.Context, userID string, image []byte, format string, detection *biometric_types.DetectionResult) (*entities.FaceTemplate, error) {
	extraction, err := store.Provider.ExtractTemplate(ctx, image)
	if err != nil {
		return nil, err
	}
	encrypted, err := cryptography.EncryptData(extraction.Vector, store.EncryptionKey)
	if err != nil {
		return nil, &StorageError{Operation: "encrypt feature vector", Err: err}
	}

	imageRef := templateImageRef(userID, format)
	if err := store.Objects.UploadFile(imageRef, image, imageContentType(format)); err != nil {
		return nil, &StorageError{Operation: "upload enrollment image", Err: err}
	}

	template := entities.FaceTemplate{
		UserID:         userID,
		FeatureVector:  *encrypted,
		Quality:        extraction.Quality,
		SourceImageRef: imageRef,
		Metadata:       templateMetadata(detection),
	}
	created, err := store.Repository.CreateOne(ctx, template)
	if err != nil {
		if cleanupErr := store.Objects.DeleteFile(imageRef); cleanupErr != nil {
			logger.Error("failed to remove orphaned enrollment image", logger.LoggerOptions{
				Key:  "imageRef",
				Data: imageRef,
			}, logger.LoggerOptions{
				Key:  "error",
				Data: cleanupErr,
			})
		}
		return nil, &StorageError{Operation: "create face template", Err: err}
	}

	store.indexTemplate(ctx, created.ID, userID, extraction.Vector)
	return created, nil
}

// Update replaces a template's feature vector, quality and source image while
// preserving its identifier and owner.
func (store *TemplateStore) Update(ctx context.Context, templateID string, image []byte, format string, detection *biometric_types.DetectionResult) (*entities.FaceTemplate, error) {
	existing, err := store.Repository.FindByID(ctx, templateID)
	if err != nil {
		return nil, &StorageError{Operation: "find face template", Err: err}
	}
	if existing == nil {
		return nil, &TemplateNotFoundError{TemplateID: templateID}
	}

	extraction, err := store.Provider.ExtractTemplate(ctx, image)
	if err != nil {
		return nil, err
	}
	encrypted, err := cryptography.EncryptData(extraction.Vector, store.EncryptionKey)
	if err != nil {
		return nil, &StorageError{Operation: "encrypt feature vector", Err: err}
	}

	imageRef := templateImageRef(existing.UserID, format)
	if err := store.Objects.UploadFile(imageRef, image, imageContentType(format)); err != nil {
		return nil, &StorageError{Operation: "upload enrollment image", Err: err}
	}

	now := time.Now()
	_, err = store.Repository.UpdatePartialByID(ctx, templateID, map[string]interface{}{
		"featureVector":  *encrypted,
		"quality":        extraction.Quality,
		"sourceImageRef": imageRef,
		"metadata":       templateMetadata(detection),
		"updatedAt":      now,
	})
	if err != nil {
		if cleanupErr := store.Objects.DeleteFile(imageRef); cleanupErr != nil {
			logger.Error("failed to remove replacement enrollment image", logger.LoggerOptions{
				Key:  "imageRef",
				Data: imageRef,
			}, logger.LoggerOptions{
				Key:  "error",
				Data: cleanupErr,
			})
		}
		return nil, &StorageError{Operation: "update face template", Err: err}
	}

	if err := store.Objects.DeleteFile(existing.SourceImageRef); err != nil {
		logger.Warning("failed to remove superseded enrollment image", logger.LoggerOptions{
			Key:  "imageRef",
			Data: existing.SourceImageRef,
		}, logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}

	store.indexTemplate(ctx, existing.ID, existing.UserID, extraction.Vector)

	existing.FeatureVector = *encrypted
	existing.Quality = extraction.Quality
	existing.SourceImageRef = imageRef
	existing.Metadata = templateMetadata(detection)
	existing.UpdatedAt = now
	return existing, nil
}

// Delete removes a template and its source image. The object store delete runs
// first; if it fails the datastore row is kept so a retry can finish the job.
func (store *TemplateStore) Delete(ctx context.Context, templateID string) (bool, error) {
	existing, err := store.Repository.FindByID(ctx, templateID)
	if err != nil {
		return false, &StorageError{Operation: "find face template", Err: err}
	}
	if existing == nil {
		return false, &TemplateNotFoundError{TemplateID: templateID}
	}

	if err := store.Objects.DeleteFile(existing.SourceImageRef); err != nil {
		return false, &StorageError{Operation: "delete enrollment image", Err: err}
	}
	deleted, err := store.Repository.DeleteByID(ctx, templateID)
	if err != nil {
		return false, &StorageError{Operation: "delete face template", Err: err}
	}

	if searcher, capable := store.Provider.(biometric_types.TemplateSearcher); capable {
		if err := searcher.RemoveTemplate(ctx, templateID); err != nil {
			logger.Warning("failed to remove template from vendor index", logger.LoggerOptions{
				Key:  "templateID",
				Data: templateID,
			}, logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
		}
	}
	return deleted > 0, nil
}

// FindByUser returns a user's templates, newest first.
func (store *TemplateStore) FindByUser(ctx context.Context, userID string) ([]entities.FaceTemplate, error) {
	var sortSpec interface{} = map[string]interface{}{"createdAt": -1}
	templates, err := store.Repository.FindMany(ctx, map[string]interface{}{"userID": userID}, mongo_repository.FindOptions{
		Sort: &sortSpec,
	})
	if err != nil {
		return nil, &StorageError{Operation: "find face templates", Err: err}
	}
	return *templates, nil
}

// DecryptVector recovers a template's plaintext feature vector.
func (store *TemplateStore) DecryptVector(template *entities.FaceTemplate) ([]byte, error) {
	vector, err := cryptography.DecryptData(template.FeatureVector, store.EncryptionKey)
	if err != nil {
		return nil, &StorageError{Operation: "decrypt feature vector", Err: err}
	}
	return vector, nil
}

// SearchSimilar finds the stored templates most similar to a probe image.
// Providers with an index answer directly; otherwise every template is
// compared and ranked by similarity descending, template id ascending on ties.
func (store *TemplateStore) SearchSimilar(ctx context.Context, image []byte, limit int) ([]biometric_types.SearchMatch, error) {
	if limit <= 0 {
		return nil, &ValidationError{Reason: "search limit must be positive"}
	}
	if searcher, capable := store.Provider.(biometric_types.TemplateSearcher); capable {
		return searcher.SearchTemplates(ctx, image, limit)
	}

	templates, err := store.Repository.FindMany(ctx, map[string]interface{}{})
	if err != nil {
		return nil, &StorageError{Operation: "find face templates", Err: err}
	}

	candidates := make([][]byte, 0, len(*templates))
	owners := make([]entities.FaceTemplate, 0, len(*templates))
	for _, template := range *templates {
		vector, decryptErr := store.DecryptVector(&template)
		if decryptErr != nil {
			logger.Warning("skipping undecryptable face template", logger.LoggerOptions{
				Key:  "templateID",
				Data: template.ID,
			})
			continue
		}
		candidates = append(candidates, vector)
		owners = append(owners, template)
	}

	results := store.Comparator.BatchMatchTemplates(ctx, image, candidates)
	matches := make([]biometric_types.SearchMatch, 0, len(results))
	for i, result := range results {
		if result.Error != nil {
			continue
		}
		matches = append(matches, biometric_types.SearchMatch{
			TemplateID: owners[i].ID,
			UserID:     owners[i].UserID,
			Similarity: result.Similarity,
			Confidence: result.Confidence,
		})
	}
	sort.Slice(matches, func(i int, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].TemplateID < matches[j].TemplateID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (store *TemplateStore) indexTemplate(ctx context.Context, templateID string, userID string, vector []byte) {
	searcher, capable := store.Provider.(biometric_types.TemplateSearcher)
	if !capable {
		return
	}
	if err := searcher.IndexTemplate(ctx, templateID, userID, vector); err != nil {
		logger.Warning("failed to index template with vendor", logger.LoggerOptions{
			Key:  "templateID",
			Data: templateID,
		}, logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}
}

func templateMetadata(detection *biometric_types.DetectionResult) entities.TemplateMetadata {
	metadata := entities.TemplateMetadata{}
	if detection == nil || len(detection.Faces) == 0 {
		return metadata
	}
	primary := detection.Faces[0]
	metadata.DetectionConfidence = primary.Confidence
	for _, landmark := range primary.Landmarks {
		metadata.Landmarks = append(metadata.Landmarks, entities.TemplateLandmark{
			Name: landmark.Name,
			X:    landmark.X,
			Y:    landmark.Y,
		})
	}
	return metadata
}
