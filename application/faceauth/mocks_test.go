package faceauth

import (
	"context"
	"fmt"
	"sync"
	"time"

	biometric_types "faceguard.io/infrastructure/biometric/types"
	mongo_repository "faceguard.io/infrastructure/database/repository/mongo"
	mq_types "faceguard.io/infrastructure/message_queue/types"

	"faceguard.io/entities"
)

// hex encoded AES-256 key used to encrypt feature vectors in tests
var testEncKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func testConfig() FaceAuthConfig {
	config := DefaultFaceAuthConfig()
	config.RetryAttempts = 0
	config.BackoffBase = time.Millisecond
	config.Timeout = time.Second
	return config
}

type mockProvider struct {
	mu sync.Mutex

	detectFn   func(ctx context.Context, image []byte) (*biometric_types.DetectionResult, error)
	compareFn  func(ctx context.Context, imageA []byte, imageB []byte) (*biometric_types.ComparisonResult, error)
	matchFn    func(ctx context.Context, image []byte, template []byte) (*biometric_types.ComparisonResult, error)
	extractFn  func(ctx context.Context, image []byte) (*biometric_types.FeatureExtraction, error)
	livenessFn func(ctx context.Context, frames [][]byte) (*biometric_types.LivenessResult, error)

	detectCalls   int
	matchCalls    int
	livenessCalls int
}

func (provider *mockProvider) Detect(ctx context.Context, image []byte) (*biometric_types.DetectionResult, error) {
	provider.mu.Lock()
	provider.detectCalls++
	provider.mu.Unlock()
	if provider.detectFn != nil {
		return provider.detectFn(ctx, image)
	}
	return goodDetection(), nil
}

func (provider *mockProvider) Compare(ctx context.Context, imageA []byte, imageB []byte) (*biometric_types.ComparisonResult, error) {
	if provider.compareFn != nil {
		return provider.compareFn(ctx, imageA, imageB)
	}
	return &biometric_types.ComparisonResult{Similarity: 0.9, Confidence: 0.9}, nil
}

func (provider *mockProvider) MatchTemplate(ctx context.Context, image []byte, template []byte) (*biometric_types.ComparisonResult, error) {
	provider.mu.Lock()
	provider.matchCalls++
	provider.mu.Unlock()
	if provider.matchFn != nil {
		return provider.matchFn(ctx, image, template)
	}
	return &biometric_types.ComparisonResult{Similarity: 0.9, Confidence: 0.9}, nil
}

func (provider *mockProvider) ExtractTemplate(ctx context.Context, image []byte) (*biometric_types.FeatureExtraction, error) {
	if provider.extractFn != nil {
		return provider.extractFn(ctx, image)
	}
	return &biometric_types.FeatureExtraction{Vector: []byte("feature-vector"), Quality: 0.9}, nil
}

func (provider *mockProvider) Liveness(ctx context.Context, frames [][]byte) (*biometric_types.LivenessResult, error) {
	provider.mu.Lock()
	provider.livenessCalls++
	provider.mu.Unlock()
	if provider.livenessFn != nil {
		return provider.livenessFn(ctx, frames)
	}
	return &biometric_types.LivenessResult{Score: 0.9, Confidence: 0.9}, nil
}

func goodDetection() *biometric_types.DetectionResult {
	return &biometric_types.DetectionResult{
		Faces: []biometric_types.FaceInfo{{
			FaceID:     "face-1",
			Confidence: 0.95,
			Landmarks:  []biometric_types.Landmark{{Name: "left_eye", X: 10, Y: 12}},
		}},
		ImageQuality: biometric_types.ImageQuality{Brightness: 0.8, Clarity: 0.8, Completeness: 1},
	}
}

type memoryRepository struct {
	mu        sync.Mutex
	templates map[string]entities.FaceTemplate

	createErr error
	findErr   error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{templates: map[string]entities.FaceTemplate{}}
}

func (repo *memoryRepository) CreateOne(ctx context.Context, payload entities.FaceTemplate) (*entities.FaceTemplate, error) {
	if repo.createErr != nil {
		return nil, repo.createErr
	}
	parsed := payload.ParseModel().(*entities.FaceTemplate)
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.templates[parsed.ID] = *parsed
	return parsed, nil
}

func (repo *memoryRepository) FindByID(ctx context.Context, id string) (*entities.FaceTemplate, error) {
	if repo.findErr != nil {
		return nil, repo.findErr
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	template, found := repo.templates[id]
	if !found {
		return nil, nil
	}
	return &template, nil
}

func (repo *memoryRepository) FindMany(ctx context.Context, filter map[string]interface{}, opts ...mongo_repository.FindOptions) (*[]entities.FaceTemplate, error) {
	if repo.findErr != nil {
		return nil, repo.findErr
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	results := []entities.FaceTemplate{}
	userID, filtered := filter["userID"].(string)
	for _, template := range repo.templates {
		if filtered && template.UserID != userID {
			continue
		}
		results = append(results, template)
	}
	return &results, nil
}

func (repo *memoryRepository) UpdatePartialByID(ctx context.Context, id string, payload map[string]interface{}) (int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	template, found := repo.templates[id]
	if !found {
		return 0, nil
	}
	if vector, ok := payload["featureVector"].(string); ok {
		template.FeatureVector = vector
	}
	if quality, ok := payload["quality"].(float64); ok {
		template.Quality = quality
	}
	if ref, ok := payload["sourceImageRef"].(string); ok {
		template.SourceImageRef = ref
	}
	repo.templates[id] = template
	return 1, nil
}

func (repo *memoryRepository) DeleteByID(ctx context.Context, id string) (int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if _, found := repo.templates[id]; !found {
		return 0, nil
	}
	delete(repo.templates, id)
	return 1, nil
}

type memoryObjectStore struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string

	uploadErr error
	deleteErr error
	deleted   []string
}

func newMemoryObjectStore() *memoryObjectStore {
	return &memoryObjectStore{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (store *memoryObjectStore) UploadFile(fileName string, data []byte, contentType string) error {
	if store.uploadErr != nil {
		return store.uploadErr
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	store.objects[fileName] = data
	store.contentTypes[fileName] = contentType
	return nil
}

func (store *memoryObjectStore) GenerateDownloadURL(fileName string) (*string, error) {
	url := fmt.Sprintf("https://blobs.test/%s", fileName)
	return &url, nil
}

func (store *memoryObjectStore) CheckFileExists(fileName string) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	_, found := store.objects[fileName]
	return found, nil
}

func (store *memoryObjectStore) DeleteFile(fileName string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.deleted = append(store.deleted, fileName)
	if store.deleteErr != nil {
		return store.deleteErr
	}
	delete(store.objects, fileName)
	return nil
}

type recordingSink struct {
	mu        sync.Mutex
	metrics   map[string][]map[string]any
	errors    map[string][]map[string]any
	latencies []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		metrics: map[string][]map[string]any{},
		errors:  map[string][]map[string]any{},
	}
}

func (sink *recordingSink) RecordMetric(name string, payload map[string]any) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.metrics[name] = append(sink.metrics[name], payload)
}

func (sink *recordingSink) RecordError(kind string, payload map[string]any) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.errors[kind] = append(sink.errors[kind], payload)
}

func (sink *recordingSink) RecordLatency(name string, duration time.Duration, tags map[string]string) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.latencies = append(sink.latencies, name)
}

type recordingQueue struct {
	mu    sync.Mutex
	tasks []mq_types.QueueTask
}

func (queue *recordingQueue) Start() {}

func (queue *recordingQueue) Enqueue(task mq_types.QueueTask) {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	queue.tasks = append(queue.tasks, task)
}

type memoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
	saveFailed bool
}

func newMemoryChallengeStore() *memoryChallengeStore {
	return &memoryChallengeStore{challenges: map[string]Challenge{}}
}

func (store *memoryChallengeStore) SaveChallenge(challenge Challenge, ttl time.Duration) bool {
	if store.saveFailed {
		return false
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	store.challenges[challenge.ID] = challenge
	return true
}

func (store *memoryChallengeStore) FindChallenge(id string) *Challenge {
	store.mu.Lock()
	defer store.mu.Unlock()
	challenge, found := store.challenges[id]
	if !found {
		return nil
	}
	return &challenge
}

func (store *memoryChallengeStore) MarkChallengeUsed(id string) bool {
	store.mu.Lock()
	defer store.mu.Unlock()
	challenge, found := store.challenges[id]
	if !found {
		return false
	}
	challenge.Used = true
	store.challenges[id] = challenge
	return true
}
