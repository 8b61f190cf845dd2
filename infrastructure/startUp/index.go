package startup

import (
	"os"
	"strconv"
	"time"

	"faceguard.io/application/controller"
	"faceguard.io/application/faceauth"
	"faceguard.io/application/repository"
	"faceguard.io/infrastructure/biometric"
	"faceguard.io/infrastructure/database"
	"faceguard.io/infrastructure/database/connection/datastore"
	"faceguard.io/infrastructure/database/repository/cache"
	fileupload "faceguard.io/infrastructure/file_upload"
	"faceguard.io/infrastructure/logger"
	messagequeue "faceguard.io/infrastructure/message_queue"
	"faceguard.io/infrastructure/metrics"
)

var metricsSink *metrics.QueueSink

// Used to start services such as loggers, databases, queues, etc.
func StartServices() {
	logger.InitializeLogger()
	database.SetUpDatabase()

	config := loadFaceAuthConfig()
	provider, err := biometric.NewProvider(config.Timeout)
	if err != nil {
		panic(err)
	}

	uploader := fileupload.NewFileUploader()
	store := faceauth.NewTemplateStore(config, repository.FaceTemplateRepo(), uploader, provider)
	verifier := faceauth.NewLivenessVerifier(config, provider, &faceauth.RedisChallengeStore{Cache: &cache.Cache})
	metricsSink = metrics.NewQueueSink(messagequeue.TaskQueue, 1024)

	orchestrator, err := faceauth.NewAuthenticationOrchestrator(config, provider, store, verifier, metricsSink, messagequeue.TaskQueue)
	if err != nil {
		panic(err)
	}
	controller.Initialize(orchestrator)
}

// Used to clean up after services that have been shutdown.
func CleanUpServices() {
	if metricsSink != nil {
		metricsSink.Close()
	}
	datastore.CleanUp()
}

func loadFaceAuthConfig() faceauth.FaceAuthConfig {
	config := faceauth.DefaultFaceAuthConfig()
	config.MatchThreshold = envFloat("MATCH_THRESHOLD", config.MatchThreshold)
	config.ConfidenceThreshold = envFloat("CONFIDENCE_THRESHOLD", config.ConfidenceThreshold)
	config.LivenessThreshold = envFloat("LIVENESS_THRESHOLD", config.LivenessThreshold)
	config.QualityThreshold = envFloat("QUALITY_THRESHOLD", config.QualityThreshold)
	config.MaxImageSize = envInt("MAX_IMAGE_SIZE", config.MaxImageSize)
	config.EnableLiveness = envBool("ENABLE_LIVENESS", config.EnableLiveness)
	config.EnableQualityCheck = envBool("ENABLE_QUALITY_CHECK", config.EnableQualityCheck)
	config.RetryAttempts = envInt("PROVIDER_RETRY_ATTEMPTS", config.RetryAttempts)
	config.Timeout = time.Duration(envInt("PROVIDER_TIMEOUT_SECS", int(config.Timeout/time.Second))) * time.Second
	config.BatchConcurrency = int64(envInt("BATCH_CONCURRENCY", int(config.BatchConcurrency)))
	return config
}

func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logger.Warning("invalid float env var, using default", logger.LoggerOptions{
			Key:  "name",
			Data: name,
		})
		return fallback
	}
	return value
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warning("invalid int env var, using default", logger.LoggerOptions{
			Key:  "name",
			Data: name,
		})
		return fallback
	}
	return value
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
