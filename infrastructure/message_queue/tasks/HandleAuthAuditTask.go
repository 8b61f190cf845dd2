package queue_tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"faceguard.io/infrastructure/database/repository/cache"
	"faceguard.io/infrastructure/logger"
	mq_types "faceguard.io/infrastructure/message_queue/types"
	"github.com/hibiken/asynq"
)

var HandleAuthAuditTaskName mq_types.TaskName = "record_auth_audit"

// AuthAuditPayload is one authentication or enrollment attempt, success or not.
type AuthAuditPayload struct {
	Operation  string
	UserID     string
	TemplateID string
	Success    bool
	Confidence float64
	Similarity float64
	Reason     string
	LatencyMs  int64
	RecordedAt time.Time
}

func HandleAuthAuditTask(ctx context.Context, t *asynq.Task) error {
	var payload AuthAuditPayload
	err := json.Unmarshal(t.Payload(), &payload)
	if err != nil {
		logger.Error("an error occured while unmarshalling auth audit payload", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return err
	}
	entry, _ := json.Marshal(payload)
	key := fmt.Sprintf("auth-audit-%s-%d", payload.UserID, payload.RecordedAt.UnixNano())
	if !cache.Cache.CreateEntry(key, entry, time.Hour*24*30) {
		return fmt.Errorf("failed to persist auth audit entry for %s", payload.UserID)
	}
	logger.Info("auth attempt recorded", logger.LoggerOptions{
		Key:  "operation",
		Data: payload.Operation,
	}, logger.LoggerOptions{
		Key:  "userID",
		Data: payload.UserID,
	}, logger.LoggerOptions{
		Key:  "success",
		Data: payload.Success,
	})
	return nil
}
