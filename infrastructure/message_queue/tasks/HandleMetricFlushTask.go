package queue_tasks

import (
	"context"
	"encoding/json"

	"faceguard.io/infrastructure/logger"
	mq_types "faceguard.io/infrastructure/message_queue/types"
	"github.com/hibiken/asynq"
)

var HandleMetricFlushTaskName mq_types.TaskName = "flush_metric"

type MetricPayload struct {
	Kind    string
	Name    string
	Payload map[string]any
	Tags    map[string]string
}

func HandleMetricFlushTask(ctx context.Context, t *asynq.Task) error {
	var payload MetricPayload
	err := json.Unmarshal(t.Payload(), &payload)
	if err != nil {
		logger.Error("an error occured while unmarshalling metric payload", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return err
	}
	logger.Info("metric flushed", logger.LoggerOptions{
		Key:  "kind",
		Data: payload.Kind,
	}, logger.LoggerOptions{
		Key:  "name",
		Data: payload.Name,
	}, logger.LoggerOptions{
		Key:  "payload",
		Data: payload.Payload,
	})
	return nil
}
