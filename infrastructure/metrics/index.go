package metrics

import (
	"encoding/json"
	"time"

	"faceguard.io/infrastructure/logger"
	queue_tasks "faceguard.io/infrastructure/message_queue/tasks"
	mq_types "faceguard.io/infrastructure/message_queue/types"
	"faceguard.io/infrastructure/metrics/types"
)

// QueueSink buffers metric events in a channel and ships them through the task
// queue from a background worker. Recording never blocks: when the buffer is
// full the event is dropped and counted in a warning log.
type QueueSink struct {
	broker mq_types.TaskQueueBroker
	events chan queue_tasks.MetricPayload
	done   chan struct{}
}

func NewQueueSink(broker mq_types.TaskQueueBroker, bufferSize int) *QueueSink {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	sink := &QueueSink{
		broker: broker,
		events: make(chan queue_tasks.MetricPayload, bufferSize),
		done:   make(chan struct{}),
	}
	go sink.run()
	return sink
}

func (sink *QueueSink) run() {
	for {
		select {
		case event := <-sink.events:
			payload, err := json.Marshal(event)
			if err != nil {
				logger.Error("error marshalling metric event", logger.LoggerOptions{
					Key:  "error",
					Data: err,
				})
				continue
			}
			sink.broker.Enqueue(mq_types.QueueTask{
				Name:     queue_tasks.HandleMetricFlushTaskName,
				Payload:  payload,
				Priority: mq_types.Low,
			})
		case <-sink.done:
			return
		}
	}
}

func (sink *QueueSink) Close() {
	close(sink.done)
}

func (sink *QueueSink) record(event queue_tasks.MetricPayload) {
	select {
	case sink.events <- event:
	default:
		logger.Warning("metric buffer full, event dropped", logger.LoggerOptions{
			Key:  "name",
			Data: event.Name,
		})
	}
}

func (sink *QueueSink) RecordMetric(name string, payload map[string]any) {
	sink.record(queue_tasks.MetricPayload{Kind: "metric", Name: name, Payload: payload})
}

func (sink *QueueSink) RecordError(kind string, payload map[string]any) {
	sink.record(queue_tasks.MetricPayload{Kind: "error", Name: kind, Payload: payload})
}

func (sink *QueueSink) RecordLatency(name string, duration time.Duration, tags map[string]string) {
	sink.record(queue_tasks.MetricPayload{
		Kind:    "latency",
		Name:    name,
		Payload: map[string]any{"duration_ms": duration.Milliseconds()},
		Tags:    tags,
	})
}

// NoopSink discards everything. Useful in tests and local tooling.
type NoopSink struct{}

func (NoopSink) RecordMetric(name string, payload map[string]any) {}

func (NoopSink) RecordError(kind string, payload map[string]any) {}

func (NoopSink) RecordLatency(name string, duration time.Duration, tags map[string]string) {}

var (
	_ types.MetricsSink = (*QueueSink)(nil)
	_ types.MetricsSink = NoopSink{}
)
