package types

import "time"

// MetricsSink records operational metrics and audit events. Implementations
// must never block the caller; events may be buffered or dropped under load.
type MetricsSink interface {
	RecordMetric(name string, payload map[string]any)
	RecordError(kind string, payload map[string]any)
	RecordLatency(name string, duration time.Duration, tags map[string]string)
}
