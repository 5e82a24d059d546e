package models

import "time"

// TimelineEvent is one entry in an investigation's append-only audit
// timeline.
type TimelineEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Phase     State          `json:"phase"`
	Message   string         `json:"message"`
	Author    string         `json:"author,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// MetricsSnapshot is the point-in-time counters surface for get_metrics().
type MetricsSnapshot struct {
	ActiveCount    int           `json:"active_count"`
	StartedTotal   int           `json:"started_total"`
	CompletedTotal int           `json:"completed_total"`
	PartialTotal   int           `json:"partial_total"`
	FailedTotal    int           `json:"failed_total"`
	SuccessRate    float64       `json:"success_rate"`
	AvgDuration    time.Duration `json:"avg_duration"`
}
