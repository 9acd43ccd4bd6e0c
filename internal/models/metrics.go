package models

import "time"

// MetricEntry records the outcome of one completed backend call. Entries live
// in a bounded most-recent-first list owned by the metrics collector.
type MetricEntry struct {
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	Backend       BackendKind `json:"backend"`
	StartDate     string      `json:"start_date"`
	EndDate       string      `json:"end_date"`
	MoodCount     int         `json:"mood_count"`
	ActivityCount int         `json:"activity_count"`
	Success       bool        `json:"success"`
	LatencyMs     int64       `json:"latency_ms"`
	ResponseSize  int         `json:"response_size,omitempty"`
	TokensUsed    int         `json:"tokens_used,omitempty"`
	ErrorKind     ErrorKind   `json:"error_kind,omitempty"`
	ErrorMessage  string      `json:"error_message,omitempty"`
}

// DataSize is the total number of records behind the request.
func (m MetricEntry) DataSize() int {
	return m.MoodCount + m.ActivityCount
}
