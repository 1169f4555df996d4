package schema

import "time"

// CacheStatus represents the status of the cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// HistoryStatus represents the status of the evaluation history store.
type HistoryStatus struct {
	Backend            string           `json:"backend"`
	Connected          bool             `json:"connected"`
	TotalEvaluations   int              `json:"total_evaluations"`
	LastEvaluationID   string           `json:"last_evaluation_id"`
	LastEvaluationTime time.Time        `json:"last_evaluation_time"`
	OldestEvalTime     time.Time        `json:"oldest_evaluation_time"`
	VerdictCounts      map[Verdict]int  `json:"verdict_counts"`
	TableSizes         map[string]int64 `json:"table_sizes"`
}

// EvaluationRecord represents a row from the mergecheck_evaluations table.
type EvaluationRecord struct {
	EvaluationID    string
	ProjectID       string
	MergeRequestIID int64
	Verdict         string
	Fingerprint     string
	EvaluatedAt     time.Time
	DurationMs      int64
	Reasons         *string
}

// CheckResultRecord represents a row from the mergecheck_check_results table.
type CheckResultRecord struct {
	EvaluationID string
	CheckID      string
	Position     int32
	Status       string
	Reason       *string
	ErrorText    *string
	Cached       bool
}
