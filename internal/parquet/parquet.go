// Package parquet exports mergecheck evaluation history to Parquet files
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/mergecheck/schema"
	"github.com/parquet-go/parquet-go"
)

// EvaluationRow is one pipeline run for a merge request.
// This struct maps to the mergecheck_evaluations database table.
type EvaluationRow struct {
	EvaluationID    string    `parquet:"evaluation_id,snappy"`
	ProjectID       string    `parquet:"project_id,snappy"`
	MergeRequestIID int64     `parquet:"merge_request_iid,snappy"`
	Verdict         string    `parquet:"verdict,snappy"`
	Fingerprint     string    `parquet:"fingerprint,snappy"`
	EvaluatedAt     time.Time `parquet:"evaluated_at,snappy"`
	DurationMs      int64     `parquet:"duration_ms,snappy"`

	// Reasons is the JSON list of blocking or pending reasons (nullable)
	Reasons *string `parquet:"reasons,optional,snappy"`
}

// CheckResultRow is the outcome of one check inside an evaluation.
// This struct maps to the mergecheck_check_results database table.
type CheckResultRow struct {
	EvaluationID string  `parquet:"evaluation_id,snappy"`
	CheckID      string  `parquet:"check_id,snappy"`
	Position     int32   `parquet:"position,snappy"`
	Status       string  `parquet:"status,snappy"`
	Reason       *string `parquet:"reason,optional,snappy"`
	ErrorText    *string `parquet:"error_text,optional,snappy"`

	// Cached is true when the result came from the result cache
	Cached bool `parquet:"cached,snappy"`
}

// WriteEvaluationsParquet writes evaluation rows to a Parquet file.
func WriteEvaluationsParquet(data []EvaluationRow, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteCheckResultsParquet writes check result rows to a Parquet file.
func WriteCheckResultsParquet(data []CheckResultRow, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet infers the schema from the struct tags of T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	// Close flushes the footer, so its error matters.
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertEvaluationRecords converts stored evaluations to Parquet rows.
func ConvertEvaluationRecords(records []schema.EvaluationRecord) []EvaluationRow {
	result := make([]EvaluationRow, len(records))
	for i, record := range records {
		result[i] = EvaluationRow{
			EvaluationID:    record.EvaluationID,
			ProjectID:       record.ProjectID,
			MergeRequestIID: record.MergeRequestIID,
			Verdict:         record.Verdict,
			Fingerprint:     record.Fingerprint,
			EvaluatedAt:     record.EvaluatedAt,
			DurationMs:      record.DurationMs,
			Reasons:         record.Reasons,
		}
	}
	return result
}

// ConvertCheckResultRecords converts stored check results to Parquet rows.
func ConvertCheckResultRecords(records []schema.CheckResultRecord) []CheckResultRow {
	result := make([]CheckResultRow, len(records))
	for i, record := range records {
		result[i] = CheckResultRow{
			EvaluationID: record.EvaluationID,
			CheckID:      record.CheckID,
			Position:     record.Position,
			Status:       record.Status,
			Reason:       record.Reason,
			ErrorText:    record.ErrorText,
			Cached:       record.Cached,
		}
	}
	return result
}
