package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/mergecheck/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func sampleEvaluations() []EvaluationRow {
	now := time.Now()
	return []EvaluationRow{
		{
			EvaluationID:    "3f1c2b1e-0000-4000-8000-000000000001",
			ProjectID:       "group/app",
			MergeRequestIID: 42,
			Verdict:         "blocked",
			Fingerprint:     "ab12",
			EvaluatedAt:     now.Add(-time.Hour),
			DurationMs:      12,
			Reasons:         strPtr(`[{"check_id":"not_approved","message":"not approved"}]`),
		},
		{
			EvaluationID:    "3f1c2b1e-0000-4000-8000-000000000002",
			ProjectID:       "group/app",
			MergeRequestIID: 43,
			Verdict:         "mergeable",
			Fingerprint:     "cd34",
			EvaluatedAt:     now,
			DurationMs:      3,
			Reasons:         nil,
		},
	}
}

func sampleCheckResults() []CheckResultRow {
	return []CheckResultRow{
		{EvaluationID: "e1", CheckID: "not_open", Position: 0, Status: "success", Cached: true},
		{EvaluationID: "e1", CheckID: "not_approved", Position: 2, Status: "failure", Reason: strPtr("not approved")},
		{EvaluationID: "e1", CheckID: "security_policy_violations", Position: 4, Status: "failure",
			Reason: strPtr("check could not be evaluated"), ErrorText: strPtr("connection reset")},
	}
}

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	reader := parquet.NewGenericReader[T](file)
	defer reader.Close()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func TestEvaluationRowStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(EvaluationRow))
	for _, col := range []string{"evaluation_id", "project_id", "merge_request_iid", "verdict",
		"fingerprint", "evaluated_at", "duration_ms", "reasons"} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "column %s should exist", col)
	}
}

func TestCheckResultRowStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(CheckResultRow))
	for _, col := range []string{"evaluation_id", "check_id", "position", "status", "reason", "error_text", "cached"} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "column %s should exist", col)
	}
}

func TestWriteEvaluationsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "evaluations.parquet")
	data := sampleEvaluations()
	require.NoError(t, WriteEvaluationsParquet(data, outputPath))

	readData := readAll[EvaluationRow](t, outputPath)
	require.Len(t, readData, len(data))
	for i := range data {
		assert.Equal(t, data[i].EvaluationID, readData[i].EvaluationID)
		assert.Equal(t, data[i].MergeRequestIID, readData[i].MergeRequestIID)
		assert.Equal(t, data[i].Verdict, readData[i].Verdict)
		assert.WithinDuration(t, data[i].EvaluatedAt, readData[i].EvaluatedAt, time.Microsecond)
	}
	require.NotNil(t, readData[0].Reasons)
	assert.Equal(t, *data[0].Reasons, *readData[0].Reasons)
	assert.Nil(t, readData[1].Reasons)
}

func TestWriteCheckResultsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "check_results.parquet")
	data := sampleCheckResults()
	require.NoError(t, WriteCheckResultsParquet(data, outputPath))

	readData := readAll[CheckResultRow](t, outputPath)
	require.Len(t, readData, len(data))
	assert.True(t, readData[0].Cached)
	assert.False(t, readData[1].Cached)
	assert.Nil(t, readData[0].Reason)
	require.NotNil(t, readData[2].ErrorText)
	assert.Equal(t, "connection reset", *readData[2].ErrorText)
	assert.Equal(t, int32(4), readData[2].Position)
}

func TestWriteParquet_EmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteEvaluationsParquet([]EvaluationRow{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), "file should contain schema even if empty")
}

func TestWriteParquet_InvalidPath(t *testing.T) {
	err := WriteCheckResultsParquet(sampleCheckResults(), "/nonexistent/directory/output.parquet")
	require.Error(t, err)
}

func TestConvertRecords(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	evals := ConvertEvaluationRecords([]schema.EvaluationRecord{{
		EvaluationID: "e1", ProjectID: "group/app", MergeRequestIID: 7,
		Verdict: "pending", Fingerprint: "ff", EvaluatedAt: at, DurationMs: 9,
	}})
	require.Len(t, evals, 1)
	assert.Equal(t, EvaluationRow{
		EvaluationID: "e1", ProjectID: "group/app", MergeRequestIID: 7,
		Verdict: "pending", Fingerprint: "ff", EvaluatedAt: at, DurationMs: 9,
	}, evals[0])

	results := ConvertCheckResultRecords([]schema.CheckResultRecord{{
		EvaluationID: "e1", CheckID: "draft_status", Position: 1, Status: "success", Cached: true,
	}})
	require.Len(t, results, 1)
	assert.Equal(t, "draft_status", results[0].CheckID)
	assert.True(t, results[0].Cached)

	assert.Empty(t, ConvertEvaluationRecords(nil))
}
