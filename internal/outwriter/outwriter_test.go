package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvaluations() []*schema.Evaluation {
	at := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	return []*schema.Evaluation{
		{
			ID:      "e1",
			Ref:     schema.MergeRequestRef{ProjectID: "group/app", IID: 42},
			Verdict: schema.VerdictBlocked,
			Reasons: []schema.Reason{{CheckID: "not_approved", Message: "merge request is not approved"}},
			Warnings: []schema.Reason{{CheckID: "security_policy_violations",
				Message: "policy violations were dismissed"}},
			Results: []schema.CheckResult{
				{CheckID: "not_open", Status: schema.StatusSuccess},
				{CheckID: "not_approved", Status: schema.StatusFailure, Reason: "merge request is not approved"},
				{CheckID: "security_policy_violations", Status: schema.StatusWarning, Reason: "policy violations were dismissed"},
			},
			CacheHits:   []string{"not_open"},
			Fingerprint: "0123456789abcdef0123",
			EvaluatedAt: at,
			DurationMs:  4,
		},
		nil,
		{
			ID:          "e2",
			Ref:         schema.MergeRequestRef{ProjectID: "group/app", IID: 43},
			Verdict:     schema.VerdictMergeable,
			Results:     []schema.CheckResult{{CheckID: "not_open", Status: schema.StatusSuccess}},
			Fingerprint: "ff",
			EvaluatedAt: at,
		},
	}
}

func nonNil(evals []*schema.Evaluation) []*schema.Evaluation {
	var out []*schema.Evaluation
	for _, e := range evals {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

func TestWriteEvaluationTable(t *testing.T) {
	var buf bytes.Buffer
	cfg := &contract.Config{Workers: 2, CacheBackend: schema.SQLiteBackend}
	require.NoError(t, writeEvaluationTable(&buf, nonNil(sampleEvaluations()), cfg, 40, 15*time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, "group/app!42  BLOCKED  (fingerprint 0123456789ab, 4ms)")
	assert.Contains(t, out, "group/app!43  MERGEABLE")
	assert.Contains(t, out, "FAILURE")
	assert.Contains(t, out, "✗ not_approved: merge request is not approved")
	assert.Contains(t, out, "! security_policy_violations: policy violations were dismissed")
	assert.Contains(t, out, "Evaluated 2 merge requests (mergeable: 1, blocked: 1, pending: 0)")
	assert.Contains(t, out, "Cache backend: sqlite")
	assert.NotContains(t, out, "\x1b[", "no colors unless requested")
}

func TestWriteEvaluationCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEvaluationCSV(&buf, nonNil(sampleEvaluations())))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5) // header + 3 + 1
	assert.Equal(t, "evaluation_id", records[0][0])
	assert.Equal(t, []string{"e1", "group/app", "42", "blocked", "1", "not_open", "SUCCESS", "true", "", "",
		"0123456789abcdef0123", "2026-04-02T09:30:00Z"}, records[1])
	assert.Equal(t, "false", records[2][7])
	assert.Equal(t, "e2", records[4][0])
}

func TestWriteEvaluationResults_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	cfg := &contract.Config{Output: schema.JSONOut, OutputFile: path}
	require.NoError(t, WriteEvaluationResults(sampleEvaluations(), cfg, time.Second))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2, "nil evaluations are dropped")
	assert.Equal(t, "blocked", decoded[0]["verdict"])
	assert.Len(t, decoded[0]["per_check_results"], 3)
}

func TestWriteCheckInfos(t *testing.T) {
	checks := []schema.CheckInfo{
		{Position: 1, ID: "not_open", Cacheable: true},
		{Position: 2, ID: "draft_status", Cacheable: true, Skipped: true},
	}

	var buf bytes.Buffer
	require.NoError(t, writeCheckTable(&buf, checks))
	assert.Contains(t, buf.String(), "not_open")
	assert.Contains(t, buf.String(), "draft_status")

	buf.Reset()
	require.NoError(t, writeCheckCSV(&buf, checks))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"position,check_id,cacheable,skipped", "1,not_open,true,false", "2,draft_status,true,true"}, lines)

	path := filepath.Join(t.TempDir(), "checks.json")
	require.NoError(t, WriteCheckInfos(checks, &contract.Config{Output: schema.JSONOut, OutputFile: path}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id": "draft_status"`)
}

func TestReasonText(t *testing.T) {
	assert.Equal(t, "r", reasonText(schema.CheckResult{Reason: "r"}))
	assert.Equal(t, "e", reasonText(schema.CheckResult{Error: "e"}))
	assert.Equal(t, "r: e", reasonText(schema.CheckResult{Reason: "r", Error: "e"}))
}

func TestClampReasonWidth(t *testing.T) {
	assert.Equal(t, 20, clampReasonWidth(40))
	assert.Equal(t, 45, clampReasonWidth(100))
	assert.Equal(t, 100, clampReasonWidth(300))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "WARNING", statusLabel(schema.StatusWarning, false))
	assert.Equal(t, "no", yesNo(false))
}
