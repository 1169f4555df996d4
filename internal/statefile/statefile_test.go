package statefile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleState = `
merge_requests:
  - project: group/app
    iid: 42
    title: Add retries
    author: alice
    source_branch: feature/retries
    target_branch: main
    head_sha: a1b2c3
    approved: true
    violations:
      - policy_rule_id: rule-1
        state: failed
      - policy_rule_id: rule-2
        state: passed
        dismissed: true
        dismissal_reason: false positive
  - project: group/app
    iid: 43
    state: merged
    draft: true
    temporarily_unapproved: true
    failures:
      violations: connection reset
      policies: unlicensed
policies:
  group/app:
    - id: policy-1
      name: Block critical findings
      bypass_settings:
        users: ["release-bot"]
        branches:
          - source: "release/*"
            target: main
`

func parseSample(t *testing.T) *Source {
	t.Helper()
	src, err := Parse(strings.NewReader(sampleState))
	require.NoError(t, err)
	return src
}

func TestParse(t *testing.T) {
	src := parseSample(t)
	assert.Equal(t, []schema.MergeRequestRef{
		{ProjectID: "group/app", IID: 42},
		{ProjectID: "group/app", IID: 43},
	}, src.MergeRequestRefs())
}

func TestSource_GetMergeRequest(t *testing.T) {
	src := parseSample(t)
	ctx := context.Background()

	mr, err := src.GetMergeRequest(ctx, schema.MergeRequestRef{ProjectID: "group/app", IID: 42})
	require.NoError(t, err)
	assert.Equal(t, "alice", mr.Author)
	assert.Equal(t, "feature/retries", mr.SourceBranch)
	assert.Equal(t, schema.StateOpened, mr.State, "state defaults to opened")
	assert.Equal(t, 42, mr.Ref.IID)

	mr, err = src.GetMergeRequest(ctx, schema.MergeRequestRef{ProjectID: "group/app", IID: 43})
	require.NoError(t, err)
	assert.Equal(t, schema.StateMerged, mr.State)
	assert.True(t, mr.Draft)

	_, err = src.GetMergeRequest(ctx, schema.MergeRequestRef{ProjectID: "group/app", IID: 99})
	assert.ErrorContains(t, err, "group/app!99 not found")
}

func TestSource_Approvals(t *testing.T) {
	src := parseSample(t)
	ctx := context.Background()
	ref42 := schema.MergeRequestRef{ProjectID: "group/app", IID: 42}
	ref43 := schema.MergeRequestRef{ProjectID: "group/app", IID: 43}

	approved, err := src.IsApproved(ctx, ref42)
	require.NoError(t, err)
	assert.True(t, approved)

	syncing, err := src.IsTemporarilyUnapproved(ctx, ref43)
	require.NoError(t, err)
	assert.True(t, syncing)
}

func TestSource_Policies(t *testing.T) {
	src := parseSample(t)
	ctx := context.Background()
	ref42 := schema.MergeRequestRef{ProjectID: "group/app", IID: 42}
	ref43 := schema.MergeRequestRef{ProjectID: "group/app", IID: 43}

	violations, err := src.ApplicableViolations(ctx, ref42)
	require.NoError(t, err)
	require.Len(t, violations, 2)
	assert.Equal(t, schema.ViolationFailed, violations[0].State)
	assert.True(t, violations[1].Dismissed)
	assert.Equal(t, "false positive", violations[1].DismissalReason)

	policies, err := src.ApplicablePolicies(ctx, ref42)
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, []string{"release-bot"}, policies[0].BypassSettings.Users)
	assert.Equal(t, "release/*", policies[0].BypassSettings.Branches[0].Source)

	// Returned slices are copies
	violations[0].State = schema.ViolationPassed
	again, err := src.ApplicableViolations(ctx, ref42)
	require.NoError(t, err)
	assert.Equal(t, schema.ViolationFailed, again[0].State)

	_, err = src.ApplicableViolations(ctx, ref43)
	assert.EqualError(t, err, "connection reset")
	assert.False(t, contract.IsConfigurationError(err))

	_, err = src.ApplicablePolicies(ctx, ref43)
	assert.True(t, contract.IsConfigurationError(err))
}

func TestSource_CancelledContext(t *testing.T) {
	src := parseSample(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.IsApproved(ctx, schema.MergeRequestRef{ProjectID: "group/app", IID: 42})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		expectError string
	}{
		{"unknown field", "merge_requests:\n  - project: a\n    iid: 1\n    aproved: true\n", "field aproved not found"},
		{"missing project", "merge_requests:\n  - iid: 1\n", "project is required"},
		{"bad iid", "merge_requests:\n  - project: a\n    iid: 0\n", "iid must be positive"},
		{"duplicate", "merge_requests:\n  - project: a\n    iid: 1\n  - project: a\n    iid: 1\n", "duplicate merge request a!1"},
		{"bad violation state", "merge_requests:\n  - project: a\n    iid: 1\n    violations:\n      - policy_rule_id: r\n        state: maybe\n", "unknown state"},
		{"missing rule id", "merge_requests:\n  - project: a\n    iid: 1\n    violations:\n      - state: failed\n", "policy_rule_id is required"},
		{"unknown failure", "merge_requests:\n  - project: a\n    iid: 1\n    failures:\n      pipelines: boom\n", "unknown failure source"},
		{"policy without id", "policies:\n  a:\n    - name: p\n", "id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	src, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, src.MergeRequestRefs())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleState), 0o600))

	src, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, src.MergeRequestRefs(), 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read state file")
}
