package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/huangsam/mergecheck/core"
	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

const mergeRequestJSON = `{
	"id": 1001,
	"iid": 42,
	"project_id": 7,
	"title": "Add retries",
	"state": "opened",
	"draft": true,
	"source_branch": "feature/retries",
	"target_branch": "main",
	"sha": "a1b2c3",
	"detailed_merge_status": "%s",
	"author": {"id": 3, "username": "alice"},
	"diff_refs": {"base_sha": "0f0f0f", "head_sha": "a1b2c3", "start_sha": "0f0f0f"}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient("token", srv.URL, false, gitlab.WithoutRetries())
	require.NoError(t, err)
	return client
}

var ref = schema.MergeRequestRef{ProjectID: "7", IID: 42}

func TestClient_GetMergeRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token", r.Header.Get("PRIVATE-TOKEN"))
		require.Equal(t, "/api/v4/projects/7/merge_requests/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, mergeRequestJSON, "mergeable")
	})

	mr, err := client.GetMergeRequest(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, schema.MergeRequest{
		Ref:          ref,
		Title:        "Add retries",
		Author:       "alice",
		SourceBranch: "feature/retries",
		TargetBranch: "main",
		HeadSHA:      "a1b2c3",
		BaseSHA:      "0f0f0f",
		State:        "opened",
		Draft:        true,
	}, mr)
}

func TestClient_IsTemporarilyUnapproved(t *testing.T) {
	for status, expected := range map[string]bool{approvalsSyncing: true, "not_approved": false} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprintf(w, mergeRequestJSON, status)
		})
		syncing, err := client.IsTemporarilyUnapproved(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, expected, syncing, status)
	}
}

func TestClient_IsApproved(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/merge_requests/42/approvals"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"iid": 42, "approved": true, "approvals_required": 1, "approvals_left": 0}`))
	})

	approved, err := client.IsApproved(context.Background(), ref)
	require.NoError(t, err)
	assert.True(t, approved)
}

func TestClient_IsApproved_Errors(t *testing.T) {
	tests := []struct {
		status       int
		expectSubstr string
	}{
		{http.StatusUnauthorized, "HTTP 401"},
		{http.StatusForbidden, "HTTP 403"},
		{http.StatusNotFound, "HTTP 404"},
		{http.StatusInternalServerError, "HTTP 500"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message": "nope"}`))
			})

			_, err := client.IsApproved(context.Background(), ref)
			require.Error(t, err)
			assert.False(t, contract.IsConfigurationError(err), "an approvals read failure must not look like missing licensing")
			assert.Contains(t, err.Error(), "failed to get approvals")
			assert.Contains(t, err.Error(), tt.expectSubstr)
		})
	}
}

// An approvals endpoint that rejects the token must block, not disable the check.
func TestEvaluate_ApprovalsRejectedBlocks(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				if strings.HasSuffix(r.URL.Path, "/approvals") {
					w.WriteHeader(status)
					_, _ = w.Write([]byte(`{"message": "denied"}`))
					return
				}
				_, _ = fmt.Fprintf(w, mergeRequestJSON, "mergeable")
			})

			gate := &core.ConfigFeatureGate{Defaults: map[schema.Feature]bool{
				schema.FeatureMergeRequestApprovers:         true,
				schema.FeatureSecurityOrchestrationPolicies: true,
			}}
			evaluator := core.NewEvaluator(
				&core.SnapshotLoader{MergeRequests: client, Approvals: client},
				core.NewPipeline(gate, core.SettingsBypassEvaluator{}, nil, nil),
				nil, nil,
			)

			eval, err := evaluator.Evaluate(context.Background(), ref, schema.SkipParams{SkipDraftCheck: true})
			require.NoError(t, err)
			assert.Equal(t, schema.VerdictBlocked, eval.Verdict)

			var approval *schema.CheckResult
			for i := range eval.Results {
				if eval.Results[i].CheckID == core.ApprovalCheckID {
					approval = &eval.Results[i]
				}
			}
			require.NotNil(t, approval)
			assert.Equal(t, schema.StatusFailure, approval.Status)
			assert.Contains(t, approval.Error, fmt.Sprintf("HTTP %d", status))
		})
	}
}

func TestClient_GetMergeRequest_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "404 Not found"}`))
	})

	_, err := client.GetMergeRequest(context.Background(), ref)
	require.Error(t, err)
	assert.False(t, contract.IsConfigurationError(err), "a missing merge request is not a licensing problem")
}

func TestClient_CancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, mergeRequestJSON, "mergeable")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetMergeRequest(ctx, ref)
	assert.ErrorContains(t, err, "context canceled")
}
