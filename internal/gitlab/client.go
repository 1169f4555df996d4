// Package gitlab reads merge request and approval state from the GitLab API.
package gitlab

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"

	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// approvalsSyncing is the detailed merge status GitLab reports while approval
// rules are being recomputed after a push.
const approvalsSyncing = "approvals_syncing"

// Client implements the merge request and approval sources.
type Client struct {
	client *gitlab.Client
}

var (
	_ contract.MergeRequestSource = &Client{} // Compile-time check
	_ contract.ApprovalSource     = &Client{} // Compile-time check
)

// NewClient creates a GitLab API client. Extra options are passed through to
// the underlying client.
func NewClient(token, baseURL string, insecure bool, opts ...gitlab.ClientOptionFunc) (*Client, error) {
	opts = append([]gitlab.ClientOptionFunc{gitlab.WithBaseURL(baseURL)}, opts...)
	if insecure {
		// Create a custom HTTP client that skips TLS verification
		httpClient := &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in via --gitlab-insecure
			},
		}
		opts = append(opts, gitlab.WithHTTPClient(httpClient))
	}

	client, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}
	return &Client{client: client}, nil
}

func (c *Client) getMergeRequest(ctx context.Context, ref schema.MergeRequestRef) (*gitlab.MergeRequest, error) {
	mr, _, err := c.client.MergeRequests.GetMergeRequest(ref.ProjectID, ref.IID, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get merge request: %w", err)
	}
	return mr, nil
}

// GetMergeRequest implements contract.MergeRequestSource.
func (c *Client) GetMergeRequest(ctx context.Context, ref schema.MergeRequestRef) (schema.MergeRequest, error) {
	mr, err := c.getMergeRequest(ctx, ref)
	if err != nil {
		return schema.MergeRequest{}, err
	}

	out := schema.MergeRequest{
		Ref:          ref,
		Title:        mr.Title,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		HeadSHA:      mr.SHA,
		BaseSHA:      mr.DiffRefs.BaseSha,
		State:        mr.State,
		Draft:        mr.Draft,
	}
	if mr.Author != nil {
		out.Author = mr.Author.Username
	}
	if out.HeadSHA == "" {
		out.HeadSHA = mr.DiffRefs.HeadSha
	}
	return out, nil
}

// IsApproved implements contract.ApprovalSource.
func (c *Client) IsApproved(ctx context.Context, ref schema.MergeRequestRef) (bool, error) {
	approvals, _, err := c.client.MergeRequestApprovals.GetConfiguration(ref.ProjectID, ref.IID, gitlab.WithContext(ctx))
	if err != nil {
		return false, approvalError(ref, err)
	}
	return approvals.Approved, nil
}

// IsTemporarilyUnapproved implements contract.ApprovalSource.
func (c *Client) IsTemporarilyUnapproved(ctx context.Context, ref schema.MergeRequestRef) (bool, error) {
	mr, err := c.getMergeRequest(ctx, ref)
	if err != nil {
		return false, err
	}
	return mr.DetailedMergeStatus == approvalsSyncing, nil
}

// approvalError keeps the HTTP status in the message. Every failure is a
// failed read; whether approvals apply at all is decided by the feature gate.
func approvalError(ref schema.MergeRequestRef, err error) error {
	var errResp *gitlab.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return fmt.Errorf("failed to get approvals for %s (HTTP %d): %w", ref, errResp.Response.StatusCode, err)
	}
	return fmt.Errorf("failed to get approvals: %w", err)
}
