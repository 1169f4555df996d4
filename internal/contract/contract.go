// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"

	"github.com/huangsam/mergecheck/schema"
)

// MergeRequestSource reads merge request attributes.
type MergeRequestSource interface {
	GetMergeRequest(ctx context.Context, ref schema.MergeRequestRef) (schema.MergeRequest, error)
}

// ApprovalSource is the approval subsystem as seen by the checks.
type ApprovalSource interface {
	// IsApproved reports whether the merge request has its required approvals.
	IsApproved(ctx context.Context, ref schema.MergeRequestRef) (bool, error)

	// IsTemporarilyUnapproved reports whether approvals were invalidated and
	// re-approval has not been recorded yet.
	IsTemporarilyUnapproved(ctx context.Context, ref schema.MergeRequestRef) (bool, error)
}

// PolicySource is the scan-result policy subsystem.
type PolicySource interface {
	ApplicableViolations(ctx context.Context, ref schema.MergeRequestRef) ([]schema.ScanResultPolicyViolation, error)
	ApplicablePolicies(ctx context.Context, ref schema.MergeRequestRef) ([]schema.SecurityPolicy, error)
}

// BypassEvaluator decides whether a policy's bypass settings exempt a merge request.
type BypassEvaluator interface {
	IsBypassed(ctx context.Context, policy schema.SecurityPolicy, snap *schema.MergeRequestSnapshot) (bool, error)
}

// FeatureGate answers licensing and feature flag questions for a scope (a project).
type FeatureGate interface {
	Enabled(feature schema.Feature, scope string) bool
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetResultStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore records every evaluation and its per-check results.
type HistoryStore interface {
	// RecordEvaluation stores the evaluation and its results in one transaction.
	RecordEvaluation(eval *schema.Evaluation) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllEvaluations returns every stored evaluation ordered by time.
	GetAllEvaluations() ([]schema.EvaluationRecord, error)

	// GetAllCheckResults returns every stored check result.
	GetAllCheckResults() ([]schema.CheckResultRecord, error)

	// Close closes the underlying connection
	Close() error
}
