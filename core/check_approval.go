package core

import (
	"context"

	"github.com/huangsam/mergecheck/schema"
)

// ApprovalCheckID identifies the approval state check.
const ApprovalCheckID = "not_approved"

// ApprovalCheck requires the merge request to hold its required approvals.
// Not cacheable: approval changes do not alter the diff.
type ApprovalCheck struct{}

// Identifier implements Check.
func (c *ApprovalCheck) Identifier() string { return ApprovalCheckID }

// Skip implements Check.
func (c *ApprovalCheck) Skip(params schema.SkipParams) bool { return params.SkipApprovedCheck }

// Cacheable implements Check.
func (c *ApprovalCheck) Cacheable() bool { return false }

// Execute implements Check.
func (c *ApprovalCheck) Execute(_ context.Context, env CheckEnv) (schema.CheckResult, error) {
	if !env.Enabled(schema.FeatureMergeRequestApprovers) {
		return result(ApprovalCheckID, schema.StatusInactive, "merge request approvals are not licensed"), nil
	}
	if err := env.Snapshot.LookupErr(schema.SourceApprovals); err != nil {
		return schema.CheckResult{}, err
	}

	snap := env.Snapshot
	switch {
	case snap.TemporarilyUnapproved:
		return result(ApprovalCheckID, schema.StatusChecking, "approvals are being synchronized"), nil
	case snap.Approved:
		return result(ApprovalCheckID, schema.StatusSuccess, ""), nil
	default:
		return result(ApprovalCheckID, schema.StatusFailure, "merge request is missing required approvals"), nil
	}
}
