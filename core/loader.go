package core

import (
	"context"

	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
)

// mergeRequestSource names the merge request read in lookup errors.
const mergeRequestSource = "merge_request"

// SnapshotLoader reads every collaborator once and freezes the answers into
// a snapshot. Failed reads other than the merge request itself are recorded
// per source so that only the checks needing them fail.
type SnapshotLoader struct {
	MergeRequests contract.MergeRequestSource
	Approvals     contract.ApprovalSource
	Policies      contract.PolicySource
}

// Load builds the snapshot for ref. It fails only when the merge request
// cannot be read.
func (l *SnapshotLoader) Load(ctx context.Context, ref schema.MergeRequestRef) (*schema.MergeRequestSnapshot, error) {
	if l.MergeRequests == nil {
		return nil, contract.ConfigurationError("no merge request source configured")
	}
	mr, err := l.MergeRequests.GetMergeRequest(ctx, ref)
	if err != nil {
		return nil, &contract.TransientLookupError{Source: mergeRequestSource, Ref: ref, Err: err}
	}
	mr.Ref = ref

	snap := &schema.MergeRequestSnapshot{
		MergeRequest: mr,
		LookupErrors: make(map[schema.LookupSource]error),
	}
	l.loadApprovals(ctx, snap)
	l.loadPolicies(ctx, snap)
	return snap, nil
}

func (l *SnapshotLoader) loadApprovals(ctx context.Context, snap *schema.MergeRequestSnapshot) {
	ref := snap.Ref()
	if l.Approvals == nil {
		snap.LookupErrors[schema.SourceApprovals] = contract.ConfigurationError("no approval source configured")
		return
	}

	approved, err := l.Approvals.IsApproved(ctx, ref)
	if err != nil {
		snap.LookupErrors[schema.SourceApprovals] = lookupError(schema.SourceApprovals, ref, err)
		return
	}
	syncing, err := l.Approvals.IsTemporarilyUnapproved(ctx, ref)
	if err != nil {
		snap.LookupErrors[schema.SourceApprovals] = lookupError(schema.SourceApprovals, ref, err)
		return
	}
	snap.Approved = approved
	snap.TemporarilyUnapproved = syncing
}

func (l *SnapshotLoader) loadPolicies(ctx context.Context, snap *schema.MergeRequestSnapshot) {
	ref := snap.Ref()
	if l.Policies == nil {
		err := contract.ConfigurationError("no policy source configured")
		snap.LookupErrors[schema.SourceViolations] = err
		snap.LookupErrors[schema.SourcePolicies] = err
		return
	}

	violations, err := l.Policies.ApplicableViolations(ctx, ref)
	if err != nil {
		snap.LookupErrors[schema.SourceViolations] = lookupError(schema.SourceViolations, ref, err)
	} else {
		snap.Violations = violations
	}

	policies, err := l.Policies.ApplicablePolicies(ctx, ref)
	if err != nil {
		snap.LookupErrors[schema.SourcePolicies] = lookupError(schema.SourcePolicies, ref, err)
	} else {
		snap.Policies = policies
	}
}

func lookupError(source schema.LookupSource, ref schema.MergeRequestRef, err error) error {
	return &contract.TransientLookupError{Source: string(source), Ref: ref, Err: err}
}
