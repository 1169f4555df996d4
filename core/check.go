// Package core evaluates whether a merge request may be merged.
package core

import (
	"context"

	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
)

// Check is one mergeability condition evaluated against a snapshot.
type Check interface {
	// Identifier is the stable id used in results, reasons and cache keys.
	Identifier() string

	// Skip reports whether the caller opted out of this check.
	Skip(params schema.SkipParams) bool

	// Cacheable reports whether the result depends only on fingerprinted inputs.
	Cacheable() bool

	// Execute evaluates the check. Returning an error fails the pipeline closed
	// unless the error wraps contract.ErrConfiguration.
	Execute(ctx context.Context, env CheckEnv) (schema.CheckResult, error)
}

// CheckEnv is everything a check may read.
type CheckEnv struct {
	Snapshot *schema.MergeRequestSnapshot
	Features contract.FeatureGate
	Bypass   contract.BypassEvaluator
}

// Enabled asks the feature gate about the snapshot's project.
func (e CheckEnv) Enabled(feature schema.Feature) bool {
	if e.Features == nil {
		return false
	}
	return e.Features.Enabled(feature, e.Snapshot.Ref().ProjectID)
}

// DefaultChecks returns the built-in checks in evaluation order.
func DefaultChecks() []Check {
	return []Check{
		&NotOpenCheck{},
		&DraftCheck{},
		&ApprovalCheck{},
		&PolicyEvaluationCheck{},
		&PolicyViolationCheck{},
	}
}

func result(id string, status schema.CheckStatus, reason string) schema.CheckResult {
	return schema.CheckResult{CheckID: id, Status: status, Reason: reason}
}

// DescribeChecks lists checks in evaluation order with their flags under skip.
func DescribeChecks(checks []Check, skip schema.SkipParams) []schema.CheckInfo {
	infos := make([]schema.CheckInfo, len(checks))
	for i, check := range checks {
		infos[i] = schema.CheckInfo{
			Position:  i + 1,
			ID:        check.Identifier(),
			Cacheable: check.Cacheable(),
			Skipped:   check.Skip(skip),
		}
	}
	return infos
}
