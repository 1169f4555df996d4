package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
)

// Check identifiers for security policies.
const (
	PolicyEvaluationCheckID = "security_policy_evaluation"
	PolicyViolationCheckID  = "security_policy_violations"
)

// PolicyEvaluationCheck waits for in-flight scan result policy evaluation.
type PolicyEvaluationCheck struct{}

// Identifier implements Check.
func (c *PolicyEvaluationCheck) Identifier() string { return PolicyEvaluationCheckID }

// Skip implements Check.
func (c *PolicyEvaluationCheck) Skip(params schema.SkipParams) bool {
	return params.SkipSecurityPolicyCheck
}

// Cacheable implements Check.
func (c *PolicyEvaluationCheck) Cacheable() bool { return false }

// Execute implements Check.
func (c *PolicyEvaluationCheck) Execute(_ context.Context, env CheckEnv) (schema.CheckResult, error) {
	if !env.Enabled(schema.FeatureSecurityOrchestrationPolicies) {
		return result(PolicyEvaluationCheckID, schema.StatusInactive, "security policies are not licensed"), nil
	}
	if err := env.Snapshot.LookupErr(schema.SourceViolations); err != nil {
		return schema.CheckResult{}, err
	}

	violations := env.Snapshot.Violations
	if len(violations) == 0 {
		return result(PolicyEvaluationCheckID, schema.StatusInactive, "no security policy applies"), nil
	}
	if running := ruleIDsInState(violations, schema.ViolationRunning); len(running) > 0 {
		return result(PolicyEvaluationCheckID, schema.StatusChecking,
			fmt.Sprintf("security policy evaluation in progress: %s", strings.Join(running, ", "))), nil
	}
	return result(PolicyEvaluationCheckID, schema.StatusSuccess, ""), nil
}

// PolicyViolationCheck blocks on failed scan result policies unless the merge
// request is approved. Any approval clears any failed violation.
type PolicyViolationCheck struct{}

// Identifier implements Check.
func (c *PolicyViolationCheck) Identifier() string { return PolicyViolationCheckID }

// Skip implements Check.
func (c *PolicyViolationCheck) Skip(params schema.SkipParams) bool {
	return params.SkipSecurityPolicyCheck
}

// Cacheable implements Check.
func (c *PolicyViolationCheck) Cacheable() bool { return false }

// Execute implements Check. Rules apply in order and the first match wins.
func (c *PolicyViolationCheck) Execute(ctx context.Context, env CheckEnv) (schema.CheckResult, error) {
	if !env.Enabled(schema.FeatureSecurityOrchestrationPolicies) {
		return result(PolicyViolationCheckID, schema.StatusInactive, "security policies are not licensed"), nil
	}
	snap := env.Snapshot
	if err := snap.LookupErr(schema.SourceViolations); err != nil {
		return schema.CheckResult{}, err
	}
	if len(snap.Violations) == 0 {
		return result(PolicyViolationCheckID, schema.StatusInactive, "no security policy applies"), nil
	}

	if running := ruleIDsInState(snap.Violations, schema.ViolationRunning); len(running) > 0 {
		return result(PolicyViolationCheckID, schema.StatusChecking,
			fmt.Sprintf("waiting for security policy evaluation: %s", strings.Join(running, ", "))), nil
	}

	if failed := ruleIDsInState(snap.Violations, schema.ViolationFailed); len(failed) > 0 {
		approved, err := approvedForOverride(snap)
		if err != nil {
			return schema.CheckResult{}, err
		}
		if !approved {
			return result(PolicyViolationCheckID, schema.StatusFailure,
				fmt.Sprintf("security policy violations require approval: %s", strings.Join(failed, ", "))), nil
		}
	}

	if dismissed := dismissedRuleIDs(snap.Violations); len(dismissed) > 0 {
		return result(PolicyViolationCheckID, schema.StatusWarning,
			fmt.Sprintf("security policy violations dismissed: %s", strings.Join(dismissed, ", "))), nil
	}

	bypassed, err := bypassingPolicies(ctx, env)
	if err != nil {
		return schema.CheckResult{}, err
	}
	if len(bypassed) > 0 {
		return result(PolicyViolationCheckID, schema.StatusWarning,
			fmt.Sprintf("security policies bypassed: %s", strings.Join(bypassed, ", "))), nil
	}

	return result(PolicyViolationCheckID, schema.StatusSuccess, ""), nil
}

// approvedForOverride reads the approval state. An unlicensed approval
// feature counts as unapproved so a failed violation still blocks.
func approvedForOverride(snap *schema.MergeRequestSnapshot) (bool, error) {
	if err := snap.LookupErr(schema.SourceApprovals); err != nil {
		if contract.IsConfigurationError(err) {
			return false, nil
		}
		return false, err
	}
	return snap.Approved, nil
}

func bypassingPolicies(ctx context.Context, env CheckEnv) ([]string, error) {
	if env.Bypass == nil {
		return nil, nil
	}
	snap := env.Snapshot
	if err := snap.LookupErr(schema.SourcePolicies); err != nil {
		if contract.IsConfigurationError(err) {
			return nil, nil
		}
		return nil, err
	}

	var bypassed []string
	for _, policy := range snap.Policies {
		ok, err := env.Bypass.IsBypassed(ctx, policy, snap)
		if err != nil {
			return nil, fmt.Errorf("bypass evaluation for policy %s: %w", policy.PolicyID, err)
		}
		if ok {
			bypassed = append(bypassed, policy.PolicyID)
		}
	}
	return bypassed, nil
}

func ruleIDsInState(violations []schema.ScanResultPolicyViolation, state schema.ViolationState) []string {
	var ids []string
	for _, v := range violations {
		if v.State == state {
			ids = append(ids, v.PolicyRuleID)
		}
	}
	return ids
}

func dismissedRuleIDs(violations []schema.ScanResultPolicyViolation) []string {
	var ids []string
	for _, v := range violations {
		if v.Dismissed {
			ids = append(ids, v.PolicyRuleID)
		}
	}
	return ids
}
