package core

import (
	"context"
	"sync/atomic"

	"github.com/huangsam/mergecheck/schema"
)

var testRef = schema.MergeRequestRef{ProjectID: "group/app", IID: 42}

// newSnapshot returns an open, unapproved merge request with no policies.
func newSnapshot() *schema.MergeRequestSnapshot {
	return &schema.MergeRequestSnapshot{
		MergeRequest: schema.MergeRequest{
			Ref:          testRef,
			Title:        "Add payment retries",
			Author:       "alice",
			SourceBranch: "feature/retries",
			TargetBranch: "main",
			HeadSHA:      "a1b2c3",
			BaseSHA:      "0f0f0f",
			State:        schema.StateOpened,
		},
		LookupErrors: map[schema.LookupSource]error{},
	}
}

func allFeatures() *ConfigFeatureGate {
	return &ConfigFeatureGate{Defaults: map[schema.Feature]bool{
		schema.FeatureMergeRequestApprovers:         true,
		schema.FeatureSecurityOrchestrationPolicies: true,
	}}
}

func noFeatures() *ConfigFeatureGate {
	return &ConfigFeatureGate{}
}

func violation(id string, state schema.ViolationState) schema.ScanResultPolicyViolation {
	return schema.ScanResultPolicyViolation{PolicyRuleID: id, State: state}
}

// stubCheck returns a fixed result and counts its executions.
type stubCheck struct {
	id        string
	cacheable bool
	status    schema.CheckStatus
	reason    string
	err       error
	panicMsg  string
	skip      func(schema.SkipParams) bool
	onExecute func()
	calls     atomic.Int32
}

func (c *stubCheck) Identifier() string { return c.id }
func (c *stubCheck) Cacheable() bool { return c.cacheable }

func (c *stubCheck) Skip(params schema.SkipParams) bool {
	if c.skip == nil {
		return false
	}
	return c.skip(params)
}

func (c *stubCheck) Execute(_ context.Context, _ CheckEnv) (schema.CheckResult, error) {
	c.calls.Add(1)
	if c.onExecute != nil {
		c.onExecute()
	}
	if c.panicMsg != "" {
		panic(c.panicMsg)
	}
	if c.err != nil {
		return schema.CheckResult{}, c.err
	}
	return schema.CheckResult{CheckID: c.id, Status: c.status, Reason: c.reason}, nil
}

func resultByID(eval *schema.Evaluation, id string) (schema.CheckResult, bool) {
	for _, res := range eval.Results {
		if res.CheckID == id {
			return res, true
		}
	}
	return schema.CheckResult{}, false
}
