// Package schema has models and constants shared by every part of mergecheck.
package schema

import (
	"fmt"
	"time"
)

// MergeRequestRef identifies one merge request within a project.
type MergeRequestRef struct {
	ProjectID string `json:"project_id" yaml:"project"`
	IID       int    `json:"iid" yaml:"iid"`
}

// String renders the ref the way GitLab does in references.
func (r MergeRequestRef) String() string {
	return fmt.Sprintf("%s!%d", r.ProjectID, r.IID)
}

// MergeRequest holds the merge request attributes read by the checks.
type MergeRequest struct {
	Ref          MergeRequestRef `json:"ref"`
	Title        string          `json:"title"`
	Author       string          `json:"author"`
	SourceBranch string          `json:"source_branch"`
	TargetBranch string          `json:"target_branch"`
	HeadSHA      string          `json:"head_sha"`
	BaseSHA      string          `json:"base_sha"`
	State        string          `json:"state"`
	Draft        bool            `json:"draft"`
}

// ScanResultPolicyViolation is one policy rule's evaluation outcome for a merge request.
type ScanResultPolicyViolation struct {
	PolicyRuleID    string         `json:"policy_rule_id" yaml:"policy_rule_id"`
	State           ViolationState `json:"state" yaml:"state"`
	Dismissed       bool           `json:"dismissed" yaml:"dismissed"`
	DismissalReason string         `json:"dismissal_reason,omitempty" yaml:"dismissal_reason"`
}

// BranchException exempts merges whose source and target branches match.
// Both fields are doublestar patterns; an empty pattern matches any branch.
type BranchException struct {
	Source string `json:"source,omitempty" yaml:"source"`
	Target string `json:"target,omitempty" yaml:"target"`
}

// BypassSettings is the policy-level allowlist for skipping enforcement.
type BypassSettings struct {
	Branches []BranchException `json:"branches,omitempty" yaml:"branches"`
	Users    []string          `json:"users,omitempty" yaml:"users"`
}

// Empty reports whether no bypass is configured.
func (b BypassSettings) Empty() bool {
	return len(b.Branches) == 0 && len(b.Users) == 0
}

// SecurityPolicy is the bypass view of a security policy.
type SecurityPolicy struct {
	PolicyID       string         `json:"policy_id" yaml:"id"`
	Name           string         `json:"name,omitempty" yaml:"name"`
	BypassSettings BypassSettings `json:"bypass_settings" yaml:"bypass_settings"`
}

// MergeRequestSnapshot is the read-only view every check evaluates.
// It is built once per evaluation and never mutated afterwards.
type MergeRequestSnapshot struct {
	MergeRequest          MergeRequest                `json:"merge_request"`
	Approved              bool                        `json:"approved"`
	TemporarilyUnapproved bool                        `json:"temporarily_unapproved"`
	Violations            []ScanResultPolicyViolation `json:"violations"`
	Policies              []SecurityPolicy            `json:"policies"`
	LookupErrors          map[LookupSource]error      `json:"-"`
}

// Ref returns the merge request reference of the snapshot.
func (s *MergeRequestSnapshot) Ref() MergeRequestRef {
	return s.MergeRequest.Ref
}

// LookupErr returns the error recorded for a collaborator read, if any.
func (s *MergeRequestSnapshot) LookupErr(source LookupSource) error {
	if s.LookupErrors == nil {
		return nil
	}
	return s.LookupErrors[source]
}

// SkipParams holds the caller-supplied per-check opt outs.
type SkipParams struct {
	SkipApprovedCheck       bool `json:"skip_approved_check"`
	SkipSecurityPolicyCheck bool `json:"skip_security_policy_check"`
	SkipDraftCheck          bool `json:"skip_draft_check"`
}

// CheckResult is the immutable outcome of one check.
type CheckResult struct {
	CheckID string      `json:"check_id"`
	Status  CheckStatus `json:"status"`
	Reason  string      `json:"reason,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CacheEntry is a stored result for a (fingerprint, check) pair.
type CacheEntry struct {
	Fingerprint string      `json:"fingerprint"`
	CheckID     string      `json:"check_id"`
	Result      CheckResult `json:"result"`
	ComputedAt  time.Time   `json:"computed_at"`
}

// Reason explains why a check contributed to the verdict.
type Reason struct {
	CheckID string `json:"check_id"`
	Message string `json:"message"`
}

// Evaluation is the full answer for one merge request.
type Evaluation struct {
	ID          string          `json:"id"`
	Ref         MergeRequestRef `json:"merge_request"`
	Verdict     Verdict         `json:"verdict"`
	Reasons     []Reason        `json:"reasons,omitempty"`
	Warnings    []Reason        `json:"warnings,omitempty"`
	Results     []CheckResult   `json:"per_check_results"`
	CacheHits   []string        `json:"cache_hits,omitempty"`
	Fingerprint string          `json:"fingerprint"`
	EvaluatedAt time.Time       `json:"evaluated_at"`
	DurationMs  int64           `json:"duration_ms"`
}

// Mergeable reports whether the verdict permits merging.
func (e *Evaluation) Mergeable() bool {
	return e.Verdict == VerdictMergeable
}

// CheckInfo describes a registered check for listings.
type CheckInfo struct {
	Position  int    `json:"position"`
	ID        string `json:"id"`
	Cacheable bool   `json:"cacheable"`
	Skipped   bool   `json:"skipped"`
}
