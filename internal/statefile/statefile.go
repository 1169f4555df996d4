// Package statefile serves merge request state from a YAML document. It
// backs offline evaluations and reproductions of production incidents.
package statefile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
	"gopkg.in/yaml.v3"
)

// unlicensed is the failure value that simulates a missing license.
const unlicensed = "unlicensed"

// Document is the root of a state file.
type Document struct {
	// MergeRequests lists every merge request the file can answer for.
	MergeRequests []MergeRequestEntry `yaml:"merge_requests"`

	// Policies maps a project to the security policies that apply to it.
	Policies map[string][]schema.SecurityPolicy `yaml:"policies,omitempty"`
}

// MergeRequestEntry is one merge request with its approval and policy state.
type MergeRequestEntry struct {
	Project      string `yaml:"project"`
	IID          int    `yaml:"iid"`
	Title        string `yaml:"title,omitempty"`
	Author       string `yaml:"author,omitempty"`
	SourceBranch string `yaml:"source_branch,omitempty"`
	TargetBranch string `yaml:"target_branch,omitempty"`
	HeadSHA      string `yaml:"head_sha,omitempty"`
	BaseSHA      string `yaml:"base_sha,omitempty"`
	State        string `yaml:"state,omitempty"`
	Draft        bool   `yaml:"draft,omitempty"`

	Approved              bool `yaml:"approved,omitempty"`
	TemporarilyUnapproved bool `yaml:"temporarily_unapproved,omitempty"`

	Violations []schema.ScanResultPolicyViolation `yaml:"violations,omitempty"`

	// Failures simulates collaborator errors, keyed by merge_request, approvals,
	// violations or policies. The value "unlicensed" yields a configuration error.
	Failures map[string]string `yaml:"failures,omitempty"`
}

func (e *MergeRequestEntry) ref() schema.MergeRequestRef {
	return schema.MergeRequestRef{ProjectID: e.Project, IID: e.IID}
}

// Source implements the merge request, approval and policy sources over a Document.
type Source struct {
	doc     *Document
	entries map[schema.MergeRequestRef]*MergeRequestEntry
}

var (
	_ contract.MergeRequestSource = &Source{} // Compile-time check
	_ contract.ApprovalSource     = &Source{} // Compile-time check
	_ contract.PolicySource       = &Source{} // Compile-time check
)

// Load reads and parses a state file.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a state document, rejecting unknown fields.
func Parse(r io.Reader) (*Source, error) {
	var doc Document
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateDocument(&doc); err != nil {
		return nil, fmt.Errorf("invalid state file: %w", err)
	}

	src := &Source{doc: &doc, entries: make(map[schema.MergeRequestRef]*MergeRequestEntry, len(doc.MergeRequests))}
	for i := range doc.MergeRequests {
		entry := &doc.MergeRequests[i]
		src.entries[entry.ref()] = entry
	}
	return src, nil
}

var failureKeys = map[string]struct{}{
	"merge_request":                 {},
	string(schema.SourceApprovals):  {},
	string(schema.SourceViolations): {},
	string(schema.SourcePolicies):   {},
}

// validateDocument checks that required fields are present and valid.
func validateDocument(doc *Document) error {
	seen := make(map[schema.MergeRequestRef]struct{}, len(doc.MergeRequests))
	for i := range doc.MergeRequests {
		entry := &doc.MergeRequests[i]
		if entry.Project == "" {
			return fmt.Errorf("merge_requests[%d]: project is required", i)
		}
		if entry.IID <= 0 {
			return fmt.Errorf("merge_requests[%d]: iid must be positive", i)
		}
		if _, dup := seen[entry.ref()]; dup {
			return fmt.Errorf("merge_requests[%d]: duplicate merge request %s", i, entry.ref())
		}
		seen[entry.ref()] = struct{}{}

		if entry.State == "" {
			entry.State = schema.StateOpened
		}
		for j, v := range entry.Violations {
			if v.PolicyRuleID == "" {
				return fmt.Errorf("merge_requests[%d].violations[%d]: policy_rule_id is required", i, j)
			}
			if !v.State.Valid() {
				return fmt.Errorf("merge_requests[%d].violations[%d]: unknown state %q", i, j, v.State)
			}
		}
		for key := range entry.Failures {
			if _, ok := failureKeys[key]; !ok {
				return fmt.Errorf("merge_requests[%d]: unknown failure source %q", i, key)
			}
		}
	}
	for project, policies := range doc.Policies {
		for j, p := range policies {
			if p.PolicyID == "" {
				return fmt.Errorf("policies[%s][%d]: id is required", project, j)
			}
		}
	}
	return nil
}

// MergeRequestRefs returns every merge request in file order.
func (s *Source) MergeRequestRefs() []schema.MergeRequestRef {
	refs := make([]schema.MergeRequestRef, len(s.doc.MergeRequests))
	for i := range s.doc.MergeRequests {
		refs[i] = s.doc.MergeRequests[i].ref()
	}
	return refs
}

func (s *Source) lookup(ctx context.Context, ref schema.MergeRequestRef, source string) (*MergeRequestEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, ok := s.entries[ref]
	if !ok {
		return nil, fmt.Errorf("merge request %s not found in state file", ref)
	}
	if msg, failed := entry.Failures[source]; failed {
		if strings.EqualFold(msg, unlicensed) {
			return nil, contract.ConfigurationError("%s are not licensed for %s", source, ref.ProjectID)
		}
		return nil, errors.New(msg)
	}
	return entry, nil
}

// GetMergeRequest implements contract.MergeRequestSource.
func (s *Source) GetMergeRequest(ctx context.Context, ref schema.MergeRequestRef) (schema.MergeRequest, error) {
	entry, err := s.lookup(ctx, ref, "merge_request")
	if err != nil {
		return schema.MergeRequest{}, err
	}
	return schema.MergeRequest{
		Ref:          ref,
		Title:        entry.Title,
		Author:       entry.Author,
		SourceBranch: entry.SourceBranch,
		TargetBranch: entry.TargetBranch,
		HeadSHA:      entry.HeadSHA,
		BaseSHA:      entry.BaseSHA,
		State:        entry.State,
		Draft:        entry.Draft,
	}, nil
}

// IsApproved implements contract.ApprovalSource.
func (s *Source) IsApproved(ctx context.Context, ref schema.MergeRequestRef) (bool, error) {
	entry, err := s.lookup(ctx, ref, string(schema.SourceApprovals))
	if err != nil {
		return false, err
	}
	return entry.Approved, nil
}

// IsTemporarilyUnapproved implements contract.ApprovalSource.
func (s *Source) IsTemporarilyUnapproved(ctx context.Context, ref schema.MergeRequestRef) (bool, error) {
	entry, err := s.lookup(ctx, ref, string(schema.SourceApprovals))
	if err != nil {
		return false, err
	}
	return entry.TemporarilyUnapproved, nil
}

// ApplicableViolations implements contract.PolicySource.
func (s *Source) ApplicableViolations(ctx context.Context, ref schema.MergeRequestRef) ([]schema.ScanResultPolicyViolation, error) {
	entry, err := s.lookup(ctx, ref, string(schema.SourceViolations))
	if err != nil {
		return nil, err
	}
	return append([]schema.ScanResultPolicyViolation(nil), entry.Violations...), nil
}

// ApplicablePolicies implements contract.PolicySource.
func (s *Source) ApplicablePolicies(ctx context.Context, ref schema.MergeRequestRef) ([]schema.SecurityPolicy, error) {
	if _, err := s.lookup(ctx, ref, string(schema.SourcePolicies)); err != nil {
		return nil, err
	}
	return append([]schema.SecurityPolicy(nil), s.doc.Policies[ref.ProjectID]...), nil
}
