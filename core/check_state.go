package core

import (
	"context"
	"fmt"

	"github.com/huangsam/mergecheck/schema"
)

// Check identifiers for merge request state.
const (
	NotOpenCheckID = "not_open"
	DraftCheckID   = "draft_status"
)

// NotOpenCheck blocks merge requests that are closed, merged or locked.
type NotOpenCheck struct{}

// Identifier implements Check.
func (c *NotOpenCheck) Identifier() string { return NotOpenCheckID }

// Skip implements Check.
func (c *NotOpenCheck) Skip(schema.SkipParams) bool { return false }

// Cacheable implements Check.
func (c *NotOpenCheck) Cacheable() bool { return true }

// Execute implements Check.
func (c *NotOpenCheck) Execute(_ context.Context, env CheckEnv) (schema.CheckResult, error) {
	state := env.Snapshot.MergeRequest.State
	if state == schema.StateOpened {
		return result(NotOpenCheckID, schema.StatusSuccess, ""), nil
	}
	return result(NotOpenCheckID, schema.StatusFailure, fmt.Sprintf("merge request is %s", state)), nil
}

// DraftCheck blocks draft merge requests.
type DraftCheck struct{}

// Identifier implements Check.
func (c *DraftCheck) Identifier() string { return DraftCheckID }

// Skip implements Check.
func (c *DraftCheck) Skip(params schema.SkipParams) bool { return params.SkipDraftCheck }

// Cacheable implements Check.
func (c *DraftCheck) Cacheable() bool { return true }

// Execute implements Check.
func (c *DraftCheck) Execute(_ context.Context, env CheckEnv) (schema.CheckResult, error) {
	if env.Snapshot.MergeRequest.Draft {
		return result(DraftCheckID, schema.StatusFailure, "merge request is marked as draft"), nil
	}
	return result(DraftCheckID, schema.StatusSuccess, ""), nil
}
