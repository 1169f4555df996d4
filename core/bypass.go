package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
)

// SettingsBypassEvaluator applies a policy's own bypass settings.
// A merge request is bypassed when its author is listed in Users, or when a
// branch exception matches both its source and target branches.
type SettingsBypassEvaluator struct{}

var _ contract.BypassEvaluator = SettingsBypassEvaluator{} // Compile-time check

// IsBypassed implements contract.BypassEvaluator.
func (SettingsBypassEvaluator) IsBypassed(_ context.Context, policy schema.SecurityPolicy, snap *schema.MergeRequestSnapshot) (bool, error) {
	settings := policy.BypassSettings
	if settings.Empty() {
		return false, nil
	}
	mr := snap.MergeRequest

	for _, user := range settings.Users {
		if mr.Author != "" && strings.EqualFold(strings.TrimPrefix(user, "@"), mr.Author) {
			return true, nil
		}
	}

	for _, exception := range settings.Branches {
		// An exception without any pattern would exempt everything.
		if exception.Source == "" && exception.Target == "" {
			continue
		}
		sourceOK, err := matchBranch(exception.Source, mr.SourceBranch)
		if err != nil {
			return false, err
		}
		targetOK, err := matchBranch(exception.Target, mr.TargetBranch)
		if err != nil {
			return false, err
		}
		if sourceOK && targetOK {
			return true, nil
		}
	}
	return false, nil
}

// matchBranch matches a doublestar pattern; the empty pattern matches any branch.
func matchBranch(pattern, branch string) (bool, error) {
	if pattern == "" {
		return true, nil
	}
	ok, err := doublestar.Match(pattern, branch)
	if err != nil {
		return false, fmt.Errorf("invalid branch pattern %q: %w", pattern, err)
	}
	return ok, nil
}
