package contract

import (
	"errors"
	"fmt"

	"github.com/huangsam/mergecheck/schema"
)

// ErrConfiguration marks a feature that is unlicensed or misconfigured.
// Checks that hit it report inactive instead of failing.
var ErrConfiguration = errors.New("feature not configured")

// ConfigurationError wraps ErrConfiguration with the offending detail.
func ConfigurationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// TransientLookupError is a failed collaborator read.
type TransientLookupError struct {
	Source string
	Ref    schema.MergeRequestRef
	Err    error
}

func (e *TransientLookupError) Error() string {
	return fmt.Sprintf("lookup %s for %s: %v", e.Source, e.Ref, e.Err)
}

func (e *TransientLookupError) Unwrap() error {
	return e.Err
}

// InvariantViolation reports a programming defect such as a check returning
// an unknown status. It is the only error a pipeline run surfaces.
type InvariantViolation struct {
	CheckID string
	Status  schema.CheckStatus
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: check %q returned unknown status %q", e.CheckID, e.Status)
}

// IsConfigurationError reports whether err carries ErrConfiguration.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
