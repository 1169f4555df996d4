package contract

import (
	"context"

	"github.com/huangsam/mergecheck/schema"
	"github.com/stretchr/testify/mock"
)

// MockMergeRequestSource is a mock implementation of MergeRequestSource for testing.
type MockMergeRequestSource struct {
	mock.Mock
}

var _ MergeRequestSource = &MockMergeRequestSource{} // Compile-time check

// GetMergeRequest implements the MergeRequestSource interface.
func (m *MockMergeRequestSource) GetMergeRequest(ctx context.Context, ref schema.MergeRequestRef) (schema.MergeRequest, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(schema.MergeRequest), args.Error(1)
}

// MockApprovalSource is a mock implementation of ApprovalSource for testing.
type MockApprovalSource struct {
	mock.Mock
}

var _ ApprovalSource = &MockApprovalSource{} // Compile-time check

// IsApproved implements the ApprovalSource interface.
func (m *MockApprovalSource) IsApproved(ctx context.Context, ref schema.MergeRequestRef) (bool, error) {
	args := m.Called(ctx, ref)
	return args.Bool(0), args.Error(1)
}

// IsTemporarilyUnapproved implements the ApprovalSource interface.
func (m *MockApprovalSource) IsTemporarilyUnapproved(ctx context.Context, ref schema.MergeRequestRef) (bool, error) {
	args := m.Called(ctx, ref)
	return args.Bool(0), args.Error(1)
}

// MockPolicySource is a mock implementation of PolicySource for testing.
type MockPolicySource struct {
	mock.Mock
}

var _ PolicySource = &MockPolicySource{} // Compile-time check

// ApplicableViolations implements the PolicySource interface.
func (m *MockPolicySource) ApplicableViolations(ctx context.Context, ref schema.MergeRequestRef) ([]schema.ScanResultPolicyViolation, error) {
	args := m.Called(ctx, ref)
	violations, _ := args.Get(0).([]schema.ScanResultPolicyViolation)
	return violations, args.Error(1)
}

// ApplicablePolicies implements the PolicySource interface.
func (m *MockPolicySource) ApplicablePolicies(ctx context.Context, ref schema.MergeRequestRef) ([]schema.SecurityPolicy, error) {
	args := m.Called(ctx, ref)
	policies, _ := args.Get(0).([]schema.SecurityPolicy)
	return policies, args.Error(1)
}

// MockBypassEvaluator is a mock implementation of BypassEvaluator for testing.
type MockBypassEvaluator struct {
	mock.Mock
}

var _ BypassEvaluator = &MockBypassEvaluator{} // Compile-time check

// IsBypassed implements the BypassEvaluator interface.
func (m *MockBypassEvaluator) IsBypassed(ctx context.Context, policy schema.SecurityPolicy, snap *schema.MergeRequestSnapshot) (bool, error) {
	args := m.Called(ctx, policy, snap)
	return args.Bool(0), args.Error(1)
}

// MockFeatureGate is a mock implementation of FeatureGate for testing.
type MockFeatureGate struct {
	mock.Mock
}

var _ FeatureGate = &MockFeatureGate{} // Compile-time check

// Enabled implements the FeatureGate interface.
func (m *MockFeatureGate) Enabled(feature schema.Feature, scope string) bool {
	args := m.Called(feature, scope)
	return args.Bool(0)
}
