package core

import (
	"testing"

	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
	"github.com/stretchr/testify/assert"
)

func TestConfigFeatureGate(t *testing.T) {
	cfg := &contract.Config{
		Features: map[schema.Feature]bool{
			schema.FeatureMergeRequestApprovers:         true,
			schema.FeatureSecurityOrchestrationPolicies: false,
		},
		ProjectFeatures: map[string]map[schema.Feature]bool{
			"group/app": {schema.FeatureSecurityOrchestrationPolicies: true},
		},
	}
	gate := NewConfigFeatureGate(cfg)

	assert.True(t, gate.Enabled(schema.FeatureMergeRequestApprovers, "other/project"))
	assert.False(t, gate.Enabled(schema.FeatureSecurityOrchestrationPolicies, "other/project"))
	assert.True(t, gate.Enabled(schema.FeatureSecurityOrchestrationPolicies, "Group/App"))
	assert.True(t, gate.Enabled(schema.FeatureMergeRequestApprovers, "group/app"), "falls back to default")
	assert.False(t, gate.Enabled(schema.Feature("unknown"), "group/app"))
}
