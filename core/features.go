package core

import (
	"strings"

	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
)

// ConfigFeatureGate answers feature questions from configuration.
// Project overrides win over defaults; unknown features are disabled.
type ConfigFeatureGate struct {
	Defaults map[schema.Feature]bool
	Projects map[string]map[schema.Feature]bool // keys are lowercased project ids
}

var _ contract.FeatureGate = &ConfigFeatureGate{} // Compile-time check

// NewConfigFeatureGate builds a gate from validated configuration.
func NewConfigFeatureGate(cfg *contract.Config) *ConfigFeatureGate {
	return &ConfigFeatureGate{Defaults: cfg.Features, Projects: cfg.ProjectFeatures}
}

// Enabled implements contract.FeatureGate.
func (g *ConfigFeatureGate) Enabled(feature schema.Feature, scope string) bool {
	if overrides, ok := g.Projects[strings.ToLower(scope)]; ok {
		if enabled, ok := overrides[feature]; ok {
			return enabled
		}
	}
	return g.Defaults[feature]
}
