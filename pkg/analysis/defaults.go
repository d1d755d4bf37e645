package analysis

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/archlens/archlens/pkg/models"
)

// Configuration keys for the analyses that are not tied to a dimension
const (
	// VisionConfigKey configures the diagram-understanding pass
	VisionConfigKey = "vision_analysis"

	// GovernanceConfigKey configures the governance pass
	GovernanceConfigKey = "governance"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// defaultConfigs holds the compiled-in fallback configuration per key
var defaultConfigs = mustLoadDefaults()

func mustLoadDefaults() map[string]models.ConfigPayload {
	configs := make(map[string]models.ConfigPayload)
	if err := yaml.Unmarshal(defaultsYAML, &configs); err != nil {
		panic(fmt.Sprintf("invalid embedded default configs: %v", err))
	}

	for _, dim := range models.KnownDimensions() {
		if _, ok := configs[string(dim)]; !ok {
			panic(fmt.Sprintf("embedded default configs missing dimension %q", dim))
		}
	}
	for _, key := range []string{VisionConfigKey, GovernanceConfigKey} {
		if _, ok := configs[key]; !ok {
			panic(fmt.Sprintf("embedded default configs missing key %q", key))
		}
	}

	return configs
}

// DefaultConfig returns the compiled-in configuration for a key. The second
// return value is false for keys that have no built-in default.
func DefaultConfig(key string) (models.ConfigPayload, bool) {
	cfg, ok := defaultConfigs[key]
	return cfg, ok
}
