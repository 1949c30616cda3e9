package equipment

import (
	"io"

	yaml "gopkg.in/yaml.v2"

	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/application/compliance"
)

// Config carries the deploy-specific settings that are not wired through
// flags or the environment: extra category synonym rules for sheets with
// local naming habits, and the background refresh cadence.
type Config struct {
	Categories             []compliance.CategoryRule `yaml:"categories"`
	RefreshIntervalSeconds int                       `yaml:"refreshIntervalSeconds"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := Config{}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
