package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/webis-de/llmserve/pkg/stopstring"
)

// Settings is the optional YAML server-settings file: stop-string rule
// sets and back-pressure alerting thresholds (§2 ambient additions).
// Its absence is not an error — every field has a zero-value default
// (no stop strings configured, alerting disabled).
type Settings struct {
	StopStrings StopStringSettings `yaml:"stop_strings"`
	Alerting    AlertingSettings   `yaml:"alerting"`
}

// StopStringSettings mirrors stopstring.Rules in a YAML-friendly shape
// (wildcard list plus a suffix-keyed map), one side per trim policy.
type StopStringSettings struct {
	Inclusive RuleSettings `yaml:"inclusive"`
	Exclusive RuleSettings `yaml:"exclusive"`
}

// RuleSettings is the YAML form of stopstring.Rules.
type RuleSettings struct {
	Wildcard []string            `yaml:"wildcard"`
	BySuffix map[string][]string `yaml:"by_suffix"`
}

// ToRules converts the YAML shape into stopstring.Rules.
func (r RuleSettings) ToRules() stopstring.Rules {
	return stopstring.Rules{Wildcard: r.Wildcard, BySuffix: r.BySuffix}
}

// AlertingSettings configures pkg/notify's back-pressure notification
// (§4.11): queue depth at or above QueueDepthThreshold for ConsecutiveSamples
// consecutive statistics() polls triggers one Slack message.
type AlertingSettings struct {
	QueueDepthThreshold int `yaml:"queue_depth_threshold"`
	ConsecutiveSamples  int `yaml:"consecutive_samples"`
}

// LoadSettings reads and parses the YAML settings file at path,
// expanding environment variables first via ExpandEnv. A missing path
// ("") or missing file returns a zero-value Settings, not an error —
// the settings file is wholly optional.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return &Settings{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("config: reading settings file %s: %w", path, err)
	}

	expanded := ExpandEnv(raw)

	var s Settings
	if err := yaml.Unmarshal(expanded, &s); err != nil {
		return nil, fmt.Errorf("config: parsing settings file %s: %w", path, err)
	}
	return &s, nil
}
