package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ChannelRules maps a channel name to the formatting constraints injected
// into the system prompt for messages arriving on that channel.
type ChannelRules struct {
	Channels map[string]ChannelRule `yaml:"channels"`
}

// ChannelRule holds the per-channel prompt fragment
type ChannelRule struct {
	Formatting string `yaml:"formatting"`
}

// ForChannel returns the formatting rules for a channel, falling back to the
// "default" entry when the channel has no rules of its own.
func (cr ChannelRules) ForChannel(channel string) string {
	if rule, ok := cr.Channels[channel]; ok && rule.Formatting != "" {
		return rule.Formatting
	}
	if rule, ok := cr.Channels["default"]; ok {
		return rule.Formatting
	}
	return ""
}

// DefaultChannelRules returns the built-in rules used when no YAML file is
// configured or the file is missing.
func DefaultChannelRules() ChannelRules {
	return ChannelRules{
		Channels: map[string]ChannelRule{
			"default": {
				Formatting: "Reply in plain text. Keep answers short and conversational.",
			},
			"whatsapp": {
				Formatting: "Reply in plain text without markdown. Keep messages under 1000 characters. Use *asterisks* only for light emphasis.",
			},
			"widget": {
				Formatting: "You may use simple markdown (bold, bullet lists). Keep answers under 6 lines.",
			},
		},
	}
}

// LoadChannelRules parses per-channel formatting rules from a YAML file.
// A missing file is not an error: the built-in defaults are returned so a
// deployment without a rules file still behaves sensibly.
func LoadChannelRules(path string) (ChannelRules, error) {
	if path == "" {
		return DefaultChannelRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultChannelRules(), nil
		}
		return ChannelRules{}, fmt.Errorf("failed to read channel rules: %w", err)
	}

	var rules ChannelRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return ChannelRules{}, fmt.Errorf("failed to parse channel rules: %w", err)
	}
	if rules.Channels == nil {
		rules = DefaultChannelRules()
	}
	return rules, nil
}
