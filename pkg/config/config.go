// Package config loads and validates the YAML configuration and glues it
// to the multimap engine: each configured module block becomes one built
// Ruleset.
package config

import (
	"fmt"
	"time"

	"github.com/paulokuns/rspamd/pkg/multimap/lookup"
)

// Config is the top-level configuration document.
type Config struct {
	// Modules are the policy blocks, one Ruleset each.
	Modules []Module `yaml:"modules"`

	// Maps controls map reload behavior.
	Maps MapsConfig `yaml:"maps"`

	baseDir string
}

// Module is one policy block: a named boolean expression over rules.
type Module struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
	Rules      []Rule `yaml:"rules"`
}

// Rule binds a selector spec to a map. Exactly one of Map and Entries
// must be set; Entries builds an inline map without a backing file.
type Rule struct {
	Name     string   `yaml:"name"`
	Selector string   `yaml:"selector"`
	Map      string   `yaml:"map"`
	Kind     string   `yaml:"kind"`
	Entries  []string `yaml:"entries"`
}

// MapsConfig controls hot reload of file-backed maps.
type MapsConfig struct {
	// Watch enables fsnotify-based reload on file change.
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period before a change triggers a reload,
	// as a Go duration string. Empty means the watcher default.
	Debounce string `yaml:"debounce"`

	// Refresh is a standard cron expression for periodic reload,
	// e.g. "*/5 * * * *". Empty disables scheduled refresh.
	Refresh string `yaml:"refresh"`
}

// DebounceInterval parses the configured debounce duration; zero means
// use the watcher default.
func (m MapsConfig) DebounceInterval() (time.Duration, error) {
	if m.Debounce == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(m.Debounce)
	if err != nil {
		return 0, fmt.Errorf("parse maps.debounce: %w", err)
	}
	return d, nil
}

// Validate checks the structural constraints the builder relies on.
// Selector specs, map contents and expression semantics are validated
// during Build.
func (c *Config) Validate() error {
	if len(c.Modules) == 0 {
		return fmt.Errorf("no modules configured")
	}

	if _, err := c.Maps.DebounceInterval(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Modules))
	for i, mod := range c.Modules {
		if mod.Name == "" {
			return fmt.Errorf("modules[%d]: name is required", i)
		}
		if seen[mod.Name] {
			return fmt.Errorf("duplicate module name %q", mod.Name)
		}
		seen[mod.Name] = true

		if mod.Expression == "" {
			return fmt.Errorf("module %q: expression is required", mod.Name)
		}
		if len(mod.Rules) == 0 {
			return fmt.Errorf("module %q: at least one rule is required", mod.Name)
		}

		for _, rule := range mod.Rules {
			if rule.Name == "" {
				return fmt.Errorf("module %q: rule name is required", mod.Name)
			}
			if rule.Selector == "" {
				return fmt.Errorf("module %q: rule %q: selector is required", mod.Name, rule.Name)
			}
			if rule.Map == "" && len(rule.Entries) == 0 {
				return fmt.Errorf("module %q: rule %q: either map or entries is required", mod.Name, rule.Name)
			}
			if rule.Map != "" && len(rule.Entries) > 0 {
				return fmt.Errorf("module %q: rule %q: map and entries are mutually exclusive", mod.Name, rule.Name)
			}
			if rule.Kind != "" && !lookup.Kind(rule.Kind).Valid() {
				return fmt.Errorf("module %q: rule %q: unknown map kind %q", mod.Name, rule.Name, rule.Kind)
			}
		}
	}

	return nil
}

// BaseDir returns the directory of the loaded config file, used to anchor
// relative map paths.
func (c *Config) BaseDir() string {
	return c.baseDir
}
