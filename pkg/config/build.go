package config

import (
	"log/slog"
	"strings"

	"github.com/paulokuns/rspamd/pkg/multimap"
	"github.com/paulokuns/rspamd/pkg/multimap/lookup"
	"github.com/paulokuns/rspamd/pkg/multimap/selector"
)

// Policy holds the built rulesets together with the lookup resolver that
// owns their file and database maps.
type Policy struct {
	Rulesets []*multimap.Ruleset
	Maps     *lookup.Resolver
}

// Close releases resources held by the policy's maps.
func (p *Policy) Close() error {
	return p.Maps.Close()
}

// Build constructs one Ruleset per configured module. Construction is
// all-or-nothing: the first failing module aborts the build, and the
// returned error carries the module context.
func Build(cfg *Config, logger *slog.Logger) (*Policy, error) {
	if logger == nil {
		logger = slog.Default()
	}

	maps := &lookup.Resolver{BaseDir: cfg.BaseDir(), Logger: logger}
	selectors := selector.NewRegistry()

	rulesets := make([]*multimap.Ruleset, 0, len(cfg.Modules))
	for _, mod := range cfg.Modules {
		specs := make([]multimap.RuleSpec, 0, len(mod.Rules))
		for _, rule := range mod.Rules {
			specs = append(specs, multimap.RuleSpec{
				Name:     rule.Name,
				Selector: rule.Selector,
				Map:      mapSpec(rule),
				Kind:     rule.Kind,
			})
		}

		rs, err := multimap.Build(mod.Name, specs, mod.Expression, multimap.BuildOptions{
			Selectors: selectors,
			Maps:      maps,
			Logger:    logger,
		})
		if err != nil {
			maps.Close()
			return nil, err
		}
		rulesets = append(rulesets, rs)
	}

	logger.Info("multimap policy built",
		"modules", len(rulesets),
		"maps", len(maps.Files()),
	)

	return &Policy{Rulesets: rulesets, Maps: maps}, nil
}

// mapSpec renders a config rule's map reference as a resolver spec:
// inline entries become a "static:" spec, file rules pass through.
func mapSpec(rule Rule) string {
	if len(rule.Entries) > 0 {
		return "static:" + strings.Join(rule.Entries, ";")
	}
	return rule.Map
}
