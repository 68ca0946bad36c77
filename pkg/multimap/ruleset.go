package multimap

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/paulokuns/rspamd/pkg/multimap/expr"
)

// DefaultMapKind is the lookup kind used when a RuleSpec leaves Kind
// empty.
const DefaultMapKind = "set"

// RuleSpec describes one rule to bind: a name, a selector spec and a map
// spec. Specs are ordered so that duplicate names can be detected; a
// mapping would silently collapse them.
type RuleSpec struct {
	// Name is the rule name the expression refers to.
	Name string

	// Selector is the selector spec, resolved by the SelectorResolver
	// (e.g. "ip", "from:domain", "header(Subject)").
	Selector string

	// Map is the map spec, resolved by the MapResolver (typically a file
	// or database path).
	Map string

	// Kind selects the lookup backend; empty means DefaultMapKind.
	Kind string
}

// BuildOptions carries the collaborators Build needs to resolve rule
// specs into capabilities.
type BuildOptions struct {
	// Selectors resolves selector specs. Required.
	Selectors SelectorResolver

	// Maps resolves map specs. Required.
	Maps MapResolver

	// Logger is used for evaluation-time diagnostics. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Ruleset is the immutable, compiled combination of a rule table and a
// boolean expression over it. It is built once per configured policy
// block and shared read-only across all concurrent evaluations; no field
// is mutated after Build returns.
type Ruleset struct {
	module string
	rules  map[string]*Rule
	expr   *expr.Expr
	logger *slog.Logger
}

// Build constructs a Ruleset from rule specs and an expression source.
// All rules are bound before the expression is compiled, and compilation
// validates every atom against the bound rule table, so a successfully
// built Ruleset can never reference a missing rule. Any failure aborts
// construction with a *ConfigError naming the module.
func Build(module string, specs []RuleSpec, expression string, opts BuildOptions) (*Ruleset, error) {
	if opts.Selectors == nil {
		return nil, &ConfigError{Module: module, Err: fmt.Errorf("selector resolver is required")}
	}
	if opts.Maps == nil {
		return nil, &ConfigError{Module: module, Err: fmt.Errorf("map resolver is required")}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rules := make(map[string]*Rule, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, &ConfigError{Module: module, Err: fmt.Errorf("rule name cannot be empty")}
		}
		if _, dup := rules[spec.Name]; dup {
			return nil, &ConfigError{Module: module, Err: &DuplicateRuleError{Rule: spec.Name}}
		}

		sel, err := opts.Selectors.ResolveSelector(spec.Selector)
		if err != nil {
			return nil, &ConfigError{Module: module, Err: &UnknownSelectorError{
				Rule:  spec.Name,
				Spec:  spec.Selector,
				Cause: err,
			}}
		}

		kind := spec.Kind
		if kind == "" {
			kind = DefaultMapKind
		}
		m, err := opts.Maps.ResolveMap(kind, spec.Map)
		if err != nil {
			return nil, &ConfigError{Module: module, Err: &UnknownMapError{
				Rule:  spec.Name,
				Kind:  kind,
				Spec:  spec.Map,
				Cause: err,
			}}
		}

		rules[spec.Name] = &Rule{name: spec.Name, selector: sel, lookup: m}
	}

	compiled, err := expr.Compile(expression, func(atom string) bool {
		_, ok := rules[atom]
		return ok
	})
	if err != nil {
		return nil, &ConfigError{Module: module, Err: err}
	}

	return &Ruleset{
		module: module,
		rules:  rules,
		expr:   compiled,
		logger: logger.With("module", module),
	}, nil
}

// Module returns the module label the Ruleset was built under.
func (rs *Ruleset) Module() string {
	return rs.module
}

// Expression returns the source text of the compiled expression.
func (rs *Ruleset) Expression() string {
	return rs.expr.Source()
}

// RuleNames returns the bound rule names in sorted order.
func (rs *Ruleset) RuleNames() []string {
	names := make([]string, 0, len(rs.rules))
	for name := range rs.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
