package multimap

import "fmt"

// ConfigError wraps any error that aborts Ruleset construction, carrying
// the module name for diagnostics. Use errors.As to reach the concrete
// cause (*UnknownSelectorError, *UnknownMapError, *DuplicateRuleError,
// *expr.SyntaxError, *expr.UnknownAtomError).
type ConfigError struct {
	Module string
	Err    error
}

// Error returns the error message.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("multimap module %q: %v", e.Module, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// UnknownSelectorError indicates a rule's selector spec could not be
// resolved into a selector capability.
type UnknownSelectorError struct {
	Rule  string
	Spec  string
	Cause error
}

// Error returns the error message.
func (e *UnknownSelectorError) Error() string {
	return fmt.Sprintf("rule %q: cannot resolve selector %q: %v", e.Rule, e.Spec, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *UnknownSelectorError) Unwrap() error {
	return e.Cause
}

// UnknownMapError indicates a rule's map spec could not be resolved into a
// lookup capability.
type UnknownMapError struct {
	Rule  string
	Kind  string
	Spec  string
	Cause error
}

// Error returns the error message.
func (e *UnknownMapError) Error() string {
	return fmt.Sprintf("rule %q: cannot resolve %s map %q: %v", e.Rule, e.Kind, e.Spec, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *UnknownMapError) Unwrap() error {
	return e.Cause
}

// DuplicateRuleError indicates two rules in one module share a name.
type DuplicateRuleError struct {
	Rule string
}

// Error returns the error message.
func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("duplicate rule name %q", e.Rule)
}
