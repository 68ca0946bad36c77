// Package multimap combines independent data sources into a single
// pass/fail decision governed by a boolean expression over named rules.
//
// A Rule pairs one selector (which extracts zero or more candidate values
// from a message) with one lookup map (which tests a value and returns an
// optional payload). A Ruleset binds a table of rules to a compiled
// expression over their names, e.g.
//
//	"ip & (from | !rcpt)"
//
// so an operator can declare policies such as "flag if the sender IP is in
// list A and the envelope sender is in list B" without writing code.
//
// # Construction
//
// Build resolves every rule's selector and map spec, then compiles the
// expression against the resulting rule table. Construction is
// all-or-nothing: any unresolvable selector or map, duplicate rule name,
// unknown atom or expression syntax error aborts the whole Ruleset with a
// *ConfigError naming the module. No partially built Ruleset is ever
// returned.
//
// # Evaluation
//
// A built Ruleset is immutable and shared read-only across any number of
// concurrent evaluations; per-request state lives entirely in the Result.
// Evaluate walks the expression lazily: a rule's selector and map are only
// invoked when short-circuit semantics still require its value, and within
// one rule the first value matching the map wins. Selector and map
// failures at request time are soft: the affected rule counts as no match
// and evaluation continues. Evaluate always returns a Result, never an
// error.
package multimap
