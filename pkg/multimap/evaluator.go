package multimap

import (
	"context"
	"time"

	"github.com/paulokuns/rspamd/pkg/multimap/message"
)

// Outcome is the overall result of evaluating a ruleset expression.
type Outcome int

const (
	// Undetermined means the expression could not produce a value (a
	// degenerate ruleset with no compiled expression). Callers must treat
	// it as no match, not as an error.
	Undetermined Outcome = iota

	// NoMatch means the expression evaluated to false.
	NoMatch

	// Match means the expression evaluated to true.
	Match
)

// String returns the outcome label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case Match:
		return "match"
	case NoMatch:
		return "no_match"
	default:
		return "undetermined"
	}
}

// Score maps the outcome onto the scoring-engine convention: 1.0 for a
// match, 0.0 otherwise.
func (o Outcome) Score() float64 {
	if o == Match {
		return 1.0
	}
	return 0.0
}

// Evidence records the value that satisfied a rule's map and the payload
// the map returned for it.
type Evidence struct {
	// Value is the selector-extracted value that matched.
	Value string

	// MapResult is the payload the map returned for Value.
	MapResult string
}

// Evaluation stages that can fail softly.
const (
	StageSelector = "selector"
	StageMap      = "map"
)

// SoftFailure records one degraded step during evaluation: a selector or
// map call that errored and was downgraded to no match instead of failing
// the evaluation.
type SoftFailure struct {
	// Rule is the rule whose capability failed.
	Rule string

	// Stage is StageSelector or StageMap.
	Stage string
}

// Result is the outcome of one evaluation. It is created and discarded
// entirely within one request and holds no reference to the Ruleset.
//
// Matches may be non-empty even when Outcome is NoMatch: under an
// OR-of-ANDs a sub-rule can match while the formula still evaluates
// false. Callers wanting evidence only on success gate on Outcome
// themselves.
type Result struct {
	Outcome      Outcome
	Matches      map[string]Evidence
	SoftFailures []SoftFailure
	Elapsed      time.Duration
}

// Matched reports whether the expression evaluated to true. Undetermined
// counts as no match.
func (r *Result) Matched() bool {
	return r.Outcome == Match
}

// Evaluate walks the compiled expression against msg, lazily resolving
// atoms into rule lookups. Per-request state is confined to the returned
// Result, so any number of evaluations may run concurrently against one
// Ruleset.
//
// Atom resolution follows the expression's left-to-right, short-circuit
// order; an atom appearing more than once is resolved at most once per
// evaluation. Selector and map failures degrade the affected atom to no
// match. Evaluate always returns a Result, never an error; cancellation
// is the caller's responsibility (abandon the call via ctx, the selector
// and map implementations observe it).
func (rs *Ruleset) Evaluate(ctx context.Context, msg *message.Message) *Result {
	start := time.Now()
	res := &Result{Matches: make(map[string]Evidence)}

	if rs == nil || rs.expr == nil {
		res.Outcome = Undetermined
		res.Elapsed = time.Since(start)
		return res
	}

	resolved := make(map[string]bool, len(rs.rules))
	matched := rs.expr.Eval(func(atom string) bool {
		if v, ok := resolved[atom]; ok {
			return v
		}
		v := rs.resolveAtom(ctx, atom, msg, res)
		resolved[atom] = v
		return v
	})

	if matched {
		res.Outcome = Match
	} else {
		res.Outcome = NoMatch
	}
	res.Elapsed = time.Since(start)
	return res
}

// resolveAtom invokes the rule's selector and tests each extracted value
// in order against its map. The first matching value wins; remaining
// values are not tested once one matches. A selector failure resolves the
// whole atom to no match; a map failure on one value skips to the next.
// Both are recorded on res as soft failures.
func (rs *Ruleset) resolveAtom(ctx context.Context, atom string, msg *message.Message, res *Result) bool {
	rule := rs.rules[atom]
	if rule == nil {
		// Compilation validates every atom against the rule table, so
		// this only happens for a hand-assembled Ruleset.
		return false
	}

	values, err := rule.selector.Values(ctx, msg)
	if err != nil {
		rs.logger.Debug("selector failed, rule counts as no match",
			"rule", atom,
			"error", err,
		)
		res.SoftFailures = append(res.SoftFailures, SoftFailure{Rule: atom, Stage: StageSelector})
		return false
	}

	for _, value := range values {
		payload, found, err := rule.lookup.Lookup(ctx, value)
		if err != nil {
			rs.logger.Debug("map lookup failed, skipping value",
				"rule", atom,
				"value", value,
				"error", err,
			)
			res.SoftFailures = append(res.SoftFailures, SoftFailure{Rule: atom, Stage: StageMap})
			continue
		}
		if found {
			res.Matches[atom] = Evidence{Value: value, MapResult: payload}
			return true
		}
	}

	return false
}
