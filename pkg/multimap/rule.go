package multimap

import (
	"context"

	"github.com/paulokuns/rspamd/pkg/multimap/message"
)

// Selector extracts zero, one or many candidate values from a message.
// Implementations must be safe for concurrent use; a selector returning an
// empty slice means no value is available for this message.
type Selector interface {
	Values(ctx context.Context, msg *message.Message) ([]string, error)
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(ctx context.Context, msg *message.Message) ([]string, error)

// Values implements Selector.
func (f SelectorFunc) Values(ctx context.Context, msg *message.Message) ([]string, error) {
	return f(ctx, msg)
}

// Map is a read-only key lookup capability. Lookup reports whether key is
// present and, if so, the payload stored for it; the payload is opaque to
// the evaluator and passed through verbatim as match evidence.
// Implementations must be safe to call repeatedly and concurrently.
type Map interface {
	Lookup(ctx context.Context, key string) (payload string, found bool, err error)
}

// MapFunc adapts a function to the Map interface.
type MapFunc func(ctx context.Context, key string) (string, bool, error)

// Lookup implements Map.
func (f MapFunc) Lookup(ctx context.Context, key string) (string, bool, error) {
	return f(ctx, key)
}

// SelectorResolver resolves a selector spec string into a callable
// selector capability.
type SelectorResolver interface {
	ResolveSelector(spec string) (Selector, error)
}

// MapResolver resolves a map spec of the given kind into a lookup
// capability.
type MapResolver interface {
	ResolveMap(kind, spec string) (Map, error)
}

// Rule is the binding of one selector to one map under a stable name.
// Rules are immutable after construction and owned by their Ruleset.
type Rule struct {
	name     string
	selector Selector
	lookup   Map
}

// Name returns the rule name, unique within its Ruleset.
func (r *Rule) Name() string {
	return r.name
}
