// Package selector provides the built-in value selectors and the registry
// that resolves selector specs from configuration.
//
// A spec is a selector name, an optional parenthesized argument, and an
// optional chain of value filters:
//
//	ip                   sender IP address
//	from                 envelope sender
//	from:domain          envelope sender, domain part only
//	rcpt                 all envelope recipients
//	helo                 HELO/EHLO hostname
//	hostname             resolved client hostname
//	user                 authenticated username
//	header(Subject)      all values of a header
//	header(From):lower   header values, lowercased
//
// Filters (:lower, :domain, :user) transform each extracted value; a
// filter that does not apply (e.g. :domain on a value without "@") drops
// the value.
package selector

import (
	"context"
	"fmt"
	"strings"

	"github.com/paulokuns/rspamd/pkg/multimap"
	"github.com/paulokuns/rspamd/pkg/multimap/message"
)

// Factory builds a Selector from the parenthesized argument of a spec.
// Selectors that take no argument must reject a non-empty arg.
type Factory func(arg string) (multimap.Selector, error)

// Registry maps selector names to factories. The zero value is unusable;
// use NewRegistry, which installs the built-in selectors. Register all
// extensions before resolving: the registry is not synchronized and is
// meant to be populated once at configuration time.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in selectors installed.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	r.Register("ip", noArg(func(msg *message.Message) []string {
		if !msg.SenderIP.IsValid() {
			return nil
		}
		return []string{msg.SenderIP.String()}
	}))
	r.Register("from", noArg(func(msg *message.Message) []string {
		return single(msg.EnvelopeFrom)
	}))
	r.Register("rcpt", noArg(func(msg *message.Message) []string {
		return msg.Rcpts
	}))
	r.Register("helo", noArg(func(msg *message.Message) []string {
		return single(msg.Helo)
	}))
	r.Register("hostname", noArg(func(msg *message.Message) []string {
		return single(msg.Hostname)
	}))
	r.Register("user", noArg(func(msg *message.Message) []string {
		return single(msg.User)
	}))
	r.Register("header", func(arg string) (multimap.Selector, error) {
		if arg == "" {
			return nil, fmt.Errorf("header selector requires a header name argument")
		}
		return multimap.SelectorFunc(func(ctx context.Context, msg *message.Message) ([]string, error) {
			return msg.Header(arg), nil
		}), nil
	})

	return r
}

// Register installs a factory under name, replacing any previous one.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// ResolveSelector parses spec and builds the selector it names, wrapping
// it with any requested value filters. It implements
// multimap.SelectorResolver.
func (r *Registry) ResolveSelector(spec string) (multimap.Selector, error) {
	name, arg, filterSpec, err := splitSpec(spec)
	if err != nil {
		return nil, err
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown selector %q", name)
	}

	sel, err := factory(arg)
	if err != nil {
		return nil, err
	}

	filters, err := parseFilters(filterSpec)
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return sel, nil
	}

	return multimap.SelectorFunc(func(ctx context.Context, msg *message.Message) ([]string, error) {
		values, err := sel.Values(ctx, msg)
		if err != nil {
			return nil, err
		}
		return applyFilters(values, filters), nil
	}), nil
}

// splitSpec breaks "name(arg):f1:f2" into its parts.
func splitSpec(spec string) (name, arg, filters string, err error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", "", "", fmt.Errorf("selector spec cannot be empty")
	}

	rest := spec
	if open := strings.IndexByte(spec, '('); open >= 0 {
		closing := strings.IndexByte(spec, ')')
		if closing < open {
			return "", "", "", fmt.Errorf("selector spec %q: unbalanced parentheses", spec)
		}
		name = spec[:open]
		arg = strings.TrimSpace(spec[open+1 : closing])
		rest = spec[closing+1:]
	} else if colon := strings.IndexByte(spec, ':'); colon >= 0 {
		name = spec[:colon]
		rest = spec[colon:]
	} else {
		name = spec
		rest = ""
	}

	if name == "" {
		return "", "", "", fmt.Errorf("selector spec %q: missing selector name", spec)
	}
	if rest != "" {
		if !strings.HasPrefix(rest, ":") {
			return "", "", "", fmt.Errorf("selector spec %q: unexpected trailing %q", spec, rest)
		}
		filters = rest[1:]
		if filters == "" {
			return "", "", "", fmt.Errorf("selector spec %q: empty filter chain", spec)
		}
	}
	return name, arg, filters, nil
}

func noArg(extract func(*message.Message) []string) Factory {
	return func(arg string) (multimap.Selector, error) {
		if arg != "" {
			return nil, fmt.Errorf("selector takes no argument, got %q", arg)
		}
		return multimap.SelectorFunc(func(ctx context.Context, msg *message.Message) ([]string, error) {
			return extract(msg), nil
		}), nil
	}
}

func single(value string) []string {
	if value == "" {
		return nil
	}
	return []string{value}
}
