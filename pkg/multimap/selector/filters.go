package selector

import (
	"fmt"
	"strings"
)

// filterFunc transforms one extracted value. ok=false drops the value.
type filterFunc func(value string) (out string, ok bool)

var filterTable = map[string]filterFunc{
	"lower": func(v string) (string, bool) {
		return strings.ToLower(v), true
	},
	// domain keeps the part after the last "@" of an address.
	"domain": func(v string) (string, bool) {
		at := strings.LastIndexByte(v, '@')
		if at < 0 || at == len(v)-1 {
			return "", false
		}
		return v[at+1:], true
	},
	// user keeps the local part before the last "@" of an address.
	"user": func(v string) (string, bool) {
		at := strings.LastIndexByte(v, '@')
		if at <= 0 {
			return "", false
		}
		return v[:at], true
	},
}

func parseFilters(spec string) ([]filterFunc, error) {
	if spec == "" {
		return nil, nil
	}

	var filters []filterFunc
	for _, name := range strings.Split(spec, ":") {
		name = strings.TrimSpace(name)
		f, ok := filterTable[name]
		if !ok {
			return nil, fmt.Errorf("unknown selector filter %q", name)
		}
		filters = append(filters, f)
	}
	return filters, nil
}

func applyFilters(values []string, filters []filterFunc) []string {
	out := make([]string, 0, len(values))
next:
	for _, v := range values {
		for _, f := range filters {
			var ok bool
			v, ok = f(v)
			if !ok {
				continue next
			}
		}
		out = append(out, v)
	}
	return out
}
