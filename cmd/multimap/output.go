package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/paulokuns/rspamd/pkg/multimap"
)

// moduleResult is the JSON shape of one module's evaluation.
type moduleResult struct {
	Module  string               `json:"module"`
	Outcome string               `json:"outcome"`
	Score   float64              `json:"score"`
	Matches map[string]matchInfo `json:"matches,omitempty"`
}

type matchInfo struct {
	Value     string `json:"value"`
	MapResult string `json:"map_result,omitempty"`
}

func newModuleResult(module string, res *multimap.Result) moduleResult {
	out := moduleResult{
		Module:  module,
		Outcome: res.Outcome.String(),
		Score:   res.Outcome.Score(),
	}
	if len(res.Matches) > 0 {
		out.Matches = make(map[string]matchInfo, len(res.Matches))
		for rule, ev := range res.Matches {
			out.Matches[rule] = matchInfo{Value: ev.Value, MapResult: ev.MapResult}
		}
	}
	return out
}

// printText renders results in a compact human-readable form.
func printText(w io.Writer, results []moduleResult) {
	for _, r := range results {
		fmt.Fprintf(w, "%s: %s", r.Module, r.Outcome)

		rules := make([]string, 0, len(r.Matches))
		for rule := range r.Matches {
			rules = append(rules, rule)
		}
		sort.Strings(rules)
		for _, rule := range rules {
			m := r.Matches[rule]
			if m.MapResult != "" {
				fmt.Fprintf(w, " %s=%q(%s)", rule, m.Value, m.MapResult)
			} else {
				fmt.Fprintf(w, " %s=%q", rule, m.Value)
			}
		}
		fmt.Fprintln(w)
	}
}
