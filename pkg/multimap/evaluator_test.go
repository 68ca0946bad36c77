package multimap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/paulokuns/rspamd/pkg/multimap/message"
)

// selectorTable resolves selector specs against a fixed table, so tests
// can bind stub selectors by name.
type selectorTable map[string]Selector

func (t selectorTable) ResolveSelector(spec string) (Selector, error) {
	sel, ok := t[spec]
	if !ok {
		return nil, errors.New("no such selector")
	}
	return sel, nil
}

// mapTable resolves map specs against a fixed table.
type mapTable map[string]Map

func (t mapTable) ResolveMap(kind, spec string) (Map, error) {
	m, ok := t[spec]
	if !ok {
		return nil, errors.New("no such map")
	}
	return m, nil
}

func staticValues(values ...string) Selector {
	return SelectorFunc(func(context.Context, *message.Message) ([]string, error) {
		return values, nil
	})
}

func staticMap(entries map[string]string) Map {
	return MapFunc(func(_ context.Context, key string) (string, bool, error) {
		payload, ok := entries[key]
		return payload, ok, nil
	})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustBuild(t *testing.T, expression string, specs []RuleSpec, sels selectorTable, maps mapTable) *Ruleset {
	t.Helper()
	rs, err := Build("test_policy", specs, expression, BuildOptions{
		Selectors: sels,
		Maps:      maps,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return rs
}

func TestEvaluate_AndPartialMatch(t *testing.T) {
	sels := selectorTable{
		"sel_ip":   staticValues("192.0.2.1"),
		"sel_from": staticValues("user@other.example"),
	}
	maps := mapTable{
		"ips":     staticMap(map[string]string{"192.0.2.1": "bad relay"}),
		"senders": staticMap(map[string]string{"user@spam.example": ""}),
	}
	specs := []RuleSpec{
		{Name: "ip", Selector: "sel_ip", Map: "ips"},
		{Name: "from", Selector: "sel_from", Map: "senders"},
	}

	rs := mustBuild(t, "ip & from", specs, sels, maps)
	res := rs.Evaluate(context.Background(), &message.Message{})

	if res.Outcome != NoMatch {
		t.Errorf("Outcome = %v, want NoMatch", res.Outcome)
	}
	if res.Matched() {
		t.Error("Matched() = true, want false")
	}
	ev, ok := res.Matches["ip"]
	if !ok {
		t.Fatal("Matches missing evidence for ip despite sub-rule match")
	}
	if ev.Value != "192.0.2.1" || ev.MapResult != "bad relay" {
		t.Errorf("evidence = %+v, want value 192.0.2.1 payload %q", ev, "bad relay")
	}
	if _, ok := res.Matches["from"]; ok {
		t.Error("Matches contains evidence for from, which did not match")
	}
}

func TestEvaluate_OrShortCircuit(t *testing.T) {
	fromCalls := 0
	sels := selectorTable{
		"sel_ip": staticValues("192.0.2.1"),
		"sel_from": SelectorFunc(func(context.Context, *message.Message) ([]string, error) {
			fromCalls++
			return []string{"user@spam.example"}, nil
		}),
	}
	maps := mapTable{
		"ips":     staticMap(map[string]string{"192.0.2.1": ""}),
		"senders": staticMap(map[string]string{"user@spam.example": ""}),
	}
	specs := []RuleSpec{
		{Name: "ip", Selector: "sel_ip", Map: "ips"},
		{Name: "from", Selector: "sel_from", Map: "senders"},
	}

	rs := mustBuild(t, "ip | from", specs, sels, maps)
	res := rs.Evaluate(context.Background(), &message.Message{})

	if res.Outcome != Match {
		t.Errorf("Outcome = %v, want Match", res.Outcome)
	}
	if fromCalls != 0 {
		t.Errorf("from selector invoked %d times, want 0 (left operand already true)", fromCalls)
	}
}

func TestEvaluate_AndShortCircuit(t *testing.T) {
	bCalls := 0
	sels := selectorTable{
		"sel_a": staticValues("miss"),
		"sel_b": SelectorFunc(func(context.Context, *message.Message) ([]string, error) {
			bCalls++
			return []string{"hit"}, nil
		}),
	}
	maps := mapTable{
		"m": staticMap(map[string]string{"hit": ""}),
	}
	specs := []RuleSpec{
		{Name: "a", Selector: "sel_a", Map: "m"},
		{Name: "b", Selector: "sel_b", Map: "m"},
	}

	rs := mustBuild(t, "a & b", specs, sels, maps)
	res := rs.Evaluate(context.Background(), &message.Message{})

	if res.Outcome != NoMatch {
		t.Errorf("Outcome = %v, want NoMatch", res.Outcome)
	}
	if bCalls != 0 {
		t.Errorf("b selector invoked %d times, want 0 (left operand already false)", bCalls)
	}
}

func TestEvaluate_NegatedMatch(t *testing.T) {
	sels := selectorTable{"sel_ip": staticValues("192.0.2.1")}
	maps := mapTable{"ips": staticMap(map[string]string{"192.0.2.1": "listed"})}
	specs := []RuleSpec{{Name: "ip", Selector: "sel_ip", Map: "ips"}}

	rs := mustBuild(t, "!ip", specs, sels, maps)
	res := rs.Evaluate(context.Background(), &message.Message{})

	if res.Outcome != NoMatch {
		t.Errorf("Outcome = %v, want NoMatch", res.Outcome)
	}
	// The sub-rule did match; only the formula is false.
	if _, ok := res.Matches["ip"]; !ok {
		t.Error("Matches missing evidence for negated sub-rule that matched")
	}
}

func TestEvaluate_AtomResolvedOnce(t *testing.T) {
	aCalls := 0
	sels := selectorTable{
		"sel_a": SelectorFunc(func(context.Context, *message.Message) ([]string, error) {
			aCalls++
			return []string{"hit"}, nil
		}),
		"sel_b": staticValues("miss"),
	}
	maps := mapTable{"m": staticMap(map[string]string{"hit": ""})}
	specs := []RuleSpec{
		{Name: "a", Selector: "sel_a", Map: "m"},
		{Name: "b", Selector: "sel_b", Map: "m"},
	}

	rs := mustBuild(t, "a & (b | a)", specs, sels, maps)
	rs.Evaluate(context.Background(), &message.Message{})

	if aCalls != 1 {
		t.Errorf("a selector invoked %d times, want 1 (memoized per evaluation)", aCalls)
	}
}

func TestEvaluate_FirstMatchWins(t *testing.T) {
	var probed []string
	sels := selectorTable{"sel": staticValues("v1", "v2", "v3")}
	maps := mapTable{
		"m": MapFunc(func(_ context.Context, key string) (string, bool, error) {
			probed = append(probed, key)
			if key == "v2" {
				return "second", true, nil
			}
			return "", false, nil
		}),
	}
	specs := []RuleSpec{{Name: "r", Selector: "sel", Map: "m"}}

	rs := mustBuild(t, "r", specs, sels, maps)
	res := rs.Evaluate(context.Background(), &message.Message{})

	if res.Outcome != Match {
		t.Fatalf("Outcome = %v, want Match", res.Outcome)
	}
	ev := res.Matches["r"]
	if ev.Value != "v2" || ev.MapResult != "second" {
		t.Errorf("evidence = %+v, want first matching value v2", ev)
	}
	if len(probed) != 2 || probed[0] != "v1" || probed[1] != "v2" {
		t.Errorf("probed values = %v, want [v1 v2] (v3 never tested)", probed)
	}
}

func TestEvaluate_SelectorFailureIsNoMatch(t *testing.T) {
	sels := selectorTable{
		"sel_broken": SelectorFunc(func(context.Context, *message.Message) ([]string, error) {
			return nil, errors.New("header decode failed")
		}),
		"sel_ok": staticValues("hit"),
	}
	maps := mapTable{"m": staticMap(map[string]string{"hit": ""})}
	specs := []RuleSpec{
		{Name: "broken", Selector: "sel_broken", Map: "m"},
		{Name: "ok", Selector: "sel_ok", Map: "m"},
	}

	rs := mustBuild(t, "broken | ok", specs, sels, maps)
	res := rs.Evaluate(context.Background(), &message.Message{})

	if res.Outcome != Match {
		t.Errorf("Outcome = %v, want Match (failure degrades atom, not evaluation)", res.Outcome)
	}
	if _, ok := res.Matches["broken"]; ok {
		t.Error("failed atom recorded evidence")
	}
	want := []SoftFailure{{Rule: "broken", Stage: StageSelector}}
	if !reflect.DeepEqual(res.SoftFailures, want) {
		t.Errorf("SoftFailures = %v, want %v", res.SoftFailures, want)
	}
}

func TestEvaluate_MapErrorSkipsValue(t *testing.T) {
	sels := selectorTable{"sel": staticValues("flaky", "good")}
	maps := mapTable{
		"m": MapFunc(func(_ context.Context, key string) (string, bool, error) {
			if key == "flaky" {
				return "", false, errors.New("backend unavailable")
			}
			return "payload", true, nil
		}),
	}
	specs := []RuleSpec{{Name: "r", Selector: "sel", Map: "m"}}

	rs := mustBuild(t, "r", specs, sels, maps)
	res := rs.Evaluate(context.Background(), &message.Message{})

	if res.Outcome != Match {
		t.Fatalf("Outcome = %v, want Match", res.Outcome)
	}
	if ev := res.Matches["r"]; ev.Value != "good" {
		t.Errorf("evidence value = %q, want %q", ev.Value, "good")
	}
	want := []SoftFailure{{Rule: "r", Stage: StageMap}}
	if !reflect.DeepEqual(res.SoftFailures, want) {
		t.Errorf("SoftFailures = %v, want %v", res.SoftFailures, want)
	}
}

func TestEvaluate_EmptySelectorValues(t *testing.T) {
	sels := selectorTable{"sel": staticValues()}
	maps := mapTable{"m": staticMap(map[string]string{"anything": ""})}
	specs := []RuleSpec{{Name: "r", Selector: "sel", Map: "m"}}

	rs := mustBuild(t, "r", specs, sels, maps)
	res := rs.Evaluate(context.Background(), &message.Message{})

	if res.Outcome != NoMatch {
		t.Errorf("Outcome = %v, want NoMatch", res.Outcome)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	sels := selectorTable{
		"sel_ip":   staticValues("192.0.2.1"),
		"sel_from": staticValues("user@spam.example"),
	}
	maps := mapTable{
		"ips":     staticMap(map[string]string{"192.0.2.1": "a"}),
		"senders": staticMap(map[string]string{"user@spam.example": "b"}),
	}
	specs := []RuleSpec{
		{Name: "ip", Selector: "sel_ip", Map: "ips"},
		{Name: "from", Selector: "sel_from", Map: "senders"},
	}

	rs := mustBuild(t, "ip & from", specs, sels, maps)
	msg := &message.Message{}

	first := rs.Evaluate(context.Background(), msg)
	for i := 0; i < 3; i++ {
		again := rs.Evaluate(context.Background(), msg)
		if again.Outcome != first.Outcome {
			t.Fatalf("evaluation %d: Outcome = %v, first was %v", i, again.Outcome, first.Outcome)
		}
		if len(again.Matches) != len(first.Matches) {
			t.Fatalf("evaluation %d: %d matches, first had %d", i, len(again.Matches), len(first.Matches))
		}
		for name, ev := range first.Matches {
			if again.Matches[name] != ev {
				t.Errorf("evaluation %d: evidence for %s = %+v, first was %+v", i, name, again.Matches[name], ev)
			}
		}
	}
}

func TestEvaluate_NilRuleset(t *testing.T) {
	var rs *Ruleset
	res := rs.Evaluate(context.Background(), &message.Message{})

	if res.Outcome != Undetermined {
		t.Errorf("Outcome = %v, want Undetermined", res.Outcome)
	}
	if res.Matched() {
		t.Error("Matched() = true for undetermined result")
	}
}

func TestOutcome_StringAndScore(t *testing.T) {
	tests := []struct {
		outcome   Outcome
		wantStr   string
		wantScore float64
	}{
		{Match, "match", 1.0},
		{NoMatch, "no_match", 0.0},
		{Undetermined, "undetermined", 0.0},
	}

	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.wantStr {
			t.Errorf("Outcome(%d).String() = %q, want %q", tt.outcome, got, tt.wantStr)
		}
		if got := tt.outcome.Score(); got != tt.wantScore {
			t.Errorf("Outcome(%d).Score() = %v, want %v", tt.outcome, got, tt.wantScore)
		}
	}
}
