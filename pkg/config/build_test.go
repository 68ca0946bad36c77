package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulokuns/rspamd/pkg/multimap"
	"github.com/paulokuns/rspamd/pkg/multimap/message"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "networks.list"), []byte("192.0.2.0/24 lab\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{
		baseDir: dir,
		Modules: []Module{
			{
				Name:       "blocklist",
				Expression: "ip | from",
				Rules: []Rule{
					{Name: "ip", Selector: "ip", Kind: "cidr", Map: "networks.list"},
					{Name: "from", Selector: "from:domain:lower", Entries: []string{"spam.example blocked"}},
				},
			},
		},
	}

	policy, err := Build(cfg, quietLogger())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer policy.Close()

	if len(policy.Rulesets) != 1 {
		t.Fatalf("got %d rulesets, want 1", len(policy.Rulesets))
	}
	if len(policy.Maps.Files()) != 1 {
		t.Errorf("got %d file maps, want 1 (inline entries are not file-backed)", len(policy.Maps.Files()))
	}

	rs := policy.Rulesets[0]

	t.Run("matches by network", func(t *testing.T) {
		msg := &message.Message{SenderIP: netip.MustParseAddr("192.0.2.33")}
		res := rs.Evaluate(context.Background(), msg)
		if res.Outcome != multimap.Match {
			t.Errorf("Outcome = %v, want Match", res.Outcome)
		}
		if ev := res.Matches["ip"]; ev.MapResult != "lab" {
			t.Errorf("evidence = %+v, want payload lab", ev)
		}
	})

	t.Run("matches by sender domain", func(t *testing.T) {
		msg := &message.Message{EnvelopeFrom: "User@SPAM.example"}
		res := rs.Evaluate(context.Background(), msg)
		if res.Outcome != multimap.Match {
			t.Errorf("Outcome = %v, want Match", res.Outcome)
		}
		if ev := res.Matches["from"]; ev.Value != "spam.example" || ev.MapResult != "blocked" {
			t.Errorf("evidence = %+v", ev)
		}
	})

	t.Run("clean message", func(t *testing.T) {
		msg := &message.Message{
			SenderIP:     netip.MustParseAddr("198.51.100.1"),
			EnvelopeFrom: "user@ham.example",
		}
		res := rs.Evaluate(context.Background(), msg)
		if res.Outcome != multimap.NoMatch {
			t.Errorf("Outcome = %v, want NoMatch", res.Outcome)
		}
		if len(res.Matches) != 0 {
			t.Errorf("Matches = %v, want empty", res.Matches)
		}
	})
}

func TestBuild_ModuleFailureAborts(t *testing.T) {
	cfg := &Config{
		Modules: []Module{
			{
				Name:       "good",
				Expression: "r",
				Rules: []Rule{
					{Name: "r", Selector: "from", Entries: []string{"a.example"}},
				},
			},
			{
				Name:       "bad",
				Expression: "r",
				Rules: []Rule{
					{Name: "r", Selector: "nosuch", Entries: []string{"a.example"}},
				},
			},
		},
	}

	_, err := Build(cfg, quietLogger())
	if err == nil {
		t.Fatal("Build() succeeded despite bad module")
	}

	var cfgErr *multimap.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %T, want *multimap.ConfigError", err)
	}
	if cfgErr.Module != "bad" {
		t.Errorf("Module = %q, want %q", cfgErr.Module, "bad")
	}
}
