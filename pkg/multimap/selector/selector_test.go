package selector

import (
	"context"
	"net/netip"
	"reflect"
	"testing"

	"github.com/paulokuns/rspamd/pkg/multimap"
	"github.com/paulokuns/rspamd/pkg/multimap/message"
)

func sampleMessage() *message.Message {
	msg := &message.Message{
		SenderIP:     netip.MustParseAddr("192.0.2.10"),
		Helo:         "mail.example.com",
		Hostname:     "mx.example.com",
		User:         "alice",
		EnvelopeFrom: "Alice@Example.COM",
		Rcpts:        []string{"bob@dest.example", "carol@dest.example"},
	}
	msg.AddHeader("Subject", "Weekly Report")
	msg.AddHeader("X-Origin", "internal")
	msg.AddHeader("X-Origin", "relay")
	return msg
}

func TestResolveSelector_Builtins(t *testing.T) {
	tests := []struct {
		spec string
		want []string
	}{
		{spec: "ip", want: []string{"192.0.2.10"}},
		{spec: "from", want: []string{"Alice@Example.COM"}},
		{spec: "rcpt", want: []string{"bob@dest.example", "carol@dest.example"}},
		{spec: "helo", want: []string{"mail.example.com"}},
		{spec: "hostname", want: []string{"mx.example.com"}},
		{spec: "user", want: []string{"alice"}},
		{spec: "header(Subject)", want: []string{"Weekly Report"}},
		{spec: "header(X-Origin)", want: []string{"internal", "relay"}},
		{spec: "from:lower", want: []string{"alice@example.com"}},
		{spec: "from:domain", want: []string{"Example.COM"}},
		{spec: "from:domain:lower", want: []string{"example.com"}},
		{spec: "from:user", want: []string{"Alice"}},
		{spec: "rcpt:domain", want: []string{"dest.example", "dest.example"}},
		{spec: "header(Subject):lower", want: []string{"weekly report"}},
		{spec: " ip ", want: []string{"192.0.2.10"}},
	}

	registry := NewRegistry()
	msg := sampleMessage()

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			sel, err := registry.ResolveSelector(tt.spec)
			if err != nil {
				t.Fatalf("ResolveSelector(%q) error = %v", tt.spec, err)
			}
			got, err := sel.Values(context.Background(), msg)
			if err != nil {
				t.Fatalf("Values() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Values() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveSelector_EmptyFields(t *testing.T) {
	registry := NewRegistry()
	empty := &message.Message{}

	for _, spec := range []string{"ip", "from", "rcpt", "helo", "hostname", "user", "header(Subject)"} {
		t.Run(spec, func(t *testing.T) {
			sel, err := registry.ResolveSelector(spec)
			if err != nil {
				t.Fatalf("ResolveSelector(%q) error = %v", spec, err)
			}
			got, err := sel.Values(context.Background(), empty)
			if err != nil {
				t.Fatalf("Values() error = %v", err)
			}
			if len(got) != 0 {
				t.Errorf("Values() = %v, want empty", got)
			}
		})
	}
}

func TestResolveSelector_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{name: "empty spec", spec: ""},
		{name: "blank spec", spec: "   "},
		{name: "unknown selector", spec: "nosuch"},
		{name: "unknown filter", spec: "from:nosuch"},
		{name: "argument on plain selector", spec: "ip(eth0)"},
		{name: "header without argument", spec: "header()"},
		{name: "header bare", spec: "header"},
		{name: "unbalanced parens", spec: "header(Subject"},
		{name: "missing name", spec: ":lower"},
		{name: "trailing colon", spec: "ip:"},
		{name: "trailing colon after argument", spec: "header(Subject):"},
		{name: "blank filter in chain", spec: "from::lower"},
	}

	registry := NewRegistry()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := registry.ResolveSelector(tt.spec); err == nil {
				t.Errorf("ResolveSelector(%q) succeeded, want error", tt.spec)
			}
		})
	}
}

func TestResolveSelector_FilterDropsNonApplicable(t *testing.T) {
	registry := NewRegistry()
	msg := &message.Message{Rcpts: []string{"plain-name", "bob@dest.example"}}

	sel, err := registry.ResolveSelector("rcpt:domain")
	if err != nil {
		t.Fatalf("ResolveSelector() error = %v", err)
	}
	got, err := sel.Values(context.Background(), msg)
	if err != nil {
		t.Fatalf("Values() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"dest.example"}) {
		t.Errorf("Values() = %v, want [dest.example] (value without @ dropped)", got)
	}
}

func TestRegister_CustomSelector(t *testing.T) {
	registry := NewRegistry()
	registry.Register("constant", func(arg string) (multimap.Selector, error) {
		return multimap.SelectorFunc(func(context.Context, *message.Message) ([]string, error) {
			return []string{arg}, nil
		}), nil
	})

	sel, err := registry.ResolveSelector("constant(fixed)")
	if err != nil {
		t.Fatalf("ResolveSelector() error = %v", err)
	}
	got, err := sel.Values(context.Background(), &message.Message{})
	if err != nil {
		t.Fatalf("Values() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"fixed"}) {
		t.Errorf("Values() = %v, want [fixed]", got)
	}
}
