package lookup

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"regexp"
	"strings"
)

// Kind selects a lookup backend.
type Kind string

const (
	// KindSet matches exact keys, case-insensitively.
	KindSet Kind = "set"

	// KindRegexp matches against an ordered list of regular expressions.
	KindRegexp Kind = "regexp"

	// KindCIDR matches IP addresses against network prefixes, longest
	// prefix first.
	KindCIDR Kind = "cidr"

	// KindSQLite looks keys up in a SQLite key/value database.
	KindSQLite Kind = "sqlite"
)

// Valid reports whether k names a supported backend.
func (k Kind) Valid() bool {
	switch k {
	case KindSet, KindRegexp, KindCIDR, KindSQLite:
		return true
	}
	return false
}

// Entry is one parsed map entry: a key and an optional payload.
type Entry struct {
	Key     string
	Payload string
}

// ParseEntry parses one map file line. ok is false for blank lines and
// comments.
func ParseEntry(line string) (entry Entry, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Entry{}, false
	}

	key, payload, found := strings.Cut(line, " ")
	if !found {
		key, payload, _ = strings.Cut(line, "\t")
	}
	return Entry{Key: strings.TrimSpace(key), Payload: strings.TrimSpace(payload)}, true
}

func parseEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if entry, ok := ParseEntry(scanner.Text()); ok {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read map entries: %w", err)
	}
	return entries, nil
}

// table is an immutable parsed lookup backend.
type table interface {
	lookup(key string) (payload string, found bool, err error)
}

// buildTable compiles entries into the backend for kind. KindSQLite has
// no entry-backed table; it is handled by the SQLite type directly.
func buildTable(kind Kind, entries []Entry) (table, error) {
	switch kind {
	case KindSet:
		t := make(setTable, len(entries))
		for _, e := range entries {
			t[strings.ToLower(e.Key)] = e.Payload
		}
		return t, nil

	case KindRegexp:
		t := &regexpTable{entries: make([]regexpEntry, 0, len(entries))}
		for _, e := range entries {
			re, err := regexp.Compile(e.Key)
			if err != nil {
				return nil, fmt.Errorf("compile pattern %q: %w", e.Key, err)
			}
			t.entries = append(t.entries, regexpEntry{re: re, payload: e.Payload})
		}
		return t, nil

	case KindCIDR:
		t := &cidrTable{entries: make([]cidrEntry, 0, len(entries))}
		for _, e := range entries {
			prefix, err := parsePrefix(e.Key)
			if err != nil {
				return nil, err
			}
			t.entries = append(t.entries, cidrEntry{prefix: prefix, payload: e.Payload})
		}
		return t, nil

	default:
		return nil, fmt.Errorf("unsupported map kind %q", kind)
	}
}

// parsePrefix accepts CIDR notation or a bare address, which becomes a
// host prefix.
func parsePrefix(key string) (netip.Prefix, error) {
	if strings.ContainsRune(key, '/') {
		prefix, err := netip.ParsePrefix(key)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("parse network %q: %w", key, err)
		}
		return prefix.Masked(), nil
	}

	addr, err := netip.ParseAddr(key)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("parse address %q: %w", key, err)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

type setTable map[string]string

func (t setTable) lookup(key string) (string, bool, error) {
	payload, found := t[strings.ToLower(key)]
	return payload, found, nil
}

type regexpEntry struct {
	re      *regexp.Regexp
	payload string
}

type regexpTable struct {
	entries []regexpEntry
}

func (t *regexpTable) lookup(key string) (string, bool, error) {
	for _, e := range t.entries {
		if e.re.MatchString(key) {
			return e.payload, true, nil
		}
	}
	return "", false, nil
}

type cidrEntry struct {
	prefix  netip.Prefix
	payload string
}

type cidrTable struct {
	entries []cidrEntry
}

func (t *cidrTable) lookup(key string) (string, bool, error) {
	addr, err := netip.ParseAddr(key)
	if err != nil {
		return "", false, fmt.Errorf("parse address %q: %w", key, err)
	}

	best := -1
	var payload string
	for _, e := range t.entries {
		if e.prefix.Contains(addr) && e.prefix.Bits() > best {
			best = e.prefix.Bits()
			payload = e.payload
		}
	}
	return payload, best >= 0, nil
}
