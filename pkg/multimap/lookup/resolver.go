package lookup

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/paulokuns/rspamd/pkg/multimap"
)

// staticPrefix marks an inline map spec: the entries follow the prefix,
// separated by semicolons.
const staticPrefix = "static:"

// Resolver builds Map capabilities from configuration (kind, spec) pairs
// and keeps track of what it built: file maps for hot reload wiring and
// closers for shutdown. It implements multimap.MapResolver.
type Resolver struct {
	// BaseDir anchors relative map paths, typically the config file's
	// directory.
	BaseDir string

	// Logger is handed to the maps for reload diagnostics.
	Logger *slog.Logger

	mu      sync.Mutex
	files   []*File
	closers []io.Closer
}

// ResolveMap builds the map named by kind and spec. File-backed kinds
// take a path; "static:" specs build an in-memory map from inline
// entries; the sqlite kind takes a database path.
func (r *Resolver) ResolveMap(kind, spec string) (multimap.Map, error) {
	k := Kind(kind)
	if !k.Valid() {
		return nil, fmt.Errorf("unknown map kind %q", kind)
	}
	if spec == "" {
		return nil, fmt.Errorf("map spec cannot be empty")
	}

	if rest, ok := strings.CutPrefix(spec, staticPrefix); ok {
		return r.resolveStatic(k, rest)
	}

	path := r.resolvePath(spec)
	switch k {
	case KindSQLite:
		m, err := NewSQLite(path)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.closers = append(r.closers, m)
		r.mu.Unlock()
		return m, nil

	default:
		f, err := NewFile(k, path, r.Logger)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.files = append(r.files, f)
		r.mu.Unlock()
		return f, nil
	}
}

func (r *Resolver) resolveStatic(kind Kind, spec string) (multimap.Map, error) {
	if kind == KindSQLite {
		return nil, fmt.Errorf("sqlite maps cannot be inline")
	}

	var entries []Entry
	for _, line := range strings.Split(spec, ";") {
		if entry, ok := ParseEntry(line); ok {
			entries = append(entries, entry)
		}
	}
	return NewStatic(kind, entries)
}

func (r *Resolver) resolvePath(spec string) string {
	if filepath.IsAbs(spec) || r.BaseDir == "" {
		return spec
	}
	return filepath.Join(r.BaseDir, spec)
}

// Files returns the file-backed maps built so far, for watcher and
// refresher registration.
func (r *Resolver) Files() []*File {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*File, len(r.files))
	copy(out, r.files)
	return out
}

// Close releases any maps holding resources (database handles).
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	return firstErr
}
