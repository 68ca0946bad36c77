package lookup

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// snapshot is one immutable parsed generation of a file map.
type snapshot struct {
	table   table
	entries int
	loaded  time.Time
}

// File is a map backed by a file on disk. The parsed contents live behind
// an atomic pointer so Reload can swap in a new generation while lookups
// proceed on the old one.
type File struct {
	path   string
	kind   Kind
	logger *slog.Logger
	data   atomic.Pointer[snapshot]
}

// NewFile parses the file at path into a map of the given kind. The
// initial load must succeed; later reload failures keep the previous
// snapshot.
func NewFile(kind Kind, path string, logger *slog.Logger) (*File, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f := &File{path: path, kind: kind, logger: logger}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Reload re-reads and re-parses the backing file and swaps the new
// snapshot in on success. On failure the previous snapshot stays in
// place and lookups continue against it.
func (f *File) Reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read map file: %w", err)
	}

	entries, err := parseEntries(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("map file %q: %w", f.path, err)
	}

	tbl, err := buildTable(f.kind, entries)
	if err != nil {
		return fmt.Errorf("map file %q: %w", f.path, err)
	}

	f.data.Store(&snapshot{table: tbl, entries: len(entries), loaded: time.Now()})
	f.logger.Debug("map loaded",
		"path", f.path,
		"kind", string(f.kind),
		"entries", len(entries),
	)
	return nil
}

// Lookup tests key against the current snapshot.
func (f *File) Lookup(ctx context.Context, key string) (string, bool, error) {
	snap := f.data.Load()
	if snap == nil {
		return "", false, nil
	}
	return snap.table.lookup(key)
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Kind returns the lookup kind.
func (f *File) Kind() Kind {
	return f.kind
}

// Len returns the entry count of the current snapshot.
func (f *File) Len() int {
	snap := f.data.Load()
	if snap == nil {
		return 0
	}
	return snap.entries
}
