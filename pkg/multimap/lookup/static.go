package lookup

import "context"

// Static is an in-memory map built from preparsed entries, used for
// inline configuration lists and tests.
type Static struct {
	kind  Kind
	table table
}

// NewStatic compiles entries into an in-memory map of the given kind.
// KindSQLite is not supported.
func NewStatic(kind Kind, entries []Entry) (*Static, error) {
	tbl, err := buildTable(kind, entries)
	if err != nil {
		return nil, err
	}
	return &Static{kind: kind, table: tbl}, nil
}

// Lookup tests key against the static contents.
func (s *Static) Lookup(ctx context.Context, key string) (string, bool, error) {
	return s.table.lookup(key)
}

// Kind returns the lookup kind.
func (s *Static) Kind() Kind {
	return s.kind
}
