// Package lookup implements the map capabilities rule bindings test
// values against: exact key sets, ordered regular expression lists, CIDR
// prefix tables and SQLite key/value databases.
//
// File-backed maps parse a plain text format, one entry per line:
//
//	# comment
//	key
//	key payload text
//
// The payload, if any, is returned verbatim as the match result. Set keys
// are matched case-insensitively, regexp entries in file order (first
// match wins) and CIDR entries by longest matching prefix.
//
// File maps keep their parsed contents behind an atomic snapshot and can
// be reloaded while lookups proceed: Watcher reloads on fsnotify events
// (debounced) and Refresher reloads on a cron schedule for setups where
// file events are unreliable. A failed reload keeps the last good
// snapshot.
//
// Resolver turns a configuration (kind, spec) pair into a Map, resolving
// relative paths against a base directory. The spec "static:" followed by
// semicolon-separated entry lines builds an in-memory map without a
// backing file.
package lookup
