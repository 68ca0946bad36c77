package expr

import "fmt"

// SyntaxError indicates malformed expression source.
type SyntaxError struct {
	Source string
	Offset int
	Msg    string
}

// Error returns the error message.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in expression %q at offset %d: %s", e.Source, e.Offset, e.Msg)
}

// UnknownAtomError indicates an expression references an atom that does
// not resolve to a known rule name.
type UnknownAtomError struct {
	Atom   string
	Source string
}

// Error returns the error message.
func (e *UnknownAtomError) Error() string {
	return fmt.Sprintf("unknown atom %q in expression %q", e.Atom, e.Source)
}
