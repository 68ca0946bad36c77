// Package expr compiles boolean expressions over named atoms into an
// immutable, re-evaluable form.
//
// The grammar is deliberately small: atoms are maximal runs of characters
// excluding the delimiter set (whitespace, parentheses, the operator
// symbols and comma), combined with NOT (!), AND (& or &&) and OR
// (| or ||), with parentheses overriding the usual precedence
// (NOT > AND > OR).
//
// Atom references are resolved at compile time against a caller-supplied
// predicate; an expression naming an unknown atom fails with
// *UnknownAtomError instead of misbehaving later at evaluation time.
// Malformed source fails with *SyntaxError carrying the byte offset.
//
// Evaluation is left-to-right with short-circuiting: the right operands of
// AND and OR are not resolved once the result is already determined. The
// compiled Expr holds no mutable state, so one Expr may be evaluated by
// any number of goroutines concurrently.
package expr
