package expr

// NodeKind identifies the shape of a compiled expression node.
type NodeKind int

const (
	NodeAtom NodeKind = iota // reference to a named rule
	NodeNot                  // negation of a single child
	NodeAnd                  // conjunction of two or more children
	NodeOr                   // disjunction of two or more children
)

// Node is one node of a compiled expression tree. AND and OR nodes are
// n-ary: chains of operators of equal precedence collapse into a single
// node holding the operands in source order.
type Node struct {
	Kind     NodeKind
	Atom     string  // rule name, NodeAtom only
	Children []*Node // operands, NodeNot/NodeAnd/NodeOr only
}

// Expr is an immutable compiled boolean expression over named atoms.
// It is safe for concurrent evaluation.
type Expr struct {
	source string
	root   *Node
	atoms  []string
}

// Source returns the original expression text.
func (e *Expr) Source() string {
	return e.source
}

// Atoms returns the atom names referenced by the expression, in order of
// first appearance. The returned slice is a copy.
func (e *Expr) Atoms() []string {
	out := make([]string, len(e.atoms))
	copy(out, e.atoms)
	return out
}

// Eval evaluates the expression with resolve supplying per-atom truth
// values. Operands are visited left to right and evaluation stops walking
// an AND or OR node as soon as its result is determined, so resolve is
// only invoked for atoms that can still affect the outcome.
//
// resolve may be invoked more than once for an atom that appears more than
// once in the expression; callers needing at-most-once semantics memoize
// inside resolve.
func (e *Expr) Eval(resolve func(atom string) bool) bool {
	if e == nil || e.root == nil {
		return false
	}
	return eval(e.root, resolve)
}

func eval(n *Node, resolve func(string) bool) bool {
	switch n.Kind {
	case NodeAtom:
		return resolve(n.Atom)

	case NodeNot:
		return !eval(n.Children[0], resolve)

	case NodeAnd:
		for _, child := range n.Children {
			if !eval(child, resolve) {
				return false
			}
		}
		return true

	case NodeOr:
		for _, child := range n.Children {
			if eval(child, resolve) {
				return true
			}
		}
		return false

	default:
		return false
	}
}
