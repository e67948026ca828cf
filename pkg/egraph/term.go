// Package egraph term trees.
// Terms are the finite, acyclic expressions that cross the library
// boundary: callers insert them with AddTerm and get them back from
// extraction. Inside the graph everything is e-nodes and class ids.
package egraph

import "strings"

// Term is a finite operator tree in parenthesized-prefix form.
// A Term with no arguments is a leaf; (+ (* a 2) 1) is the Term
// {Op: "+", Args: [{Op:"*", Args:[a, 2]}, 1]}.
type Term struct {
	Op   string
	Args []*Term
}

// NewTerm builds a term node from an operator and argument terms.
func NewTerm(op string, args ...*Term) *Term {
	return &Term{Op: op, Args: args}
}

// Equal reports deep structural equality of two terms.
func (t *Term) Equal(other *Term) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Op != other.Op || len(t.Args) != len(other.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(other.Args[i]) {
			return false
		}
	}
	return true
}

// Size returns the number of operator nodes in the term.
func (t *Term) Size() int {
	n := 1
	for _, a := range t.Args {
		n += a.Size()
	}
	return n
}

// String renders the term in the textual syntax accepted by ParseTerm.
func (t *Term) String() string {
	if len(t.Args) == 0 {
		return t.Op
	}
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(t.Op)
	for _, a := range t.Args {
		b.WriteByte(' ')
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}
