// Package egraph provides e-graphs (equality graphs) and equality
// saturation for Go. An e-graph compactly represents an exponentially
// large space of semantically equivalent expressions by partitioning
// terms into equivalence classes (e-classes) of interchangeable
// representations (e-nodes), while a congruence-closure algorithm keeps
// the structure consistent as equalities are asserted.
//
// The package supplies the building blocks of a term-rewriting
// optimizer, program synthesizer, or theorem-proving back end:
//   - EGraph: equivalence classes, union-find, hashcons, and the
//     incremental rebuild that restores congruence after unions
//   - Pattern/Machine: a compiled backtracking matcher that finds
//     rewrite opportunities
//   - Runner/Scheduler: the search -> apply -> rebuild saturation loop
//     with per-rule scheduling and resource limits
//   - Extractor: minimum-cost term selection from a saturated, possibly
//     cyclic e-graph
//
// The core never interprets operator semantics; soundness of asserted
// equalities is the caller's responsibility. A typical session:
//
//	eg := egraph.New(nil)
//	root, _ := eg.AddTerm(egraph.MustParseTerm("(* x 2)"))
//	shift := egraph.MustParseRewrite("mul-to-shift", "(* ?a 2)", "(<< ?a 1)")
//	runner := egraph.NewRunner(eg, egraph.WithIterLimit(10))
//	report, _ := runner.Run(context.Background(), shift)
//	ex, _ := egraph.NewExtractor(eg, egraph.ASTSize{})
//	best, cost, _ := ex.Extract(root)
//
// Thread safety: an EGraph has a single-mutator model. All mutation
// (Add, Union, Rebuild, Runner.Run) must come from one goroutine.
// Read-only operations on a graph that is no longer being mutated
// (extraction, analysis inspection, serialization) are safe to run
// concurrently from multiple goroutines.
package egraph

import (
	"errors"
	"fmt"
)

// ClassID identifies an e-class within one EGraph. IDs are opaque
// handles into the graph's arena and are only meaningful for the graph
// that issued them; callers must resolve them through Find before
// comparing, since unions redirect ids to a surviving canonical id.
type ClassID int

// InvalidID is returned alongside errors from operations that produce a
// ClassID. It is never a valid id for any graph.
const InvalidID ClassID = -1

// Error taxonomy. User-facing failure conditions are wrapped around
// these sentinels so callers can classify them with errors.Is.
var (
	// ErrInvalidID reports an operation that referenced a class id
	// never issued by this e-graph.
	ErrInvalidID = errors.New("egraph: invalid class id")

	// ErrMergeConflict reports an Analysis merge that signalled an
	// irreconcilable contradiction (for example two distinct literal
	// constants proven equal). It indicates the caller's rewrite rules
	// or analysis are unsound for this input, not a bug in the graph.
	ErrMergeConflict = errors.New("egraph: analysis merge conflict")

	// ErrUnextractable reports that no finite-cost term exists for a
	// requested class under the given cost function.
	ErrUnextractable = errors.New("egraph: class has no finite-cost term")

	// ErrPatternCompile reports a malformed pattern, such as a variable
	// used in operator position or with inconsistent arity across
	// occurrences.
	ErrPatternCompile = errors.New("egraph: pattern compile error")

	// ErrNotRebuilt reports an operation that requires a rebuilt graph
	// (matching, extraction, serialization) while unions are pending.
	ErrNotRebuilt = errors.New("egraph: graph has pending rebuilds")

	// ErrLimitReached reports that a bounded search (exact extraction)
	// exhausted its configured budget before proving optimality. The
	// accompanying result is a valid incumbent.
	ErrLimitReached = errors.New("egraph: search limit reached")
)

// Node is the capability the core requires of an e-node: an operator
// identity, an ordered list of child class references, and a way to
// rebuild the node with substituted children. The core depends only on
// this interface, never on a concrete representation, so embedding
// applications may supply their own node types (interned operators,
// typed payloads, and so on).
//
// Two nodes are structurally equal iff they have the same Op and
// pairwise-equal canonicalized children; implementations must make Op
// stable and must not mutate the slice passed to WithChildren.
type Node interface {
	// Op returns the operator symbol. Nodes with equal Op and equal
	// arity are candidates for congruence.
	Op() string

	// Arity returns the number of children.
	Arity() int

	// Child returns the i-th child class reference.
	Child(i int) ClassID

	// WithChildren returns a copy of this node whose children are
	// replaced by the given ids. len(children) must equal Arity.
	WithChildren(children []ClassID) Node
}

// ENode is the canonical Node implementation: an operator symbol plus
// an ordered sequence of child class ids. Leaves have no children.
// The textual syntax layer and the provided analyses produce ENodes,
// but the EGraph itself only ever uses the Node interface.
type ENode struct {
	op       string
	children []ClassID
}

// NewENode creates an e-node with the given operator and children.
// The children slice is copied.
func NewENode(op string, children ...ClassID) ENode {
	kids := make([]ClassID, len(children))
	copy(kids, children)
	return ENode{op: op, children: kids}
}

// Leaf creates a childless e-node.
func Leaf(op string) ENode {
	return ENode{op: op}
}

// Op returns the operator symbol.
func (n ENode) Op() string { return n.op }

// Arity returns the number of children.
func (n ENode) Arity() int { return len(n.children) }

// Child returns the i-th child class id.
func (n ENode) Child(i int) ClassID { return n.children[i] }

// WithChildren returns a copy of the node with substituted children.
func (n ENode) WithChildren(children []ClassID) Node {
	if len(children) != len(n.children) {
		panic(fmt.Sprintf("egraph: WithChildren arity mismatch for %q: %d != %d",
			n.op, len(children), len(n.children)))
	}
	kids := make([]ClassID, len(children))
	copy(kids, children)
	return ENode{op: n.op, children: kids}
}

// String renders the node as op or (op c1 c2 ...).
func (n ENode) String() string {
	if len(n.children) == 0 {
		return n.op
	}
	s := "(" + n.op
	for _, c := range n.children {
		s += fmt.Sprintf(" %d", int(c))
	}
	return s + ")"
}

// sameNode reports structural equality of two nodes, assuming both are
// already canonicalized.
func sameNode(a, b Node) bool {
	if a.Op() != b.Op() || a.Arity() != b.Arity() {
		return false
	}
	for i := 0; i < a.Arity(); i++ {
		if a.Child(i) != b.Child(i) {
			return false
		}
	}
	return true
}
