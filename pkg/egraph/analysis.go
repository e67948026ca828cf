// Package egraph analyses.
// An Analysis attaches a user-defined semilattice value to every
// e-class and keeps it consistent as classes merge. Analyses are how
// embedding applications fold domain knowledge (constant values, free
// variables, types, intervals) into the otherwise purely syntactic
// graph.
package egraph

import (
	"fmt"
	"strconv"
)

// Analysis is the capability for per-class aggregated values.
//
// Contract:
//   - Make derives the value of a single freshly canonicalized node,
//     reading children's values through g.Data.
//   - Merge combines two class values into one, reporting whether the
//     first argument's information changed. Merge must be commutative,
//     associative, and idempotent enough to tolerate arbitrary union
//     order, or the analysis invariant cannot hold. A non-nil error
//     signals an irreconcilable contradiction and surfaces from
//     Union/Rebuild wrapped in ErrMergeConflict.
//   - Modify is invoked once per repaired class during Rebuild (and
//     after Add for new classes). It may call Add and Union on the
//     graph; such re-entrant mutation re-dirties the affected classes
//     and is repaired before Rebuild returns. Modify must be
//     idempotent: running it again on an already-modified class must
//     change nothing.
type Analysis interface {
	// Make computes the analysis value of one node.
	Make(g *EGraph, n Node) any

	// Merge combines b into a, returning the merged value and whether
	// it differs from a.
	Merge(a, b any) (merged any, changed bool, err error)

	// Modify may rewrite the graph based on a class's current value.
	Modify(g *EGraph, id ClassID) error
}

// nopAnalysis is installed when the caller passes a nil Analysis to
// New. Every class carries a nil value and merges never conflict.
type nopAnalysis struct{}

func (nopAnalysis) Make(*EGraph, Node) any { return nil }

func (nopAnalysis) Merge(a, _ any) (any, bool, error) { return a, false, nil }

func (nopAnalysis) Modify(*EGraph, ClassID) error { return nil }

// ConstantFold is an Analysis that tracks the integer constant value
// of a class, when one is known, and rewrites classes to their folded
// constant. It understands leaf integer literals and the operators
// +, -, * and << over them.
//
// Two different constants proven equal is a contradiction: it means
// the rewrite rules in play are unsound for the input, and Merge
// reports it as an error.
//
// ConstantFold doubles as the reference implementation for the Modify
// re-entrancy contract: when a class acquires a constant value, Modify
// adds the literal node and unions it into the class, which dirties
// the class again; the second repair finds nothing new to do.
type ConstantFold struct{}

// ConstData is the per-class value maintained by ConstantFold.
type ConstData struct {
	Value int64
}

// Make folds a node whose children all have known constants.
func (ConstantFold) Make(g *EGraph, n Node) any {
	if n.Arity() == 0 {
		if v, err := strconv.ParseInt(n.Op(), 10, 64); err == nil {
			return &ConstData{Value: v}
		}
		return nil
	}
	args := make([]int64, n.Arity())
	for i := 0; i < n.Arity(); i++ {
		d, ok := g.Data(n.Child(i)).(*ConstData)
		if !ok || d == nil {
			return nil
		}
		args[i] = d.Value
	}
	switch {
	case n.Op() == "+" && len(args) == 2:
		return &ConstData{Value: args[0] + args[1]}
	case n.Op() == "-" && len(args) == 2:
		return &ConstData{Value: args[0] - args[1]}
	case n.Op() == "*" && len(args) == 2:
		return &ConstData{Value: args[0] * args[1]}
	case n.Op() == "<<" && len(args) == 2 && args[1] >= 0 && args[1] < 63:
		return &ConstData{Value: args[0] << uint(args[1])}
	}
	return nil
}

// Merge keeps whichever side knows a constant and rejects merges that
// would equate two different constants.
func (ConstantFold) Merge(a, b any) (any, bool, error) {
	da, _ := a.(*ConstData)
	db, _ := b.(*ConstData)
	switch {
	case db == nil:
		return da, false, nil
	case da == nil:
		return db, true, nil
	case da.Value != db.Value:
		return nil, false, fmt.Errorf("distinct constants %d and %d proven equal", da.Value, db.Value)
	default:
		return da, false, nil
	}
}

// Modify unions a class with its folded constant literal.
func (ConstantFold) Modify(g *EGraph, id ClassID) error {
	d, ok := g.Data(id).(*ConstData)
	if !ok || d == nil {
		return nil
	}
	lit, err := g.Add(Leaf(strconv.FormatInt(d.Value, 10)))
	if err != nil {
		return err
	}
	_, _, err = g.Union(lit, id)
	return err
}
