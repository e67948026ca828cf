package egraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactMatchesTreeCostOnTrees(t *testing.T) {
	// Without sharing, DAG cost and tree cost agree.
	g := New(nil)
	root := addTerm(t, g, "(+ (* a b) c)")
	require.NoError(t, g.Rebuild())

	term, cost, err := NewExactExtractor(g, ASTSize{}, nil).
		Extract(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, "(+ (* a b) c)", term.String())
	assert.Equal(t, 5.0, cost)
}

func TestExactCountsSharedClassesOnce(t *testing.T) {
	// (pair (* a b) (* a b)): tree cost pays the product twice (7), the
	// DAG cost pays each class once (4).
	g := New(nil)
	root := addTerm(t, g, "(pair (* a b) (* a b))")
	require.NoError(t, g.Rebuild())

	relaxed, err := NewExtractor(g, ASTSize{})
	require.NoError(t, err)
	assert.Equal(t, 7.0, relaxed.Cost(root))

	_, cost, err := NewExactExtractor(g, ASTSize{}, nil).
		Extract(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 4.0, cost)
}

func TestExactPrefersSharingOverSmallerTree(t *testing.T) {
	// The root class holds two representations: one reusing a single
	// shared product, one built from two distinct unary applications.
	// Tree cost prefers the latter (5 < 7); DAG cost prefers the shared
	// product (4 < 5). Exact extraction must disagree with the
	// relaxation extractor here.
	g := New(nil)
	shared := addTerm(t, g, "(pair (* a b) (* a b))")
	unary := addTerm(t, g, "(pair (h a) (h b))")
	_, _, err := g.Union(shared, unary)
	require.NoError(t, err)
	require.NoError(t, g.Rebuild())

	relaxed, err := NewExtractor(g, ASTSize{})
	require.NoError(t, err)
	relTerm, relCost, err := relaxed.Extract(shared)
	require.NoError(t, err)
	assert.Equal(t, "(pair (h a) (h b))", relTerm.String())
	assert.Equal(t, 5.0, relCost)

	exTerm, exCost, err := NewExactExtractor(g, ASTSize{}, nil).
		Extract(context.Background(), shared)
	require.NoError(t, err)
	assert.Equal(t, "(pair (* a b) (* a b))", exTerm.String())
	assert.Equal(t, 4.0, exCost)
}

func TestExactCyclicInfeasible(t *testing.T) {
	s := &Snapshot{Classes: []SnapshotClass{
		{ID: 0, Nodes: []SnapshotNode{{Op: "f", Children: []int{0}}}},
	}}
	g, idMap, err := Load(s, nil)
	require.NoError(t, err)

	_, _, err = NewExactExtractor(g, nil, nil).
		Extract(context.Background(), idMap[0])
	assert.ErrorIs(t, err, ErrUnextractable)
}

func TestExactAvoidsCyclicChoice(t *testing.T) {
	// One class offers a cheap self-referential node and an expensive
	// finite one; the solver must reject the cycle and still find the
	// finite selection.
	s := &Snapshot{Classes: []SnapshotClass{
		{ID: 0, Nodes: []SnapshotNode{
			{Op: "f", Children: []int{0}},
			{Op: "wide", Children: []int{1, 1, 1}},
		}},
		{ID: 1, Nodes: []SnapshotNode{{Op: "leaf"}}},
	}}
	g, idMap, err := Load(s, nil)
	require.NoError(t, err)

	term, cost, err := NewExactExtractor(g, ASTSize{}, nil).
		Extract(context.Background(), idMap[0])
	require.NoError(t, err)
	assert.Equal(t, "(wide leaf leaf leaf)", term.String())
	// DAG cost: the wide node plus the leaf class, each counted once.
	assert.Equal(t, 2.0, cost)
}

func TestBranchBoundNodeLimit(t *testing.T) {
	g := New(nil)
	root := addTerm(t, g, "(+ (* a b) (* c d))")
	require.NoError(t, g.Rebuild())

	p, err := NewSelectionProblem(g, root, ASTSize{})
	require.NoError(t, err)

	solver := &BranchBoundSolver{NodeLimit: 1}
	_, _, err = solver.Solve(context.Background(), p)
	assert.ErrorIs(t, err, ErrLimitReached)
}

func TestBranchBoundContextCancel(t *testing.T) {
	g := New(nil)
	root := addTerm(t, g, "(+ a b)")
	require.NoError(t, g.Rebuild())

	p, err := NewSelectionProblem(g, root, ASTSize{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sel, _, err := (&BranchBoundSolver{}).Solve(ctx, p)
	assert.Nil(t, sel)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectionProblemShape(t *testing.T) {
	g := New(nil)
	root := addTerm(t, g, "(+ a a)")
	require.NoError(t, g.Rebuild())

	p, err := NewSelectionProblem(g, root, ASTSize{})
	require.NoError(t, err)

	// Two classes: the sum and the shared leaf.
	require.Len(t, p.Classes, 2)
	rootClass := p.Classes[p.Root]
	require.Len(t, rootClass.Nodes, 1)
	assert.Equal(t, "+", rootClass.Nodes[0].Node.Op())
	// Both children index the same class.
	require.Len(t, rootClass.Nodes[0].Children, 2)
	assert.Equal(t, rootClass.Nodes[0].Children[0], rootClass.Nodes[0].Children[1])
	// Weight under ASTSize with zeroed children is 1.
	assert.Equal(t, 1.0, rootClass.Nodes[0].Weight)
}
