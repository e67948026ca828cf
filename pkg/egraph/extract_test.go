package egraph

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSimpleTerm(t *testing.T) {
	g := New(nil)
	root := addTerm(t, g, "(+ a b)")
	require.NoError(t, g.Rebuild())

	e, err := NewExtractor(g, ASTSize{})
	require.NoError(t, err)

	term, cost, err := e.Extract(root)
	require.NoError(t, err)
	assert.Equal(t, "(+ a b)", term.String())
	assert.Equal(t, 3.0, cost)
	assert.Equal(t, 3.0, e.Cost(root))
}

func TestExtractPicksCheaperEquivalent(t *testing.T) {
	// (* 2 (+ 1 1)) is asserted equal to the literal 2; size-minimizing
	// extraction must return the literal at cost 1.
	g := New(nil)
	expr := addTerm(t, g, "(* 2 (+ 1 1))")
	two := addTerm(t, g, "2")
	_, _, err := g.Union(expr, two)
	require.NoError(t, err)
	require.NoError(t, g.Rebuild())

	e, err := NewExtractor(g, ASTSize{})
	require.NoError(t, err)

	term, cost, err := e.Extract(expr)
	require.NoError(t, err)
	assert.Equal(t, "2", term.String())
	assert.Equal(t, 1.0, cost)
}

func TestExtractWithOpCost(t *testing.T) {
	// (* x 2) and (<< x 1) are the same class; a weight table that
	// penalizes multiplication selects the shift.
	g := New(nil)
	mul := addTerm(t, g, "(* x 2)")
	shl := addTerm(t, g, "(<< x 1)")
	_, _, err := g.Union(mul, shl)
	require.NoError(t, err)
	require.NoError(t, g.Rebuild())

	e, err := NewExtractor(g, OpCost{
		Weights: map[string]float64{"*": 10, "<<": 2},
		Default: 1,
	})
	require.NoError(t, err)

	term, cost, err := e.Extract(mul)
	require.NoError(t, err)
	assert.Equal(t, "(<< x 1)", term.String())
	assert.Equal(t, 4.0, cost)
}

func TestExtractDepth(t *testing.T) {
	// A deep chain and a shallow equivalent; depth-minimizing
	// extraction takes the shallow one.
	g := New(nil)
	deep := addTerm(t, g, "(+ (+ (+ a b) c) d)")
	flat := addTerm(t, g, "(sum4 a b c d)")
	_, _, err := g.Union(deep, flat)
	require.NoError(t, err)
	require.NoError(t, g.Rebuild())

	e, err := NewExtractor(g, ASTDepth{})
	require.NoError(t, err)

	term, cost, err := e.Extract(deep)
	require.NoError(t, err)
	assert.Equal(t, "(sum4 a b c d)", term.String())
	assert.Equal(t, 2.0, cost)
}

func TestExtractSelfReferentialClass(t *testing.T) {
	// a = f(a): the cyclic member never beats the finite leaf.
	g := New(nil)
	a := addTerm(t, g, "a")
	fa := addTerm(t, g, "(f a)")
	_, _, err := g.Union(a, fa)
	require.NoError(t, err)
	require.NoError(t, g.Rebuild())

	e, err := NewExtractor(g, ASTSize{})
	require.NoError(t, err)

	term, cost, err := e.Extract(fa)
	require.NoError(t, err)
	assert.Equal(t, "a", term.String())
	assert.Equal(t, 1.0, cost)
}

func TestExtractUnextractable(t *testing.T) {
	// A purely cyclic class admits no finite term. Only deserialization
	// can produce one: the class f(x) with x the class itself.
	s := &Snapshot{Classes: []SnapshotClass{
		{ID: 0, Nodes: []SnapshotNode{{Op: "f", Children: []int{0}}}},
	}}
	g, idMap, err := Load(s, nil)
	require.NoError(t, err)
	root := idMap[0]

	e, err := NewExtractor(g, ASTSize{})
	require.NoError(t, err)

	assert.True(t, math.IsInf(e.Cost(root), 1))
	_, _, err = e.Extract(root)
	assert.ErrorIs(t, err, ErrUnextractable)
}

func TestExtractorErrors(t *testing.T) {
	t.Run("dirty graph is rejected", func(t *testing.T) {
		g := New(nil)
		a := addTerm(t, g, "a")
		b := addTerm(t, g, "b")
		_, _, err := g.Union(a, b)
		require.NoError(t, err)

		_, err = NewExtractor(g, nil)
		assert.ErrorIs(t, err, ErrNotRebuilt)
	})

	t.Run("foreign root", func(t *testing.T) {
		g := New(nil)
		e, err := NewExtractor(g, nil)
		require.NoError(t, err)

		assert.True(t, math.IsInf(e.Cost(ClassID(5)), 1))
		_, _, err = e.Extract(ClassID(5))
		assert.ErrorIs(t, err, ErrInvalidID)
	})
}

func TestExtractAll(t *testing.T) {
	g := New(nil)
	roots := []ClassID{
		addTerm(t, g, "(+ a b)"),
		addTerm(t, g, "(* c d)"),
		addTerm(t, g, "e"),
	}
	require.NoError(t, g.Rebuild())

	e, err := NewExtractor(g, ASTSize{})
	require.NoError(t, err)

	results, err := e.ExtractAll(context.Background(), roots)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "(+ a b)", results[0].Term.String())
	assert.Equal(t, "(* c d)", results[1].Term.String())
	assert.Equal(t, "e", results[2].Term.String())
	for i, r := range results {
		assert.Equal(t, roots[i], r.Root)
		assert.NoError(t, r.Err)
	}
}
