package egraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoTable(t *testing.T) {
	t.Run("lookup after insert", func(t *testing.T) {
		m := newMemoTable()
		n := NewENode("f", 1, 2)
		m.insert(n, ClassID(7))

		id, ok := m.lookup(NewENode("f", 1, 2))
		require.True(t, ok)
		assert.Equal(t, ClassID(7), id)
		assert.Equal(t, 1, m.size())
	})

	t.Run("distinct children miss", func(t *testing.T) {
		m := newMemoTable()
		m.insert(NewENode("f", 1, 2), ClassID(7))

		_, ok := m.lookup(NewENode("f", 2, 1))
		assert.False(t, ok)
		_, ok = m.lookup(NewENode("g", 1, 2))
		assert.False(t, ok)
		_, ok = m.lookup(NewENode("f", 1))
		assert.False(t, ok)
	})

	t.Run("insert replaces the mapping", func(t *testing.T) {
		m := newMemoTable()
		m.insert(NewENode("f", 1), ClassID(3))
		m.insert(NewENode("f", 1), ClassID(9))

		id, ok := m.lookup(NewENode("f", 1))
		require.True(t, ok)
		assert.Equal(t, ClassID(9), id)
		assert.Equal(t, 1, m.size())
	})

	t.Run("remove deletes the entry", func(t *testing.T) {
		m := newMemoTable()
		m.insert(Leaf("a"), ClassID(0))
		m.insert(Leaf("b"), ClassID(1))
		m.remove(Leaf("a"))

		_, ok := m.lookup(Leaf("a"))
		assert.False(t, ok)
		_, ok = m.lookup(Leaf("b"))
		assert.True(t, ok)
		assert.Equal(t, 1, m.size())
	})

	t.Run("hash separates op from children", func(t *testing.T) {
		// "f" with child 1 and "f1" as a leaf must not collide into the
		// same logical key.
		m := newMemoTable()
		m.insert(NewENode("f", 1), ClassID(0))
		m.insert(Leaf("f1"), ClassID(1))

		id, ok := m.lookup(NewENode("f", 1))
		require.True(t, ok)
		assert.Equal(t, ClassID(0), id)
		id, ok = m.lookup(Leaf("f1"))
		require.True(t, ok)
		assert.Equal(t, ClassID(1), id)
	})
}

func TestTermBasics(t *testing.T) {
	a := NewTerm("+", NewTerm("a"), NewTerm("b"))
	b := MustParseTerm("(+ a b)")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(MustParseTerm("(+ b a)")))
	assert.Equal(t, 3, a.Size())
	assert.Equal(t, "(+ a b)", a.String())
}
