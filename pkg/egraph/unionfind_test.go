package egraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestUnionFindBasics covers id issuance, find idempotence, and
// union-by-size behavior.
func TestUnionFindBasics(t *testing.T) {
	t.Run("fresh sets are their own roots", func(t *testing.T) {
		uf := newUnionFind()
		a := uf.makeSet()
		b := uf.makeSet()
		assert.Equal(t, a, uf.find(a))
		assert.Equal(t, b, uf.find(b))
		assert.NotEqual(t, uf.find(a), uf.find(b))
	})

	t.Run("find is idempotent", func(t *testing.T) {
		uf := newUnionFind()
		ids := make([]ClassID, 8)
		for i := range ids {
			ids[i] = uf.makeSet()
		}
		for i := 1; i < len(ids); i++ {
			uf.union(ids[0], ids[i])
		}
		for _, id := range ids {
			assert.Equal(t, uf.find(id), uf.find(uf.find(id)))
		}
	})

	t.Run("union merges transitively", func(t *testing.T) {
		uf := newUnionFind()
		a, b, c := uf.makeSet(), uf.makeSet(), uf.makeSet()
		uf.union(a, b)
		uf.union(b, c)
		assert.Equal(t, uf.find(a), uf.find(c))
	})

	t.Run("union of already merged ids is a no-op", func(t *testing.T) {
		uf := newUnionFind()
		a, b := uf.makeSet(), uf.makeSet()
		root, absorbed := uf.union(a, b)
		assert.NotEqual(t, root, absorbed)
		root2, absorbed2 := uf.union(a, b)
		assert.Equal(t, root2, absorbed2)
		assert.Equal(t, root, root2)
	})

	t.Run("contains rejects foreign ids", func(t *testing.T) {
		uf := newUnionFind()
		uf.makeSet()
		assert.True(t, uf.contains(0))
		assert.False(t, uf.contains(1))
		assert.False(t, uf.contains(InvalidID))
	})
}
