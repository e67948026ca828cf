// Package egraph union-find.
// This file implements the compressing union-find that backs canonical
// class ids. It is deliberately separate from the explanation forest in
// explain.go: path compression destroys the provenance of a merge, so
// fast canonical lookup and justification tracking use two different
// structures over the same ids.
package egraph

// unionFind maps class ids to canonical class ids with union-by-size
// and path compression. Ids are dense: makeSet issues them in order,
// which lets the structure live in a flat slice instead of a map.
//
// find is idempotent: find(find(x)) == find(x). Canonical ids only
// ever coarsen; once two ids share a root they do so forever.
type unionFind struct {
	parent []ClassID
	size   []int
}

func newUnionFind() *unionFind {
	return &unionFind{}
}

// makeSet allocates a fresh singleton set and returns its id.
func (uf *unionFind) makeSet() ClassID {
	id := ClassID(len(uf.parent))
	uf.parent = append(uf.parent, id)
	uf.size = append(uf.size, 1)
	return id
}

// contains reports whether id was issued by this union-find.
func (uf *unionFind) contains(id ClassID) bool {
	return id >= 0 && int(id) < len(uf.parent)
}

// find returns the canonical id for x, compressing the path as it
// walks. Callers must have validated x with contains.
func (uf *unionFind) find(x ClassID) ClassID {
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	// Second pass: point everything on the path at the root.
	for uf.parent[x] != root {
		next := uf.parent[x]
		uf.parent[x] = root
		x = next
	}
	return root
}

// union merges the sets containing a and b, attaching the smaller tree
// under the larger to bound depth. Returns the surviving canonical id
// and the absorbed one; if a and b were already equivalent the second
// result equals the first.
func (uf *unionFind) union(a, b ClassID) (root, absorbed ClassID) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return ra, ra
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	return ra, rb
}
