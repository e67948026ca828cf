// Package egraph serialization.
// A Snapshot is a plain JSON rendering of a rebuilt e-graph: every
// class with its member nodes and their child class ids. Loading
// replays the structure into a fresh graph and rebuilds, so a
// round-trip preserves equivalences and structural sharing but not
// raw id values.
package egraph

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// SnapshotNode is one e-node in serialized form.
type SnapshotNode struct {
	Op       string `json:"op"`
	Children []int  `json:"children,omitempty"`
}

// SnapshotClass is one e-class in serialized form.
type SnapshotClass struct {
	ID    int            `json:"id"`
	Nodes []SnapshotNode `json:"nodes"`
}

// Snapshot is a saved e-graph. Classes are sorted by id and node
// children are canonical ids, so equal graphs serialize identically.
type Snapshot struct {
	Classes []SnapshotClass `json:"classes"`
}

// Snapshot captures the graph's current classes and nodes. The graph
// must be rebuilt; analysis values are not serialized, they are
// recomputed on load.
func (g *EGraph) Snapshot() (*Snapshot, error) {
	if !g.Clean() {
		return nil, ErrNotRebuilt
	}
	s := &Snapshot{Classes: make([]SnapshotClass, 0, len(g.classes))}
	for id, c := range g.classes {
		sc := SnapshotClass{ID: int(id), Nodes: make([]SnapshotNode, 0, len(c.nodes))}
		for _, n := range c.nodes {
			sn := SnapshotNode{Op: n.Op()}
			for i := 0; i < n.Arity(); i++ {
				sn.Children = append(sn.Children, int(g.uf.find(n.Child(i))))
			}
			sc.Nodes = append(sc.Nodes, sn)
		}
		sort.Slice(sc.Nodes, func(i, j int) bool {
			a, b := sc.Nodes[i], sc.Nodes[j]
			if a.Op != b.Op {
				return a.Op < b.Op
			}
			return fmt.Sprint(a.Children) < fmt.Sprint(b.Children)
		})
		s.Classes = append(s.Classes, sc)
	}
	sort.Slice(s.Classes, func(i, j int) bool { return s.Classes[i].ID < s.Classes[j].ID })
	return s, nil
}

// Encode writes the snapshot as indented JSON.
func (s *Snapshot) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// DecodeSnapshot reads a snapshot from JSON.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

// Load reconstructs an e-graph from a snapshot under the given
// analysis. Returns the graph and the mapping from snapshot class ids
// to ids in the new graph. Purely cyclic classes load correctly; they
// simply remain unextractable, as they were in the source graph.
func Load(s *Snapshot, analysis Analysis) (*EGraph, map[int]ClassID, error) {
	g := New(analysis)

	// Allocate every class up front so cyclic child references
	// resolve, then install nodes directly and let one full rebuild
	// restore the hashcons, congruence, and analysis invariants.
	idMap := make(map[int]ClassID, len(s.Classes))
	for _, sc := range s.Classes {
		id := g.uf.makeSet()
		g.classes[id] = &EClass{id: id}
		idMap[sc.ID] = id
	}

	for _, sc := range s.Classes {
		id := idMap[sc.ID]
		cls := g.classes[id]
		for _, sn := range sc.Nodes {
			kids := make([]ClassID, len(sn.Children))
			for i, c := range sn.Children {
				mapped, ok := idMap[c]
				if !ok {
					return nil, nil, fmt.Errorf("%w: snapshot node %q references unknown class %d",
						ErrInvalidID, sn.Op, c)
				}
				kids[i] = mapped
			}
			n := NewENode(sn.Op, kids...)
			if existing, ok := g.memo.lookup(n); ok {
				// The same node in two snapshot classes means they are
				// equal; merge and move on.
				if _, _, err := g.union(existing, id, Justification{Kind: JustCongruence}); err != nil {
					return nil, nil, err
				}
				continue
			}
			cls = g.classes[g.uf.find(id)]
			cls.nodes = append(cls.nodes, n)
			g.memo.insert(n, g.uf.find(id))
			for i := 0; i < n.Arity(); i++ {
				child := g.classes[g.uf.find(n.Child(i))]
				child.parents = append(child.parents, parentRef{node: n, class: g.uf.find(id)})
			}
			merged, _, err := g.analysis.Merge(cls.data, g.analysis.Make(g, n))
			if err != nil {
				return nil, nil, fmt.Errorf("%w: loading class %d: %v", ErrMergeConflict, sc.ID, err)
			}
			cls.data = merged
		}
	}

	// Everything is dirty until proven otherwise.
	for id := range g.classes {
		g.dirty = append(g.dirty, id)
	}
	if err := g.Rebuild(); err != nil {
		return nil, nil, err
	}
	return g, idMap, nil
}
