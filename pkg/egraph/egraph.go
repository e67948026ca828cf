// Package egraph e-graph core.
// This file implements the EGraph itself: the class arena, the
// hashcons, and the incremental rebuild that restores the congruence
// and hashcons invariants after a batch of unions.
//
// # How rebuild works
//
// Unions only mark the surviving class dirty; they do no repair work
// themselves. Rebuild drains the dirty set and, for each dirty class,
// re-canonicalizes the children of that class's *parent* nodes only —
// the nodes elsewhere in the graph that reference it. Re-inserting
// those parents into the hashcons exposes newly congruent nodes
// (f(a) and f(b) after union(a, b)), which are unioned in turn,
// dirtying more classes, until a fixpoint. Repair cost is therefore
// bounded by the touched neighborhood, not the graph size: an online,
// incremental congruence closure.
//
// Example:
//
//	a  := eg.AddTerm(MustParseTerm("(f a)"))
//	b  := eg.AddTerm(MustParseTerm("(f b)"))
//	eg.Union(idOf("a"), idOf("b"))
//	eg.Rebuild()
//	// now eg.Find(a) == eg.Find(b) by congruence
//
// Between Union and the next Rebuild the hashcons, congruence, and
// analysis invariants may transiently not hold; matching, extraction,
// and serialization require a rebuilt graph and return ErrNotRebuilt
// otherwise.
package egraph

import "fmt"

// parentRef is a back-reference from a child class to a node that
// mentions it, together with the class containing that node. Parent
// lists are what bound rebuild work to the touched neighborhood.
type parentRef struct {
	node  Node
	class ClassID
}

// EClass is one equivalence class: a canonical id, the deduplicated
// set of member nodes, back-references to parent nodes, and the
// aggregated analysis value.
//
// Classes are created by Add and only ever coarsen: Union never
// deletes a class, it redirects the absorbed id to the survivor.
// Mutually self-referential classes are an intentional feature of
// congruence closure; the id-indexed arena means unions never move
// or invalidate other classes' storage.
type EClass struct {
	id      ClassID
	nodes   []Node
	parents []parentRef
	data    any
}

// ID returns the class id this class was allocated under. Resolve
// through EGraph.Find before comparing with other ids.
func (c *EClass) ID() ClassID { return c.id }

// Nodes returns the member e-nodes. The returned slice is owned by the
// graph; callers must not modify it. On a rebuilt graph the members
// are canonical and deduplicated.
func (c *EClass) Nodes() []Node { return c.nodes }

// Data returns the aggregated analysis value.
func (c *EClass) Data() any { return c.data }

// EGraph owns the equivalence classes, the union-find, and the
// hashcons table, and exposes insertion, union, canonical lookup, and
// rebuild. Create one with New; the zero value is not usable.
//
// Thread safety: EGraph is single-mutator. Add, Union, and Rebuild
// must be called from one goroutine. Read-only operations on a graph
// that is no longer mutated are safe concurrently.
type EGraph struct {
	analysis Analysis
	uf       *unionFind
	classes  map[ClassID]*EClass
	memo     *memoTable
	dirty    []ClassID
	explain  *explainForest

	// unions counts every successful union, including congruence
	// unions issued by rebuild. The Runner uses it to detect
	// saturation.
	unions uint64
}

// New creates an empty e-graph. A nil analysis installs a no-op
// analysis whose class values are all nil.
func New(analysis Analysis) *EGraph {
	if analysis == nil {
		analysis = nopAnalysis{}
	}
	return &EGraph{
		analysis: analysis,
		uf:       newUnionFind(),
		classes:  make(map[ClassID]*EClass),
		memo:     newMemoTable(),
	}
}

// EnableExplanations switches on justification tracking for every
// subsequent union. It must be called before the unions that need
// explaining; unions recorded earlier cannot be explained. Tracking
// costs memory proportional to the number of unions.
func (g *EGraph) EnableExplanations() {
	if g.explain == nil {
		g.explain = newExplainForest()
	}
}

// NumClasses returns the number of canonical equivalence classes.
func (g *EGraph) NumClasses() int { return len(g.classes) }

// NumNodes returns the number of live canonical e-nodes across all
// classes.
func (g *EGraph) NumNodes() int { return g.memo.size() }

// UnionCount returns the total number of effective unions performed,
// including congruence unions issued by Rebuild.
func (g *EGraph) UnionCount() uint64 { return g.unions }

// Clean reports whether all invariants currently hold, i.e. no unions
// are pending rebuild.
func (g *EGraph) Clean() bool { return len(g.dirty) == 0 }

// Find returns the canonical id for id, or InvalidID if this graph
// never issued id. Canonical ids are stable until the next Union.
func (g *EGraph) Find(id ClassID) ClassID {
	if !g.uf.contains(id) {
		return InvalidID
	}
	return g.uf.find(id)
}

// CanonicalID is Find with an explicit invalid-id error, for callers
// that need to distinguish foreign ids from valid ones.
func (g *EGraph) CanonicalID(id ClassID) (ClassID, error) {
	if !g.uf.contains(id) {
		return InvalidID, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	return g.uf.find(id), nil
}

// Data returns the analysis value of the class containing id, or nil
// for a foreign id.
func (g *EGraph) Data(id ClassID) any {
	c := g.class(id)
	if c == nil {
		return nil
	}
	return c.data
}

// class resolves id to its canonical EClass, or nil for foreign ids.
func (g *EGraph) class(id ClassID) *EClass {
	if !g.uf.contains(id) {
		return nil
	}
	c, ok := g.classes[g.uf.find(id)]
	if !ok {
		panic(fmt.Sprintf("egraph: no class for canonical id %d", g.uf.find(id)))
	}
	return c
}

// EachClass calls f once per canonical class. Iteration order is
// unspecified. f must not mutate the graph.
func (g *EGraph) EachClass(f func(*EClass)) {
	for _, c := range g.classes {
		f(c)
	}
}

// canonicalize returns n with every child replaced by its canonical
// id. Leaves are returned unchanged.
func (g *EGraph) canonicalize(n Node) Node {
	if n.Arity() == 0 {
		return n
	}
	kids := make([]ClassID, n.Arity())
	changed := false
	for i := range kids {
		c := n.Child(i)
		kids[i] = g.uf.find(c)
		if kids[i] != c {
			changed = true
		}
	}
	if !changed {
		return n
	}
	return n.WithChildren(kids)
}

// checkChildren validates that every child id was issued by this graph.
func (g *EGraph) checkChildren(n Node) error {
	for i := 0; i < n.Arity(); i++ {
		if !g.uf.contains(n.Child(i)) {
			return fmt.Errorf("%w: child %d of %q is %d", ErrInvalidID, i, n.Op(), n.Child(i))
		}
	}
	return nil
}

// Lookup resolves a node through the hashcons without inserting it.
// Returns the canonical class id containing the node, if any. The
// graph must be rebuilt for the answer to be authoritative.
func (g *EGraph) Lookup(n Node) (ClassID, bool) {
	if g.checkChildren(n) != nil {
		return InvalidID, false
	}
	id, ok := g.memo.lookup(g.canonicalize(n))
	if !ok {
		return InvalidID, false
	}
	return g.uf.find(id), true
}

// Add inserts a node, canonicalizing its children first. If a
// structurally equal node already exists anywhere in the graph, the
// existing class id is returned — this is the structural-sharing
// guarantee. Otherwise a fresh class is allocated, registered as a
// parent of each child class, given its analysis value, and entered
// into the hashcons.
func (g *EGraph) Add(n Node) (ClassID, error) {
	if err := g.checkChildren(n); err != nil {
		return InvalidID, err
	}
	canon := g.canonicalize(n)
	if id, ok := g.memo.lookup(canon); ok {
		return g.uf.find(id), nil
	}

	id := g.uf.makeSet()
	cls := &EClass{id: id, nodes: []Node{canon}}
	g.classes[id] = cls
	for i := 0; i < canon.Arity(); i++ {
		child := g.classes[g.uf.find(canon.Child(i))]
		child.parents = append(child.parents, parentRef{node: canon, class: id})
	}
	g.memo.insert(canon, id)
	cls.data = g.analysis.Make(g, canon)

	// Give the analysis a chance to act on the new class immediately;
	// any unions it performs are repaired by the next Rebuild.
	if err := g.analysis.Modify(g, id); err != nil {
		return InvalidID, err
	}
	return g.uf.find(id), nil
}

// AddTerm inserts a finite term bottom-up and returns the class of its
// root. Shared subterms collapse into shared classes.
func (g *EGraph) AddTerm(t *Term) (ClassID, error) {
	kids := make([]ClassID, len(t.Args))
	for i, a := range t.Args {
		id, err := g.AddTerm(a)
		if err != nil {
			return InvalidID, err
		}
		kids[i] = id
	}
	return g.Add(NewENode(t.Op, kids...))
}

// Union asserts that a and b denote the same value. Returns the
// surviving canonical id and whether anything changed. The actual
// congruence repair is deferred: the survivor is marked dirty and
// invariants are restored by the next Rebuild.
//
// A merge-conflict error from the analysis indicates the asserted
// equality contradicts the analysis (see ErrMergeConflict); the graph
// remains usable but the caller's rules are unsound for this input.
func (g *EGraph) Union(a, b ClassID) (ClassID, bool, error) {
	return g.union(a, b, Justification{Kind: JustAsserted})
}

// UnionWithReason is Union carrying an explicit justification for the
// explanation forest. The reason is only retained when explanations
// are enabled.
func (g *EGraph) UnionWithReason(a, b ClassID, reason Justification) (ClassID, bool, error) {
	return g.union(a, b, reason)
}

func (g *EGraph) union(a, b ClassID, reason Justification) (ClassID, bool, error) {
	if !g.uf.contains(a) {
		return InvalidID, false, fmt.Errorf("%w: %d", ErrInvalidID, a)
	}
	if !g.uf.contains(b) {
		return InvalidID, false, fmt.Errorf("%w: %d", ErrInvalidID, b)
	}
	ca, cb := g.uf.find(a), g.uf.find(b)
	if ca == cb {
		return ca, false, nil
	}

	if g.explain != nil {
		// Record the caller's original ids, not the canonical ones: the
		// justification belongs to the endpoints the union was asserted
		// between, and collapsing to canonicals would misattribute it.
		g.explain.record(a, b, reason)
	}

	root, absorbed := g.uf.union(ca, cb)
	rc := g.classes[root]
	ac, ok := g.classes[absorbed]
	if rc == nil || !ok {
		panic(fmt.Sprintf("egraph: union lost class storage for %d/%d", root, absorbed))
	}
	rc.nodes = append(rc.nodes, ac.nodes...)
	rc.parents = append(rc.parents, ac.parents...)
	delete(g.classes, absorbed)

	merged, _, err := g.analysis.Merge(rc.data, ac.data)
	if err != nil {
		return InvalidID, false, fmt.Errorf("%w: classes %d and %d: %v", ErrMergeConflict, ca, cb, err)
	}
	rc.data = merged

	g.dirty = append(g.dirty, root)
	g.unions++
	return root, true, nil
}

// Rebuild drains the dirty set and restores the hashcons, congruence,
// and analysis invariants, looping until no repair dirties anything
// further. Calling Rebuild on a clean graph does no work.
func (g *EGraph) Rebuild() error {
	for len(g.dirty) > 0 {
		todo := g.dirty
		g.dirty = nil
		repaired := make(map[ClassID]bool, len(todo))
		for _, id := range todo {
			c := g.uf.find(id)
			if repaired[c] {
				continue
			}
			repaired[c] = true
			if err := g.repair(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// repair restores invariants around one dirty class: it re-inserts the
// class's parent nodes into the hashcons under their new canonical
// children, unions parents that have become congruent, deduplicates
// the parent list and the member node list, refreshes parent analysis
// values, and finally runs the analysis Modify hook.
func (g *EGraph) repair(id ClassID) error {
	cls, ok := g.classes[id]
	if !ok {
		panic(fmt.Sprintf("egraph: repair of missing class %d", id))
	}

	// Pass 1: re-key parents in the hashcons. Two parents that
	// canonicalize to the same node witness a congruence; union their
	// classes.
	oldParents := cls.parents
	for _, p := range oldParents {
		g.memo.remove(p.node)
		canon := g.canonicalize(p.node)
		pclass := g.uf.find(p.class)
		if existing, ok := g.memo.lookup(canon); ok {
			ec := g.uf.find(existing)
			if ec != pclass {
				merged, _, err := g.union(ec, pclass, Justification{Kind: JustCongruence})
				if err != nil {
					return err
				}
				pclass = merged
			}
		}
		g.memo.insert(canon, pclass)
	}

	// The unions above may have absorbed this class into another; the
	// survivor is dirty and will be repaired in a later round, so
	// continue with whatever now holds the storage.
	id = g.uf.find(id)
	cls = g.classes[id]
	if cls == nil {
		panic(fmt.Sprintf("egraph: repair lost class %d", id))
	}

	// Pass 2: deduplicate parents under canonical children and refresh
	// their analysis values. Structural duplicates that still sit in
	// different classes are congruent and get unioned here.
	// Unions below can re-enter and append fresh parents to this very
	// class; work from a snapshot and splice any late arrivals back at
	// the end (the union marked the class dirty, so they get deduped
	// on the next repair).
	snapshot := cls.parents
	cls.parents = nil
	seen := newNodeSet()
	newParents := make([]parentRef, 0, len(snapshot))
	for _, p := range snapshot {
		canon := g.canonicalize(p.node)
		pclass := g.uf.find(p.class)
		if prev, dup := seen.add(canon, pclass); dup {
			if prev != pclass {
				if _, _, err := g.union(prev, pclass, Justification{Kind: JustCongruence}); err != nil {
					return err
				}
			}
			continue
		}
		newParents = append(newParents, parentRef{node: canon, class: pclass})

		pcls := g.classes[g.uf.find(pclass)]
		merged, changed, err := g.analysis.Merge(pcls.data, g.analysis.Make(g, canon))
		if err != nil {
			return fmt.Errorf("%w: class %d: %v", ErrMergeConflict, pclass, err)
		}
		pcls.data = merged
		if changed {
			g.dirty = append(g.dirty, pclass)
		}
	}
	if cur := g.uf.find(id); cur != id {
		// A union above absorbed this class while its parent list was
		// detached. Hand the rebuilt list to the survivor, which is
		// dirty and will finish the repair.
		sc := g.classes[cur]
		sc.parents = append(sc.parents, newParents...)
		return nil
	}
	cls.parents = append(newParents, cls.parents...)

	// Pass 3: canonicalize and deduplicate the member nodes.
	members := newNodeSet()
	newNodes := cls.nodes[:0]
	for _, n := range cls.nodes {
		canon := g.canonicalize(n)
		if _, dup := members.add(canon, id); dup {
			continue
		}
		newNodes = append(newNodes, canon)
	}
	cls.nodes = newNodes

	// Analysis hook; explicitly re-entrant, any mutation re-dirties.
	return g.analysis.Modify(g, id)
}

// nodeSet is a small structural-identity set used during repair.
type nodeSet struct {
	buckets map[uint64][]nodeSetEntry
}

type nodeSetEntry struct {
	node  Node
	class ClassID
}

func newNodeSet() *nodeSet {
	return &nodeSet{buckets: make(map[uint64][]nodeSetEntry)}
}

// add inserts node -> class and reports whether a structurally equal
// node was already present, returning the class recorded for it.
func (s *nodeSet) add(n Node, class ClassID) (ClassID, bool) {
	h := hashNode(n)
	for _, e := range s.buckets[h] {
		if sameNode(e.node, n) {
			return e.class, true
		}
	}
	s.buckets[h] = append(s.buckets[h], nodeSetEntry{node: n, class: class})
	return InvalidID, false
}
