// Package egraph explanation forest.
// The compressing union-find in unionfind.go destroys the provenance
// of a merge, so "why are these two terms equal?" needs a second,
// non-compressing forest that records each union together with its
// justification. Queries walk the two ids' root paths and splice the
// justifications along them. The forest is optional (see
// EGraph.EnableExplanations) and entirely separate from the structure
// used for fast canonical lookup.
package egraph

import (
	"errors"
	"fmt"
)

// ErrNoExplanation reports an Explain call on a graph whose
// explanation tracking is disabled.
var ErrNoExplanation = errors.New("egraph: explanations are not enabled")

// ErrNotEquivalent reports an Explain call for two classes that are
// not (yet) in the same equivalence class.
var ErrNotEquivalent = errors.New("egraph: classes are not equivalent")

// JustKind classifies why a union happened.
type JustKind int

const (
	// JustAsserted marks a union requested directly by the caller.
	JustAsserted JustKind = iota

	// JustRule marks a union performed by the Runner applying a
	// rewrite rule.
	JustRule

	// JustCongruence marks a union inferred by rebuild: the two
	// classes contained structurally equal nodes after canonicalizing
	// children.
	JustCongruence
)

// String returns a short label for the kind.
func (k JustKind) String() string {
	switch k {
	case JustAsserted:
		return "asserted"
	case JustRule:
		return "rule"
	case JustCongruence:
		return "congruence"
	default:
		return fmt.Sprintf("JustKind(%d)", int(k))
	}
}

// Justification records why two classes were unioned: a caller
// assertion, a named rewrite rule with the substitution it fired
// under, or congruence inferred during rebuild.
type Justification struct {
	Kind  JustKind
	Rule  string
	Subst map[string]ClassID
}

// String renders the justification for reports.
func (j Justification) String() string {
	if j.Kind == JustRule {
		return fmt.Sprintf("rule %s", j.Rule)
	}
	return j.Kind.String()
}

// ProofStep is one edge of an explanation: the classes From and To
// were unioned for Reason. A full explanation is a chain of steps
// connecting the two queried ids.
type ProofStep struct {
	From   ClassID
	To     ClassID
	Reason Justification
}

// explainEdge points from an id toward the root of its proof tree.
type explainEdge struct {
	to   ClassID
	just Justification
}

// explainForest is the uncompressed union forest. Each union re-roots
// one side's tree and hangs it under the other, so every recorded
// union remains a single labelled edge forever.
type explainForest struct {
	parent map[ClassID]explainEdge
}

func newExplainForest() *explainForest {
	return &explainForest{parent: make(map[ClassID]explainEdge)}
}

// reroot reverses the edges along x's root path so that x becomes the
// root of its tree, preserving edge labels.
func (f *explainForest) reroot(x ClassID) {
	var prev ClassID
	var prevEdge explainEdge
	have := false
	for {
		edge, ok := f.parent[x]
		if have {
			f.parent[x] = explainEdge{to: prev, just: prevEdge.just}
		} else {
			delete(f.parent, x)
		}
		if !ok {
			return
		}
		prev, prevEdge, have = x, edge, true
		x = edge.to
	}
}

// record adds the union of a and b with its justification.
func (f *explainForest) record(a, b ClassID, just Justification) {
	f.reroot(a)
	f.parent[a] = explainEdge{to: b, just: just}
}

// pathToRoot returns the ids along x's root path, x first, and the
// edge leaving each of them (except the root).
func (f *explainForest) pathToRoot(x ClassID) ([]ClassID, []explainEdge) {
	ids := []ClassID{x}
	var edges []explainEdge
	for {
		edge, ok := f.parent[x]
		if !ok {
			return ids, edges
		}
		edges = append(edges, edge)
		x = edge.to
		ids = append(ids, x)
	}
}

// connect produces the proof steps between a and b, which must be in
// the same proof tree.
func (f *explainForest) connect(a, b ClassID) ([]ProofStep, bool) {
	aIDs, aEdges := f.pathToRoot(a)
	bIDs, bEdges := f.pathToRoot(b)

	onA := make(map[ClassID]int, len(aIDs))
	for i, id := range aIDs {
		onA[id] = i
	}

	// Walk b's path until it meets a's.
	meet := -1
	bStop := 0
	for i, id := range bIDs {
		if j, ok := onA[id]; ok {
			meet, bStop = j, i
			break
		}
	}
	if meet == -1 {
		return nil, false
	}

	steps := make([]ProofStep, 0, meet+bStop)
	for i := 0; i < meet; i++ {
		steps = append(steps, ProofStep{From: aIDs[i], To: aIDs[i+1], Reason: aEdges[i].just})
	}
	// The b side is traversed toward b, so its edges flip.
	for i := bStop - 1; i >= 0; i-- {
		steps = append(steps, ProofStep{From: bIDs[i+1], To: bIDs[i], Reason: bEdges[i].just})
	}
	return steps, true
}

// Explain returns the chain of recorded unions connecting a and b.
// Requires EnableExplanations to have been active when the relevant
// unions happened. The graph need not be rebuilt: any two ids that
// share a canonical class can be explained.
func (g *EGraph) Explain(a, b ClassID) ([]ProofStep, error) {
	if g.explain == nil {
		return nil, ErrNoExplanation
	}
	ca, err := g.CanonicalID(a)
	if err != nil {
		return nil, err
	}
	cb, err := g.CanonicalID(b)
	if err != nil {
		return nil, err
	}
	if ca != cb {
		return nil, fmt.Errorf("%w: %d and %d", ErrNotEquivalent, a, b)
	}
	if a == b {
		return nil, nil
	}
	steps, ok := g.explain.connect(a, b)
	if !ok {
		// Equivalent per the union-find but not connected in the
		// forest: the unions predate EnableExplanations.
		return nil, fmt.Errorf("%w: unions of %d and %d were not tracked", ErrNoExplanation, a, b)
	}
	return steps, nil
}
