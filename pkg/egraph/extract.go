// Package egraph extraction.
// After saturation the graph holds equivalence classes that may be
// mutually self-referential, so a single bottom-up pass cannot price
// them. The extractor instead runs shortest-path relaxation over the
// hypergraph whose "edges" are whole e-nodes: every class starts at
// infinite cost and passes repeatedly relax each class against its
// member nodes until a full pass improves nothing. Classes still at
// infinity admit no finite term and are unextractable. The final term
// for a root is reconstructed from the stored best-node choices and is
// always finite and acyclic despite the cyclic underlying structure.
package egraph

import (
	"context"
	"fmt"
	"math"

	"github.com/gitrdm/gosaturate/internal/parallel"
)

// CostFunction prices a single node given the current best costs of
// its children. Costs must be non-negative and the combination must be
// monotone: a node's cost may never decrease when a child's cost
// increases. Summable, totally ordered float64 is the cost domain;
// math.Inf(1) means "no finite term known yet".
type CostFunction interface {
	Cost(n Node, costOf func(ClassID) float64) float64
}

// ASTSize prices every node at 1 plus its children: extraction
// minimizes term size.
type ASTSize struct{}

// Cost implements CostFunction.
func (ASTSize) Cost(n Node, costOf func(ClassID) float64) float64 {
	total := 1.0
	for i := 0; i < n.Arity(); i++ {
		total += costOf(n.Child(i))
	}
	return total
}

// ASTDepth prices every node at 1 plus its deepest child: extraction
// minimizes term depth.
type ASTDepth struct{}

// Cost implements CostFunction.
func (ASTDepth) Cost(n Node, costOf func(ClassID) float64) float64 {
	deepest := 0.0
	for i := 0; i < n.Arity(); i++ {
		if c := costOf(n.Child(i)); c > deepest {
			deepest = c
		}
	}
	return 1 + deepest
}

// OpCost prices nodes from a per-operator weight table plus the sum of
// children, defaulting to Default for unlisted operators.
type OpCost struct {
	Weights map[string]float64
	Default float64
}

// Cost implements CostFunction.
func (c OpCost) Cost(n Node, costOf func(ClassID) float64) float64 {
	w, ok := c.Weights[n.Op()]
	if !ok {
		w = c.Default
	}
	for i := 0; i < n.Arity(); i++ {
		w += costOf(n.Child(i))
	}
	return w
}

// bestChoice is the cheapest known representation of one class.
type bestChoice struct {
	node Node
	cost float64
}

// Extractor computes a minimum-cost finite term per class from a
// rebuilt e-graph. Construction runs the relaxation to fixpoint;
// Extract calls then only reconstruct terms, so one Extractor can
// serve many roots. Extractors are read-only over the graph and safe
// for concurrent use once constructed, provided the graph is no
// longer being mutated.
type Extractor struct {
	g      *EGraph
	costFn CostFunction
	best   map[ClassID]bestChoice
}

// NewExtractor prices every class under the cost function. The graph
// must be rebuilt.
func NewExtractor(g *EGraph, costFn CostFunction) (*Extractor, error) {
	if !g.Clean() {
		return nil, ErrNotRebuilt
	}
	if costFn == nil {
		costFn = ASTSize{}
	}
	e := &Extractor{
		g:      g,
		costFn: costFn,
		best:   make(map[ClassID]bestChoice, g.NumClasses()),
	}
	e.relax()
	return e, nil
}

// relax runs rounds of relaxation until a full pass yields no
// improvement.
func (e *Extractor) relax() {
	costOf := func(id ClassID) float64 {
		if b, ok := e.best[e.g.uf.find(id)]; ok {
			return b.cost
		}
		return math.Inf(1)
	}
	for {
		improved := false
		e.g.EachClass(func(c *EClass) {
			curCost := math.Inf(1)
			if cur, ok := e.best[c.id]; ok {
				curCost = cur.cost
			}
			for _, n := range c.nodes {
				if cost := e.costFn.Cost(n, costOf); cost < curCost {
					curCost = cost
					e.best[c.id] = bestChoice{node: n, cost: cost}
					improved = true
				}
			}
		})
		if !improved {
			return
		}
	}
}

// Cost returns the minimum cost priced for a class, or +Inf when no
// finite-cost term exists.
func (e *Extractor) Cost(root ClassID) float64 {
	canon := e.g.Find(root)
	if canon == InvalidID {
		return math.Inf(1)
	}
	if b, ok := e.best[canon]; ok {
		return b.cost
	}
	return math.Inf(1)
}

// Extract reconstructs the minimum-cost finite term for root.
func (e *Extractor) Extract(root ClassID) (*Term, float64, error) {
	canon, err := e.g.CanonicalID(root)
	if err != nil {
		return nil, 0, err
	}
	b, ok := e.best[canon]
	if !ok || math.IsInf(b.cost, 1) {
		return nil, 0, fmt.Errorf("%w: class %d", ErrUnextractable, root)
	}
	visiting := make(map[ClassID]bool)
	term, err := e.buildTerm(canon, visiting)
	if err != nil {
		return nil, 0, err
	}
	return term, b.cost, nil
}

// buildTerm recurses into the stored best-node choices. The visiting
// set guards against a non-monotone cost function producing a cyclic
// choice; with monotone costs it never triggers.
func (e *Extractor) buildTerm(id ClassID, visiting map[ClassID]bool) (*Term, error) {
	if visiting[id] {
		return nil, fmt.Errorf("%w: cyclic best-node choice at class %d (cost function not monotone?)",
			ErrUnextractable, id)
	}
	b := e.best[id]
	if b.node == nil {
		return nil, fmt.Errorf("%w: class %d", ErrUnextractable, id)
	}
	visiting[id] = true
	defer delete(visiting, id)

	term := &Term{Op: b.node.Op()}
	for i := 0; i < b.node.Arity(); i++ {
		arg, err := e.buildTerm(e.g.uf.find(b.node.Child(i)), visiting)
		if err != nil {
			return nil, err
		}
		term.Args = append(term.Args, arg)
	}
	return term, nil
}

// Extracted is one result of a batch extraction.
type Extracted struct {
	Root ClassID
	Term *Term
	Cost float64
	Err  error
}

// ExtractAll extracts many roots concurrently. This is the sanctioned
// concurrent use of an e-graph: extraction is read-only, so once the
// graph is saturated and no longer mutated, independent workers can
// price and rebuild terms in parallel. Results are returned in root
// order; per-root failures land in the Err field rather than aborting
// the batch.
func (e *Extractor) ExtractAll(ctx context.Context, roots []ClassID) ([]Extracted, error) {
	pool := parallel.NewWorkerPool(0)
	defer pool.Shutdown()

	results := make([]Extracted, len(roots))
	done := make(chan int, len(roots))
	for i, root := range roots {
		i, root := i, root
		if err := pool.Submit(ctx, func() {
			term, cost, err := e.Extract(root)
			results[i] = Extracted{Root: root, Term: term, Cost: cost, Err: err}
			done <- i
		}); err != nil {
			return nil, err
		}
	}
	for range roots {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return results, nil
}
