// Package egraph exact extraction.
// The relaxation extractor in extract.go minimizes *tree* cost: a
// shared subterm is paid for once per use. When the caller wants the
// globally optimal *DAG* cost — every selected class paid for exactly
// once, the natural objective for code size — extraction becomes a
// selection problem: pick exactly one node per selected class,
// minimizing total node weight, subject to a selected node's children
// also being selected and the selection being acyclic. That is an
// integer program; this file exposes it as a SelectionProblem behind
// the SelectionSolver interface (so an external ILP solver can plug
// in) and ships a native branch-and-bound solver with incumbent
// cutoff, admissible lower bound, and node/time limits.
package egraph

import (
	"context"
	"fmt"
	"math"
	"time"
)

// SelectionNode is one candidate representation of a class in a
// selection problem. Children index into SelectionProblem.Classes.
type SelectionNode struct {
	Node     Node
	Weight   float64
	Children []int
}

// SelectionClass is one class of a selection problem with its
// candidate nodes.
type SelectionClass struct {
	ID    ClassID
	Nodes []SelectionNode
}

// SelectionProblem poses exact extraction: select exactly one node for
// the root class and, transitively, one node for every class a
// selected node's children reach, minimizing the sum of selected node
// weights. Root indexes into Classes.
type SelectionProblem struct {
	Root    int
	Classes []SelectionClass
}

// Selection maps class index to the chosen node index. Classes not
// reached by the root's choice are absent.
type Selection map[int]int

// SelectionSolver solves a SelectionProblem to optimality. A non-nil
// Selection accompanied by an error wrapping ErrLimitReached is a
// valid incumbent whose optimality was not proven.
type SelectionSolver interface {
	Solve(ctx context.Context, p *SelectionProblem) (Selection, float64, error)
}

// NewSelectionProblem builds the selection problem for the classes
// reachable from root. Node weights come from the cost function with
// all child costs pinned to zero, isolating each node's own
// contribution; weights must be non-negative for the solver's bound
// to be admissible. The graph must be rebuilt.
func NewSelectionProblem(g *EGraph, root ClassID, costFn CostFunction) (*SelectionProblem, error) {
	if !g.Clean() {
		return nil, ErrNotRebuilt
	}
	canon, err := g.CanonicalID(root)
	if err != nil {
		return nil, err
	}
	if costFn == nil {
		costFn = ASTSize{}
	}
	zero := func(ClassID) float64 { return 0 }

	p := &SelectionProblem{}
	index := make(map[ClassID]int)
	var visit func(id ClassID) int
	visit = func(id ClassID) int {
		if i, ok := index[id]; ok {
			return i
		}
		i := len(p.Classes)
		index[id] = i
		p.Classes = append(p.Classes, SelectionClass{ID: id})
		for _, n := range g.classes[id].nodes {
			sn := SelectionNode{Node: n, Weight: costFn.Cost(n, zero)}
			for c := 0; c < n.Arity(); c++ {
				sn.Children = append(sn.Children, visit(g.uf.find(n.Child(c))))
			}
			p.Classes[i].Nodes = append(p.Classes[i].Nodes, sn)
		}
		return i
	}
	p.Root = visit(canon)
	return p, nil
}

// BranchBoundSolver is the built-in SelectionSolver: depth-first
// branch and bound over acyclic selections. Cycles are excluded during
// search by rejecting candidate nodes whose children point back into a
// class still being expanded, so every enumerated selection already
// admits a topological order.
type BranchBoundSolver struct {
	// NodeLimit caps candidate expansions; 0 means unlimited. When the
	// limit trips, the best incumbent so far is returned together with
	// an error wrapping ErrLimitReached.
	NodeLimit int

	// TimeLimit caps wall-clock time; 0 means unlimited.
	TimeLimit time.Duration
}

type classStatus int8

const (
	statusFresh classStatus = iota
	statusOpen
	statusClosed
)

type bbState struct {
	prob      *SelectionProblem
	ctx       context.Context
	deadline  time.Time
	nodeLimit int

	status   []classStatus
	chosen   []int
	minW     []float64 // cheapest node weight per class, for the bound
	expanded int
	hitLimit bool

	bestCost float64
	bestSel  Selection
}

// Solve runs the search. With no limits configured the result is the
// global optimum; infeasible problems (no acyclic selection for the
// root) report ErrUnextractable.
func (s *BranchBoundSolver) Solve(ctx context.Context, p *SelectionProblem) (Selection, float64, error) {
	st := &bbState{
		prob:      p,
		ctx:       ctx,
		nodeLimit: s.NodeLimit,
		status:    make([]classStatus, len(p.Classes)),
		chosen:    make([]int, len(p.Classes)),
		minW:      make([]float64, len(p.Classes)),
		bestCost:  math.Inf(1),
	}
	if s.TimeLimit > 0 {
		st.deadline = time.Now().Add(s.TimeLimit)
	}
	for i, c := range p.Classes {
		st.minW[i] = math.Inf(1)
		for _, n := range c.Nodes {
			if n.Weight < st.minW[i] {
				st.minW[i] = n.Weight
			}
		}
	}

	st.resolve([]int{p.Root}, 0, 0, func(total float64) {
		if total < st.bestCost {
			st.bestCost = total
			st.bestSel = st.snapshot()
		}
	})

	if err := ctx.Err(); err != nil {
		if st.bestSel != nil {
			return st.bestSel, st.bestCost, fmt.Errorf("%w: %v", ErrLimitReached, err)
		}
		return nil, 0, err
	}
	if st.bestSel == nil {
		if st.hitLimit {
			return nil, 0, fmt.Errorf("%w: no incumbent found", ErrLimitReached)
		}
		return nil, 0, fmt.Errorf("%w: class %d", ErrUnextractable, p.Classes[p.Root].ID)
	}
	if st.hitLimit {
		return st.bestSel, st.bestCost, fmt.Errorf("%w: optimality not proven", ErrLimitReached)
	}
	return st.bestSel, st.bestCost, nil
}

func (st *bbState) snapshot() Selection {
	sel := make(Selection)
	for i, status := range st.status {
		if status == statusClosed {
			sel[i] = st.chosen[i]
		}
	}
	return sel
}

func (st *bbState) stop() bool {
	if st.hitLimit || st.ctx.Err() != nil {
		return true
	}
	if st.nodeLimit > 0 && st.expanded >= st.nodeLimit {
		st.hitLimit = true
		return true
	}
	if !st.deadline.IsZero() && time.Now().After(st.deadline) {
		st.hitLimit = true
		return true
	}
	return false
}

// resolve chooses nodes for classes[i:], accumulating acc, and calls
// done once every listed class (and its selected descendants) is
// closed. Classes currently open are ancestors in the expansion; a
// candidate reaching one would close a cycle and is skipped.
func (st *bbState) resolve(classes []int, i int, acc float64, done func(float64)) {
	if st.stop() {
		return
	}
	if i == len(classes) {
		done(acc)
		return
	}
	c := classes[i]
	switch st.status[c] {
	case statusClosed:
		// Already selected and paid for on another path through the DAG.
		st.resolve(classes, i+1, acc, done)
		return
	case statusOpen:
		return
	}

	st.status[c] = statusOpen
	for ni, n := range st.prob.Classes[c].Nodes {
		cost := acc + n.Weight
		if cost+st.bound(n.Children) >= st.bestCost {
			continue
		}
		st.expanded++
		if st.stop() {
			break
		}
		st.chosen[c] = ni
		st.resolve(n.Children, 0, cost, func(sub float64) {
			st.status[c] = statusClosed
			st.resolve(classes, i+1, sub, done)
			st.status[c] = statusOpen
		})
	}
	st.status[c] = statusFresh
}

// bound is an admissible lower bound on the additional cost of the
// given children: every fresh child must pay at least its cheapest
// node.
func (st *bbState) bound(children []int) float64 {
	total := 0.0
	for _, c := range children {
		if st.status[c] == statusFresh {
			total += st.minW[c]
		}
	}
	return total
}

// ExactExtractor extracts the globally cheapest DAG-cost term for a
// root class by solving the selection problem.
type ExactExtractor struct {
	g      *EGraph
	costFn CostFunction
	solver SelectionSolver
}

// NewExactExtractor creates an exact extractor. A nil solver selects
// the built-in unlimited BranchBoundSolver; a nil cost function
// selects ASTSize.
func NewExactExtractor(g *EGraph, costFn CostFunction, solver SelectionSolver) *ExactExtractor {
	if costFn == nil {
		costFn = ASTSize{}
	}
	if solver == nil {
		solver = &BranchBoundSolver{}
	}
	return &ExactExtractor{g: g, costFn: costFn, solver: solver}
}

// Extract solves for root and reconstructs the selected term. The
// returned cost is the DAG cost: the sum of each selected node's
// weight, counted once per class.
func (e *ExactExtractor) Extract(ctx context.Context, root ClassID) (*Term, float64, error) {
	p, err := NewSelectionProblem(e.g, root, e.costFn)
	if err != nil {
		return nil, 0, err
	}
	sel, cost, err := e.solver.Solve(ctx, p)
	if sel == nil {
		return nil, 0, err
	}
	term, buildErr := buildSelected(p, sel, p.Root)
	if buildErr != nil {
		return nil, 0, buildErr
	}
	// err may carry ErrLimitReached for an unproven incumbent.
	return term, cost, err
}

// buildSelected reconstructs the term a selection denotes. Solvers
// guarantee acyclic selections, so recursion terminates; a selection
// missing a needed class indicates a solver bug and fails loudly.
func buildSelected(p *SelectionProblem, sel Selection, class int) (*Term, error) {
	ni, ok := sel[class]
	if !ok {
		return nil, fmt.Errorf("egraph: selection is missing class %d", p.Classes[class].ID)
	}
	n := p.Classes[class].Nodes[ni]
	term := &Term{Op: n.Node.Op()}
	for _, child := range n.Children {
		arg, err := buildSelected(p, sel, child)
		if err != nil {
			return nil, err
		}
		term.Args = append(term.Args, arg)
	}
	return term, nil
}
