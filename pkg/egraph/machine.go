// Package egraph matching machine.
// This file executes compiled pattern programs against an e-graph.
// The machine is a small backtracking VM: a register file of class
// ids plus an explicit choice-point stack, so memory is bounded by
// pattern size rather than host call depth. Registers are assigned
// fixed indices at compile time, which means backtracking never needs
// to restore them — re-running an instruction overwrites exactly the
// registers it owns before anything downstream reads them.
package egraph

import "fmt"

// instrOp enumerates machine instructions.
type instrOp int

const (
	// opBind enumerates the member nodes of the class in reg that
	// match symbol/arity, writing each node's children into registers
	// base..base+arity-1. Each matching node is a choice point.
	opBind instrOp = iota

	// opCompare asserts that reg and reg2 hold the same canonical
	// class; required for non-linear patterns.
	opCompare

	// opLookup resolves the ground term directly through the hashcons
	// and asserts it lives in the class held by reg. This prunes the
	// search instead of branching through member nodes.
	opLookup

	// opYield emits a completed substitution from yieldRegs.
	opYield
)

// instr is one machine instruction. Which fields are meaningful
// depends on op; see the opcode comments.
type instr struct {
	op        instrOp
	reg       int
	reg2      int
	symbol    string
	arity     int
	base      int
	term      *Term
	yieldRegs []int
}

func (in instr) String() string {
	switch in.op {
	case opBind:
		return fmt.Sprintf("bind r%d %s/%d -> r%d..", in.reg, in.symbol, in.arity, in.base)
	case opCompare:
		return fmt.Sprintf("compare r%d r%d", in.reg, in.reg2)
	case opLookup:
		return fmt.Sprintf("lookup r%d %s", in.reg, in.term)
	case opYield:
		return fmt.Sprintf("yield %v", in.yieldRegs)
	default:
		return fmt.Sprintf("instr(%d)", int(in.op))
	}
}

// choicePoint records a resumable position: the instruction at pc is
// re-tried starting from alternative idx.
type choicePoint struct {
	pc  int
	idx int
}

// machine executes one pattern program against one root class.
// Execution is depth-first: the stack holds one choice point per
// instruction on the current path, and exhausting an instruction's
// alternatives pops back to the previous one.
type machine struct {
	g    *EGraph
	prog []instr
	vars []string
	regs []ClassID
}

func newMachine(g *EGraph, p *Pattern) *machine {
	return &machine{
		g:    g,
		prog: p.prog,
		vars: p.vars,
		regs: make([]ClassID, p.nRegs),
	}
}

// run enumerates every substitution that makes the pattern match a
// member node of root's class, invoking emit for each. emit returning
// false aborts the search early.
func (m *machine) run(root ClassID, emit func(Subst) bool) {
	m.regs[0] = m.g.uf.find(root)
	stack := []choicePoint{{pc: 0, idx: 0}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		in := m.prog[top.pc]

		switch in.op {
		case opBind:
			nodes := m.g.classes[m.g.uf.find(m.regs[in.reg])].nodes
			matched := false
			for top.idx < len(nodes) {
				n := nodes[top.idx]
				top.idx++
				if n.Op() != in.symbol || n.Arity() != in.arity {
					continue
				}
				for i := 0; i < in.arity; i++ {
					m.regs[in.base+i] = m.g.uf.find(n.Child(i))
				}
				stack = append(stack, choicePoint{pc: top.pc + 1})
				matched = true
				break
			}
			if !matched {
				stack = stack[:len(stack)-1]
			}

		case opCompare:
			if top.idx == 0 && m.g.uf.find(m.regs[in.reg]) == m.g.uf.find(m.regs[in.reg2]) {
				top.idx = 1
				stack = append(stack, choicePoint{pc: top.pc + 1})
			} else {
				stack = stack[:len(stack)-1]
			}

		case opLookup:
			ok := false
			if top.idx == 0 {
				top.idx = 1
				if id, found := m.lookupTerm(in.term); found {
					ok = m.g.uf.find(id) == m.g.uf.find(m.regs[in.reg])
				}
			}
			if ok {
				stack = append(stack, choicePoint{pc: top.pc + 1})
			} else {
				stack = stack[:len(stack)-1]
			}

		case opYield:
			stop := false
			if top.idx == 0 {
				top.idx = 1
				sub := make(Subst, len(m.vars))
				for i, v := range m.vars {
					sub[v] = m.g.uf.find(m.regs[in.yieldRegs[i]])
				}
				stop = !emit(sub)
			}
			if stop {
				return
			}
			// Fall back to the previous choice point for more matches.
			stack = stack[:len(stack)-1]
		}
	}
}

// lookupTerm resolves a ground term through the hashcons without
// inserting anything. Fails if any subterm is absent from the graph.
func (m *machine) lookupTerm(t *Term) (ClassID, bool) {
	kids := make([]ClassID, len(t.Args))
	for i, a := range t.Args {
		id, ok := m.lookupTerm(a)
		if !ok {
			return InvalidID, false
		}
		kids[i] = id
	}
	return m.g.Lookup(NewENode(t.Op, kids...))
}

// SearchClass runs the compiled pattern against a single class,
// returning every substitution under which the pattern matches a
// member node. The graph must be rebuilt.
func (p *Pattern) SearchClass(g *EGraph, root ClassID) ([]Subst, error) {
	if !g.Clean() {
		return nil, ErrNotRebuilt
	}
	if _, err := g.CanonicalID(root); err != nil {
		return nil, err
	}
	var out []Subst
	newMachine(g, p).run(root, func(s Subst) bool {
		out = append(out, s)
		return true
	})
	return out, nil
}
