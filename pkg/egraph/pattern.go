// Package egraph patterns.
// A pattern is a term tree whose leaves may be ?-sigil variables,
// possibly repeated. Patterns are compiled once into a linear
// instruction program for the backtracking machine in machine.go; the
// same program is then re-executed every saturation iteration against
// the changing e-graph, so compilation cost is paid once per rule, not
// once per search.
//
// Compilation walks the pattern breadth-first, allocating one machine
// register per pattern position:
//   - an operator node becomes a bind instruction that enumerates the
//     matching member nodes of the class in its register and spills
//     their children into fresh registers
//   - a fully ground subtree becomes a lookup instruction that resolves
//     the subtree through the hashcons instead of branching
//   - the first occurrence of a variable claims its register; each
//     repeated occurrence becomes a compare instruction, which is what
//     makes non-linear patterns like (* ?x ?x) work
//   - a final yield instruction emits the completed substitution
package egraph

import (
	"fmt"
	"sort"
)

// Pattern is a compiled pattern ready for matching. Build one with
// ParsePattern or CompilePattern.
type Pattern struct {
	src   *Term
	vars  []string
	prog  []instr
	nRegs int
}

// Vars returns the pattern's variables in first-occurrence order,
// without the ? sigil.
func (p *Pattern) Vars() []string {
	out := make([]string, len(p.vars))
	copy(out, p.vars)
	return out
}

// String returns the pattern's source form.
func (p *Pattern) String() string { return p.src.String() }

// ParsePattern parses and compiles a pattern from the textual syntax.
// Variables use the ? sigil: (+ ?x ?y). Malformed patterns fail here
// with ErrPatternCompile: a variable in operator position, as in
// (?f ?x), is the classic case.
func ParsePattern(input string) (*Pattern, error) {
	term, err := parseSexpr(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrPatternCompile, input, err)
	}
	return CompilePattern(term)
}

// MustParsePattern is ParsePattern for known-good literals; it panics
// on error.
func MustParsePattern(input string) *Pattern {
	p, err := ParsePattern(input)
	if err != nil {
		panic(err)
	}
	return p
}

// CompilePattern compiles a pattern given as a term tree whose ?-sigil
// atoms are variables.
func CompilePattern(src *Term) (*Pattern, error) {
	if err := checkPattern(src); err != nil {
		return nil, err
	}
	c := &patternCompiler{
		varRegs: make(map[string]int),
		nextReg: 1,
	}
	c.todo = append(c.todo, compileItem{reg: 0, pat: src})
	for len(c.todo) > 0 {
		item := c.todo[0]
		c.todo = c.todo[1:]
		c.compileOne(item)
	}

	p := &Pattern{src: src, vars: c.varOrder, nRegs: c.nextReg}
	yieldRegs := make([]int, len(c.varOrder))
	for i, v := range c.varOrder {
		yieldRegs[i] = c.varRegs[v]
	}
	p.prog = append(c.prog, instr{op: opYield, yieldRegs: yieldRegs})
	return p, nil
}

// checkPattern rejects malformed patterns: variables in operator
// position (a variable applied to arguments), the bare "?" atom, and
// a variable used with inconsistent roles across occurrences.
func checkPattern(t *Term) error {
	if isPatternVar(t.Op) && len(t.Args) > 0 {
		return fmt.Errorf("%w: variable %s used in operator position", ErrPatternCompile, t.Op)
	}
	if t.Op == "?" {
		return fmt.Errorf("%w: bare ? is not a valid variable", ErrPatternCompile)
	}
	for _, a := range t.Args {
		if err := checkPattern(a); err != nil {
			return err
		}
	}
	return nil
}

type compileItem struct {
	reg int
	pat *Term
}

type patternCompiler struct {
	prog     []instr
	todo     []compileItem
	varRegs  map[string]int
	varOrder []string
	nextReg  int
}

func (c *patternCompiler) compileOne(item compileItem) {
	pat := item.pat
	switch {
	case isPatternVar(pat.Op):
		name := pat.Op[1:]
		if prev, ok := c.varRegs[name]; ok {
			// Repeated variable: assert both registers denote the
			// same class.
			c.prog = append(c.prog, instr{op: opCompare, reg: item.reg, reg2: prev})
			return
		}
		c.varRegs[name] = item.reg
		c.varOrder = append(c.varOrder, name)

	case findPatternVar(pat) == "":
		// Ground subtree: resolve directly through the hashcons
		// instead of enumerating member nodes.
		c.prog = append(c.prog, instr{op: opLookup, reg: item.reg, term: pat})

	default:
		base := c.nextReg
		c.nextReg += len(pat.Args)
		c.prog = append(c.prog, instr{
			op:     opBind,
			reg:    item.reg,
			symbol: pat.Op,
			arity:  len(pat.Args),
			base:   base,
		})
		for i, arg := range pat.Args {
			c.todo = append(c.todo, compileItem{reg: base + i, pat: arg})
		}
	}
}

// Subst maps pattern variable names (without the sigil) to the class
// ids they matched.
type Subst map[string]ClassID

// String renders the substitution with sorted keys for stable output.
func (s Subst) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := "{"
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("?%s=%d", k, int(s[k]))
	}
	return out + "}"
}
