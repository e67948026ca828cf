// Package egraph rewrite rules.
// A rewrite rule is a pair of interchangeable capabilities — a
// Searcher that finds (class, substitution) matches and an Applier
// that materializes the replacement — rather than a closed pattern =>
// pattern form. The pattern-based implementations below cover the
// common case; callers compose custom searchers and appliers for
// anything richer (dynamic right-hand sides, analysis-driven rules).
package egraph

import "fmt"

// Match is one rewrite opportunity: the class the pattern matched and
// the variable bindings it matched under.
type Match struct {
	Class ClassID
	Subst Subst
}

// Searcher finds every match of a rule across a rebuilt e-graph.
type Searcher interface {
	// Search returns all matches in the current graph. The graph must
	// not be mutated during the call.
	Search(g *EGraph) ([]Match, error)
}

// Applier materializes a rule's replacement for one match, returning
// the class id the Runner should union with the matched class.
// Returning ok=false skips the match (how guards veto applications).
type Applier interface {
	Apply(g *EGraph, m Match) (id ClassID, ok bool, err error)
}

// Guard vetoes individual matches. Guards run at apply time against
// the then-current graph.
type Guard func(g *EGraph, m Match) bool

// Rewrite is a named rule: a Searcher, an Applier, and an optional
// Guard consulted before the applier runs.
type Rewrite struct {
	Name     string
	Searcher Searcher
	Applier  Applier
	Guard    Guard
}

// ParseRewrite builds a pattern-to-pattern rule from textual lhs and
// rhs. Every variable the rhs mentions must be bound by the lhs; an
// unbound rhs variable is a compile error, since applying it would
// have no class to substitute.
func ParseRewrite(name, lhs, rhs string) (*Rewrite, error) {
	search, err := ParsePattern(lhs)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", name, err)
	}
	rhsTerm, err := parseSexpr(rhs)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w: %v", name, ErrPatternCompile, err)
	}
	bound := make(map[string]bool, len(search.vars))
	for _, v := range search.vars {
		bound[v] = true
	}
	if err := checkTemplateVars(rhsTerm, bound); err != nil {
		return nil, fmt.Errorf("rule %s: %w", name, err)
	}
	return &Rewrite{
		Name:     name,
		Searcher: &PatternSearcher{Pattern: search},
		Applier:  &TemplateApplier{Template: rhsTerm},
	}, nil
}

// MustParseRewrite is ParseRewrite for known-good rules; it panics on
// error.
func MustParseRewrite(name, lhs, rhs string) *Rewrite {
	rw, err := ParseRewrite(name, lhs, rhs)
	if err != nil {
		panic(err)
	}
	return rw
}

// WithGuard returns a copy of the rule carrying the given guard.
func (r *Rewrite) WithGuard(guard Guard) *Rewrite {
	out := *r
	out.Guard = guard
	return &out
}

func checkTemplateVars(t *Term, bound map[string]bool) error {
	if isPatternVar(t.Op) {
		if len(t.Args) > 0 {
			return fmt.Errorf("%w: variable %s used in operator position", ErrPatternCompile, t.Op)
		}
		if !bound[t.Op[1:]] {
			return fmt.Errorf("%w: right-hand side variable %s is not bound by the left-hand side",
				ErrPatternCompile, t.Op)
		}
		return nil
	}
	for _, a := range t.Args {
		if err := checkTemplateVars(a, bound); err != nil {
			return err
		}
	}
	return nil
}

// PatternSearcher searches a compiled pattern against every canonical
// class.
type PatternSearcher struct {
	Pattern *Pattern
}

// Search runs the matching machine over each class of a rebuilt graph
// and collects every (class, substitution) pair.
func (s *PatternSearcher) Search(g *EGraph) ([]Match, error) {
	if !g.Clean() {
		return nil, ErrNotRebuilt
	}
	var out []Match
	for id := range g.classes {
		m := newMachine(g, s.Pattern)
		m.run(id, func(sub Subst) bool {
			out = append(out, Match{Class: id, Subst: sub})
			return true
		})
	}
	return out, nil
}

// TemplateApplier instantiates a right-hand-side template under the
// match's substitution and inserts it into the graph.
type TemplateApplier struct {
	Template *Term
}

// Apply inserts the instantiated template, returning the class to
// union with the matched class.
func (a *TemplateApplier) Apply(g *EGraph, m Match) (ClassID, bool, error) {
	id, err := instantiate(g, a.Template, m.Subst)
	if err != nil {
		return InvalidID, false, err
	}
	return id, true, nil
}

// instantiate adds a template bottom-up, substituting variables with
// their matched classes.
func instantiate(g *EGraph, t *Term, sub Subst) (ClassID, error) {
	if isPatternVar(t.Op) {
		id, ok := sub[t.Op[1:]]
		if !ok {
			// ParseRewrite validated templates; reaching this means a
			// hand-built applier used an unchecked template.
			return InvalidID, fmt.Errorf("%w: unbound variable %s at apply time", ErrPatternCompile, t.Op)
		}
		return g.Find(id), nil
	}
	kids := make([]ClassID, len(t.Args))
	for i, a := range t.Args {
		id, err := instantiate(g, a, sub)
		if err != nil {
			return InvalidID, err
		}
		kids[i] = id
	}
	return g.Add(NewENode(t.Op, kids...))
}
