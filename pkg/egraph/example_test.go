package egraph_test

import (
	"context"
	"fmt"

	"github.com/gitrdm/gosaturate/pkg/egraph"
)

// Example demonstrates the full saturate-then-extract workflow:
// rewrite rules prove (* x 2) equal to cheaper forms and extraction
// picks the cheapest representative.
func Example() {
	g := egraph.New(nil)
	root, _ := g.AddTerm(egraph.MustParseTerm("(* x 2)"))

	rules := []*egraph.Rewrite{
		egraph.MustParseRewrite("mul-to-shift", "(* ?a 2)", "(<< ?a 1)"),
	}
	runner := egraph.NewRunner(g, egraph.WithIterLimit(10))
	report, _ := runner.Run(context.Background(), rules...)

	ex, _ := egraph.NewExtractor(g, egraph.OpCost{
		Weights: map[string]float64{"*": 10, "<<": 2},
		Default: 1,
	})
	best, cost, _ := ex.Extract(root)
	fmt.Println(report.StopReason)
	fmt.Println(best, cost)
	// Output:
	// saturated
	// (<< x 1) 4
}

// ExampleEGraph_Union shows congruence closure: equating a and b makes
// f(a) and f(b) equal after the next rebuild.
func ExampleEGraph_Union() {
	g := egraph.New(nil)
	a, _ := g.AddTerm(egraph.MustParseTerm("a"))
	b, _ := g.AddTerm(egraph.MustParseTerm("b"))
	fa, _ := g.AddTerm(egraph.MustParseTerm("(f a)"))
	fb, _ := g.AddTerm(egraph.MustParseTerm("(f b)"))

	g.Union(a, b)
	g.Rebuild()
	fmt.Println(g.Find(fa) == g.Find(fb))
	// Output:
	// true
}

// ExampleEGraph_Explain shows justification tracking: every step of the
// proof that two terms are equal carries the reason it was learned.
func ExampleEGraph_Explain() {
	g := egraph.New(nil)
	g.EnableExplanations()
	a, _ := g.AddTerm(egraph.MustParseTerm("a"))
	b, _ := g.AddTerm(egraph.MustParseTerm("b"))
	c, _ := g.AddTerm(egraph.MustParseTerm("c"))
	g.Union(a, b)
	g.Union(b, c)

	steps, _ := g.Explain(a, c)
	for _, s := range steps {
		fmt.Println(s.Reason)
	}
	// Output:
	// asserted
	// asserted
}

// ExampleConstantFold shows an analysis folding constants as terms are
// inserted.
func ExampleConstantFold() {
	g := egraph.New(egraph.ConstantFold{})
	sum, _ := g.AddTerm(egraph.MustParseTerm("(+ 1 (* 2 3))"))
	g.Rebuild()

	ex, _ := egraph.NewExtractor(g, egraph.ASTSize{})
	best, _, _ := ex.Extract(sum)
	fmt.Println(best)
	// Output:
	// 7
}
