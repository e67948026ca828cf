// Package egraph saturation runner.
// The Runner drives the search -> apply -> rebuild loop to a fixpoint
// or a resource limit. Its key guarantee is phase separation: all
// matches of all eligible rules are collected against a frozen
// snapshot of the graph before any is applied, so the outcome of an
// iteration does not depend on the order matches are applied — no
// match is invalidated mid-scan by another match's side effects.
// Interference between rules is deferred to the next iteration.
//
// The Runner is the sole mutator while running. Cancellation is
// cooperative and coarse: the context and the stop hooks are checked
// once per iteration boundary, so cancellation latency is bounded by
// one full iteration. A run that stops on a limit still leaves a
// valid, rebuilt, extractable e-graph.
package egraph

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StopReason says why a run ended. The Runner is a state machine over
// iterations; it is Running until exactly one of these fires, checked
// once per iteration boundary, and terminal from then on.
type StopReason int

const (
	// Saturated: an iteration performed no union; the graph is at a
	// fixpoint and further iterations would change nothing.
	Saturated StopReason = iota

	// IterLimitReached: the configured iteration ceiling was hit.
	IterLimitReached

	// NodeLimitReached: the graph grew past the configured node count.
	NodeLimitReached

	// TimeLimitReached: the configured wall-clock budget was spent.
	TimeLimitReached

	// Stopped: a hook returned an error or the context was cancelled;
	// Report.StopMessage carries the reason.
	Stopped
)

// String returns the reason's name.
func (r StopReason) String() string {
	switch r {
	case Saturated:
		return "saturated"
	case IterLimitReached:
		return "iteration limit reached"
	case NodeLimitReached:
		return "node limit reached"
	case TimeLimitReached:
		return "time limit reached"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Iteration is the statistics record of one saturation iteration.
type Iteration struct {
	// Index is the zero-based iteration number.
	Index int

	// Classes and Nodes are the graph size after this iteration's
	// rebuild.
	Classes int
	Nodes   int

	// Matches and Applied count, per rule, the matches found and the
	// applications that actually changed the graph.
	Matches map[string]int
	Applied map[string]int

	// Phase timings.
	SearchTime  time.Duration
	ApplyTime   time.Duration
	RebuildTime time.Duration
}

// Report is the structured result of a run. Limits are reported here,
// never silently dropped: a run that stopped on a limit still holds a
// meaningful e-graph and a full iteration history.
type Report struct {
	StopReason  StopReason
	StopMessage string
	Iterations  []Iteration
	TotalTime   time.Duration
}

// Hook runs once per iteration boundary before searching. Returning a
// non-nil error stops the run with reason Stopped and the error text
// as the message.
type Hook func(r *Runner) error

// RunnerOption configures a Runner, in the usual functional-option
// style.
type RunnerOption func(*Runner)

// WithIterLimit caps the number of iterations. Default 30.
func WithIterLimit(n int) RunnerOption {
	return func(r *Runner) { r.iterLimit = n }
}

// WithNodeLimit caps the e-graph's node count. Default 10000.
func WithNodeLimit(n int) RunnerOption {
	return func(r *Runner) { r.nodeLimit = n }
}

// WithTimeLimit caps the run's wall-clock time. Default 5s.
func WithTimeLimit(d time.Duration) RunnerOption {
	return func(r *Runner) { r.timeLimit = d }
}

// WithScheduler installs a rule scheduler. Default SimpleScheduler.
func WithScheduler(s Scheduler) RunnerOption {
	return func(r *Runner) { r.scheduler = s }
}

// WithHook appends an iteration-boundary hook.
func WithHook(h Hook) RunnerOption {
	return func(r *Runner) { r.hooks = append(r.hooks, h) }
}

// WithLogger installs a zap logger for per-iteration progress.
// Default is a no-op logger.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithExplanations enables justification tracking on the underlying
// graph so rule applications can later be explained.
func WithExplanations() RunnerOption {
	return func(r *Runner) { r.graph.EnableExplanations() }
}

// Runner drives equality saturation over one e-graph. Create with
// NewRunner, run once with Run; a Runner is not reusable across runs.
type Runner struct {
	graph     *EGraph
	iterLimit int
	nodeLimit int
	timeLimit time.Duration
	scheduler Scheduler
	hooks     []Hook
	logger    *zap.Logger

	iterations []Iteration
}

// NewRunner creates a runner over g with the given options.
func NewRunner(g *EGraph, opts ...RunnerOption) *Runner {
	r := &Runner{
		graph:     g,
		iterLimit: 30,
		nodeLimit: 10000,
		timeLimit: 5 * time.Second,
		scheduler: SimpleScheduler{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Graph returns the e-graph the runner mutates.
func (r *Runner) Graph() *EGraph { return r.graph }

// Iterations returns the statistics recorded so far. Useful from
// hooks while the run is in flight.
func (r *Runner) Iterations() []Iteration { return r.iterations }

// ruleMatches pairs a rule with the matches collected for it during
// the search phase.
type ruleMatches struct {
	rule    *Rewrite
	matches []Match
}

// Run executes the saturation loop with the given rules until
// saturation, a limit, a hook stop, or context cancellation.
//
// Run returns an error only for hard failures: a merge conflict, a
// searcher or applier error. Hitting a limit is a normal outcome
// reported through Report.StopReason.
func (r *Runner) Run(ctx context.Context, rewrites ...*Rewrite) (*Report, error) {
	start := time.Now()
	report := &Report{}
	finish := func(reason StopReason, msg string) (*Report, error) {
		report.StopReason = reason
		report.StopMessage = msg
		report.Iterations = r.iterations
		report.TotalTime = time.Since(start)
		r.logger.Info("saturation finished",
			zap.Stringer("reason", reason),
			zap.Int("iterations", len(r.iterations)),
			zap.Int("classes", r.graph.NumClasses()),
			zap.Int("nodes", r.graph.NumNodes()))
		return report, nil
	}

	// Setup unions may still be pending.
	if err := r.graph.Rebuild(); err != nil {
		return nil, err
	}

	for iter := 0; ; iter++ {
		// Termination checks, once per iteration boundary.
		if err := ctx.Err(); err != nil {
			return finish(Stopped, err.Error())
		}
		if iter >= r.iterLimit {
			return finish(IterLimitReached, "")
		}
		if r.graph.NumNodes() >= r.nodeLimit {
			return finish(NodeLimitReached, "")
		}
		if time.Since(start) >= r.timeLimit {
			return finish(TimeLimitReached, "")
		}
		for _, h := range r.hooks {
			if err := h(r); err != nil {
				return finish(Stopped, err.Error())
			}
		}

		it := Iteration{
			Index:   iter,
			Matches: make(map[string]int, len(rewrites)),
			Applied: make(map[string]int, len(rewrites)),
		}
		unionsBefore := r.graph.UnionCount()

		// Search phase: collect every match of every eligible rule
		// against the frozen graph before applying any.
		searchStart := time.Now()
		collected := make([]ruleMatches, 0, len(rewrites))
		for _, rw := range rewrites {
			if !r.scheduler.CanApply(iter, rw.Name) {
				continue
			}
			matches, err := rw.Searcher.Search(r.graph)
			if err != nil {
				return nil, err
			}
			r.scheduler.RecordMatches(iter, rw.Name, len(matches))
			it.Matches[rw.Name] = len(matches)
			collected = append(collected, ruleMatches{rule: rw, matches: matches})
		}
		it.SearchTime = time.Since(searchStart)

		// Apply phase: insert each right-hand side and union it with
		// its matched class.
		applyStart := time.Now()
		for _, rm := range collected {
			for _, m := range rm.matches {
				if rm.rule.Guard != nil && !rm.rule.Guard(r.graph, m) {
					continue
				}
				id, ok, err := rm.rule.Applier.Apply(r.graph, m)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				_, changed, err := r.graph.UnionWithReason(id, m.Class, Justification{
					Kind:  JustRule,
					Rule:  rm.rule.Name,
					Subst: m.Subst,
				})
				if err != nil {
					return nil, err
				}
				if changed {
					it.Applied[rm.rule.Name]++
				}
			}
		}
		it.ApplyTime = time.Since(applyStart)

		// One rebuild after all applications.
		rebuildStart := time.Now()
		if err := r.graph.Rebuild(); err != nil {
			return nil, err
		}
		it.RebuildTime = time.Since(rebuildStart)

		it.Classes = r.graph.NumClasses()
		it.Nodes = r.graph.NumNodes()
		r.iterations = append(r.iterations, it)
		r.logger.Debug("iteration complete",
			zap.Int("iteration", iter),
			zap.Int("classes", it.Classes),
			zap.Int("nodes", it.Nodes),
			zap.Duration("search", it.SearchTime),
			zap.Duration("apply", it.ApplyTime),
			zap.Duration("rebuild", it.RebuildTime))

		if r.graph.UnionCount() == unionsBefore {
			return finish(Saturated, "")
		}
	}
}
