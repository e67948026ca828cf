// Package egraph rule scheduling.
// Unrestricted saturation is not guaranteed to terminate: a prolific
// rule like commutativity can double the match count every iteration
// and drown the graph. The scheduler is the per-rule policy deciding
// whether a rule may fire in a given iteration; backoff scheduling is
// the primary defense against uncontrolled growth.
package egraph

// Scheduler gates rules per iteration and observes their match
// volume afterward. Implementations are consulted once per rule per
// iteration and may keep per-rule state.
type Scheduler interface {
	// CanApply reports whether the named rule may search and apply in
	// this iteration.
	CanApply(iteration int, rule string) bool

	// RecordMatches informs the scheduler how many matches the rule
	// produced this iteration, after its search ran.
	RecordMatches(iteration int, rule string, matches int)
}

// SimpleScheduler always allows every rule. It is the default.
type SimpleScheduler struct{}

// CanApply always reports true.
func (SimpleScheduler) CanApply(int, string) bool { return true }

// RecordMatches is a no-op.
func (SimpleScheduler) RecordMatches(int, string, int) {}

// BackoffScheduler temporarily bans rules that match too much. A rule
// whose match count exceeds its current threshold is banned for its
// current ban length; each offense doubles both the threshold and the
// next ban length, so persistently prolific rules fire exponentially
// rarely while cheap rules run every iteration.
type BackoffScheduler struct {
	// MatchLimit is the initial per-iteration match threshold.
	MatchLimit int

	// BanLength is the initial ban, in iterations.
	BanLength int

	stats map[string]*backoffStats
}

type backoffStats struct {
	timesBanned int
	bannedUntil int
}

// NewBackoffScheduler creates a backoff scheduler with the default
// threshold of 1000 matches and initial ban of 5 iterations.
func NewBackoffScheduler() *BackoffScheduler {
	return &BackoffScheduler{
		MatchLimit: 1000,
		BanLength:  5,
		stats:      make(map[string]*backoffStats),
	}
}

// WithMatchLimit sets the initial match threshold and returns the
// scheduler for chaining.
func (s *BackoffScheduler) WithMatchLimit(n int) *BackoffScheduler {
	s.MatchLimit = n
	return s
}

// WithBanLength sets the initial ban length and returns the scheduler
// for chaining.
func (s *BackoffScheduler) WithBanLength(n int) *BackoffScheduler {
	s.BanLength = n
	return s
}

func (s *BackoffScheduler) ruleStats(rule string) *backoffStats {
	if s.stats == nil {
		s.stats = make(map[string]*backoffStats)
	}
	st, ok := s.stats[rule]
	if !ok {
		st = &backoffStats{}
		s.stats[rule] = st
	}
	return st
}

// CanApply reports whether the rule's ban, if any, has expired.
func (s *BackoffScheduler) CanApply(iteration int, rule string) bool {
	return iteration >= s.ruleStats(rule).bannedUntil
}

// RecordMatches bans the rule when it exceeds its current threshold,
// doubling threshold and ban length with every repeated offense.
func (s *BackoffScheduler) RecordMatches(iteration int, rule string, matches int) {
	st := s.ruleStats(rule)
	threshold := s.MatchLimit << uint(st.timesBanned)
	if matches <= threshold {
		return
	}
	banLength := s.BanLength << uint(st.timesBanned)
	st.bannedUntil = iteration + 1 + banLength
	st.timesBanned++
}
