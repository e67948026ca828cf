// Package egraph rulesets.
// A ruleset is a YAML file bundling rewrite rules with run limits and
// a scheduler choice, so the CLI and embedding applications can load a
// whole optimization setup from configuration instead of code:
//
//	rules:
//	  - name: commute-add
//	    lhs: (+ ?x ?y)
//	    rhs: (+ ?y ?x)
//	  - name: mul-two
//	    lhs: (* ?x 2)
//	    rhs: (<< ?x 1)
//	    bidirectional: true
//	limits:
//	  iterations: 50
//	  nodes: 20000
//	  time: 10s
//	scheduler:
//	  kind: backoff
//	  match-limit: 500
//	  ban-length: 3
package egraph

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RuleSpec is one rule entry of a ruleset file. Bidirectional rules
// expand into the rule and its reverse (named with a -rev suffix);
// both directions must bind all their variables.
type RuleSpec struct {
	Name          string `yaml:"name"`
	LHS           string `yaml:"lhs"`
	RHS           string `yaml:"rhs"`
	Bidirectional bool   `yaml:"bidirectional"`
}

// LimitsSpec configures runner ceilings. Zero values keep the runner
// defaults.
type LimitsSpec struct {
	Iterations int    `yaml:"iterations"`
	Nodes      int    `yaml:"nodes"`
	Time       string `yaml:"time"`
}

// SchedulerSpec selects the rule scheduler: "simple" (default) or
// "backoff" with optional tuning.
type SchedulerSpec struct {
	Kind       string `yaml:"kind"`
	MatchLimit int    `yaml:"match-limit"`
	BanLength  int    `yaml:"ban-length"`
}

// rulesetFile is the on-disk shape.
type rulesetFile struct {
	Rules     []RuleSpec    `yaml:"rules"`
	Limits    LimitsSpec    `yaml:"limits"`
	Scheduler SchedulerSpec `yaml:"scheduler"`
}

// Ruleset is a loaded, compiled ruleset: the rewrites plus the runner
// options its limits and scheduler translate to.
type Ruleset struct {
	Rewrites []*Rewrite
	Options  []RunnerOption
}

// LoadRuleset parses and compiles a YAML ruleset.
func LoadRuleset(r io.Reader) (*Ruleset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}
	var file rulesetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse ruleset: %w", err)
	}
	return compileRuleset(&file)
}

// LoadRulesetFile is LoadRuleset over a file path.
func LoadRulesetFile(path string) (*Ruleset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ruleset: %w", err)
	}
	defer f.Close()
	return LoadRuleset(f)
}

func compileRuleset(file *rulesetFile) (*Ruleset, error) {
	rs := &Ruleset{}
	for i, spec := range file.Rules {
		if spec.Name == "" {
			return nil, fmt.Errorf("ruleset rule %d: missing name", i)
		}
		rw, err := ParseRewrite(spec.Name, spec.LHS, spec.RHS)
		if err != nil {
			return nil, err
		}
		rs.Rewrites = append(rs.Rewrites, rw)
		if spec.Bidirectional {
			rev, err := ParseRewrite(spec.Name+"-rev", spec.RHS, spec.LHS)
			if err != nil {
				return nil, err
			}
			rs.Rewrites = append(rs.Rewrites, rev)
		}
	}

	if file.Limits.Iterations > 0 {
		rs.Options = append(rs.Options, WithIterLimit(file.Limits.Iterations))
	}
	if file.Limits.Nodes > 0 {
		rs.Options = append(rs.Options, WithNodeLimit(file.Limits.Nodes))
	}
	if file.Limits.Time != "" {
		d, err := time.ParseDuration(file.Limits.Time)
		if err != nil {
			return nil, fmt.Errorf("ruleset limits.time: %w", err)
		}
		rs.Options = append(rs.Options, WithTimeLimit(d))
	}

	switch file.Scheduler.Kind {
	case "", "simple":
		// Runner default.
	case "backoff":
		sched := NewBackoffScheduler()
		if file.Scheduler.MatchLimit > 0 {
			sched.WithMatchLimit(file.Scheduler.MatchLimit)
		}
		if file.Scheduler.BanLength > 0 {
			sched.WithBanLength(file.Scheduler.BanLength)
		}
		rs.Options = append(rs.Options, WithScheduler(sched))
	default:
		return nil, fmt.Errorf("ruleset scheduler.kind: unknown kind %q", file.Scheduler.Kind)
	}
	return rs, nil
}
