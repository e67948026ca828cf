package egraph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mathRuleset = `
rules:
  - name: commute-add
    lhs: (+ ?x ?y)
    rhs: (+ ?y ?x)
  - name: mul-two
    lhs: (* ?x 2)
    rhs: (<< ?x 1)
    bidirectional: true
limits:
  iterations: 10
  nodes: 5000
  time: 2s
scheduler:
  kind: backoff
  match-limit: 100
  ban-length: 3
`

func TestLoadRuleset(t *testing.T) {
	rs, err := LoadRuleset(strings.NewReader(mathRuleset))
	require.NoError(t, err)

	names := make([]string, len(rs.Rewrites))
	for i, rw := range rs.Rewrites {
		names[i] = rw.Name
	}
	assert.Equal(t, []string{"commute-add", "mul-two", "mul-two-rev"}, names)
	// Iteration, node, and time limits plus the scheduler.
	assert.Len(t, rs.Options, 4)
}

func TestRulesetDrivesRunner(t *testing.T) {
	rs, err := LoadRuleset(strings.NewReader(mathRuleset))
	require.NoError(t, err)

	g := New(nil)
	mul := addTerm(t, g, "(* x 2)")
	shl := addTerm(t, g, "(<< x 1)")

	_, err = NewRunner(g, rs.Options...).Run(context.Background(), rs.Rewrites...)
	require.NoError(t, err)
	assert.Equal(t, g.Find(mul), g.Find(shl))
}

func TestLoadRulesetErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"not yaml", "rules: ["},
		{"missing rule name", "rules:\n  - lhs: (f ?x)\n    rhs: ?x\n"},
		{"unbound rhs variable", "rules:\n  - name: bad\n    lhs: (f ?x)\n    rhs: ?y\n"},
		{"malformed lhs", "rules:\n  - name: bad\n    lhs: ((\n    rhs: ?x\n"},
		{"bad time limit", "rules: []\nlimits:\n  time: soon\n"},
		{"unknown scheduler", "rules: []\nscheduler:\n  kind: lru\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadRuleset(strings.NewReader(tc.src))
			assert.Error(t, err)
		})
	}
}

func TestLoadRulesetFileMissing(t *testing.T) {
	_, err := LoadRulesetFile("does/not/exist.yaml")
	assert.Error(t, err)
}

func TestLoadRulesetDefaults(t *testing.T) {
	rs, err := LoadRuleset(strings.NewReader("rules:\n  - name: id\n    lhs: (f ?x)\n    rhs: (f ?x)\n"))
	require.NoError(t, err)
	assert.Len(t, rs.Rewrites, 1)
	assert.Empty(t, rs.Options)
}
