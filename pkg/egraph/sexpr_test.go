package egraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTerm(t *testing.T) {
	t.Run("atom", func(t *testing.T) {
		term, err := ParseTerm("x")
		require.NoError(t, err)
		assert.Equal(t, "x", term.Op)
		assert.Empty(t, term.Args)
	})

	t.Run("nested application", func(t *testing.T) {
		term, err := ParseTerm("(+ (* a 2) 1)")
		require.NoError(t, err)
		assert.Equal(t, "+", term.Op)
		require.Len(t, term.Args, 2)
		assert.Equal(t, "*", term.Args[0].Op)
		assert.Equal(t, "1", term.Args[1].Op)
	})

	t.Run("zero-argument application", func(t *testing.T) {
		term, err := ParseTerm("(nil)")
		require.NoError(t, err)
		assert.Equal(t, "nil", term.Op)
		assert.Empty(t, term.Args)
	})

	t.Run("whitespace is insignificant", func(t *testing.T) {
		a, err := ParseTerm("(+ a\n\t b)")
		require.NoError(t, err)
		b, err := ParseTerm("(+ a b)")
		require.NoError(t, err)
		assert.True(t, a.Equal(b))
	})

	t.Run("string round-trips", func(t *testing.T) {
		const src = "(+ (* a 2) 1)"
		term, err := ParseTerm(src)
		require.NoError(t, err)
		assert.Equal(t, src, term.String())
	})
}

func TestParseTermErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"unbalanced open", "(+ a b"},
		{"unbalanced close", "+ a b)"},
		{"stray close", ")"},
		{"empty input", ""},
		{"empty parens", "()"},
		{"trailing input", "(+ a b) c"},
		{"pattern variable rejected", "(+ ?x 1)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTerm(tc.input)
			assert.Error(t, err)
		})
	}
}

func TestIsPatternVar(t *testing.T) {
	assert.True(t, isPatternVar("?x"))
	assert.True(t, isPatternVar("?long-name"))
	assert.False(t, isPatternVar("?"))
	assert.False(t, isPatternVar("x"))
	assert.False(t, isPatternVar("x?"))
}
