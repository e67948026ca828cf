package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/gosaturate/pkg/egraph"
)

func TestSaturationBarFinishes(t *testing.T) {
	var buf bytes.Buffer
	bar := newSaturationBar(&buf)
	require.NoError(t, bar.Add(1))
	require.NoError(t, bar.Add(1))

	// Finish must terminate the spinner's line so results printed
	// afterwards start on a fresh one.
	require.NoError(t, bar.Finish())
	out := buf.String()
	assert.NotEmpty(t, out)
	assert.Equal(t, byte('\n'), out[len(out)-1])
}

func TestCostFunction(t *testing.T) {
	fn, err := costFunction("size")
	require.NoError(t, err)
	assert.IsType(t, egraph.ASTSize{}, fn)

	fn, err = costFunction("DEPTH")
	require.NoError(t, err)
	assert.IsType(t, egraph.ASTDepth{}, fn)

	_, err = costFunction("latency")
	assert.Error(t, err)
}
