package egraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimpleScheduler(t *testing.T) {
	s := SimpleScheduler{}
	for iter := 0; iter < 3; iter++ {
		assert.True(t, s.CanApply(iter, "anything"))
		s.RecordMatches(iter, "anything", 1<<20)
		assert.True(t, s.CanApply(iter+1, "anything"))
	}
}

func TestBackoffScheduler(t *testing.T) {
	t.Run("under the threshold never bans", func(t *testing.T) {
		s := NewBackoffScheduler().WithMatchLimit(10).WithBanLength(2)
		for iter := 0; iter < 5; iter++ {
			assert.True(t, s.CanApply(iter, "r"))
			s.RecordMatches(iter, "r", 10)
		}
		assert.True(t, s.CanApply(5, "r"))
	})

	t.Run("exceeding the threshold bans for the ban length", func(t *testing.T) {
		s := NewBackoffScheduler().WithMatchLimit(10).WithBanLength(2)
		s.RecordMatches(0, "r", 11)
		// Banned for iterations 1 and 2; eligible again at 3.
		assert.False(t, s.CanApply(1, "r"))
		assert.False(t, s.CanApply(2, "r"))
		assert.True(t, s.CanApply(3, "r"))
	})

	t.Run("repeat offenses double threshold and ban", func(t *testing.T) {
		s := NewBackoffScheduler().WithMatchLimit(10).WithBanLength(2)
		s.RecordMatches(0, "r", 11)
		assert.True(t, s.CanApply(3, "r"))

		// Threshold is now 20: 15 matches no longer offends.
		s.RecordMatches(3, "r", 15)
		assert.True(t, s.CanApply(4, "r"))

		// 21 does; the ban doubles to 4 iterations.
		s.RecordMatches(4, "r", 21)
		assert.False(t, s.CanApply(5, "r"))
		assert.False(t, s.CanApply(8, "r"))
		assert.True(t, s.CanApply(9, "r"))
	})

	t.Run("rules are tracked independently", func(t *testing.T) {
		s := NewBackoffScheduler().WithMatchLimit(10).WithBanLength(2)
		s.RecordMatches(0, "noisy", 100)
		assert.False(t, s.CanApply(1, "noisy"))
		assert.True(t, s.CanApply(1, "quiet"))
	})

	t.Run("zero value is usable", func(t *testing.T) {
		var s BackoffScheduler
		assert.True(t, s.CanApply(0, "r"))
		s.RecordMatches(0, "r", 1)
		assert.True(t, s.CanApply(1, "r"))
	})
}
