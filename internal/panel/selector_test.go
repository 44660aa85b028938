package panel

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPanelReturnsDistinctPoolMembers(t *testing.T) {
	pool := []string{"e1", "e2", "e3", "e4", "e5"}
	inPool := map[string]bool{}
	for _, id := range pool {
		inPool[id] = true
	}

	s := NewSelector(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		selected, err := s.SelectPanel(pool)
		require.NoError(t, err)
		require.Len(t, selected, Size)

		seen := map[string]bool{}
		for _, id := range selected {
			assert.True(t, inPool[id], "%s is not in the pool", id)
			assert.False(t, seen[id], "%s selected twice", id)
			seen[id] = true
		}
	}
}

func TestSelectPanelInsufficientPool(t *testing.T) {
	s := NewSelector(nil)

	for _, pool := range [][]string{nil, {"e1"}, {"e1", "e2"}, {"e1", "e1", "e2"}, {"e1", "", "e2"}} {
		selected, err := s.SelectPanel(pool)
		assert.True(t, errors.Is(err, ErrInsufficientEvaluators), "pool %v", pool)
		assert.Nil(t, selected)
	}
}

func TestSelectPanelExactPoolUsesEveryone(t *testing.T) {
	s := NewSelector(nil)
	selected, err := s.SelectPanel([]string{"a", "b", "c"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, selected)
}

func TestSelectPanelDeterministicWithSeed(t *testing.T) {
	pool := []string{"e1", "e2", "e3", "e4", "e5", "e6"}

	first, err := NewSelector(rand.NewPCG(42, 7)).SelectPanel(pool)
	require.NoError(t, err)
	second, err := NewSelector(rand.NewPCG(42, 7)).SelectPanel(pool)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSelectPanelDoesNotMutatePool(t *testing.T) {
	pool := []string{"e1", "e2", "e3", "e4"}
	_, err := NewSelector(rand.NewPCG(3, 3)).SelectPanel(pool)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2", "e3", "e4"}, pool)
}

func TestSelectPanelCoversWholePool(t *testing.T) {
	pool := []string{"e1", "e2", "e3", "e4"}
	counts := map[string]int{}

	s := NewSelector(rand.NewPCG(9, 9))
	for i := 0; i < 400; i++ {
		selected, err := s.SelectPanel(pool)
		require.NoError(t, err)
		for _, id := range selected {
			counts[id]++
		}
	}

	for _, id := range pool {
		assert.Greater(t, counts[id], 0, "%s never selected", id)
	}
}
