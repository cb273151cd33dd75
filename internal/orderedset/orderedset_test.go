package orderedset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddPreservesInsertionOrder(t *testing.T) {
	s := New[int]()
	s.Add(3)
	s.Add(1)
	s.Add(2)
	s.Add(1) // duplicate, no-op

	assert.Equal(t, []int{3, 1, 2}, s.Items())
	assert.Equal(t, 3, s.Len())
}

func TestRemoveKeepsRemainingOrder(t *testing.T) {
	s := From([]string{"a", "b", "c", "d"})
	assert.True(t, s.Remove("b"))
	assert.False(t, s.Remove("b"), "already removed")

	assert.Equal(t, []string{"a", "c", "d"}, s.Items())
	assert.False(t, s.Contains("b"))
}

func TestSnapshotIsIndependentOfFurtherMutation(t *testing.T) {
	s := From([]int{1, 2, 3})
	snap := s.Snapshot()
	s.Add(4)
	s.Remove(1)

	assert.Equal(t, []int{1, 2, 3}, snap)
	assert.Equal(t, []int{2, 3, 4}, s.Items())
}

func TestUnionAddsOnlyMissing(t *testing.T) {
	a := From([]int{1, 2})
	b := From([]int{2, 3})
	a.Union(b)

	assert.Equal(t, []int{1, 2, 3}, a.Items())
}
