package search

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynamosa/dynamosa/internal/archive"
	"github.com/dynamosa/dynamosa/internal/goalmanager"
	"github.com/dynamosa/dynamosa/internal/registry"
	"github.com/dynamosa/dynamosa/internal/target"
)

type fakeTC struct {
	name string
	size uint32
	dist float64
}

func (f *fakeTC) Size() uint32 { return f.size }

type scriptedFitness struct{}

func (scriptedFitness) Distance(tc target.TestCase) float64 {
	if f, ok := tc.(*fakeTC); ok {
		return f.dist
	}
	return math.Inf(1)
}

type fakeExecutor struct{}

func (fakeExecutor) Execute(target.TestCase) goalmanager.ExecutionResult {
	return goalmanager.ExecutionResult{}
}

type staticBreeder struct {
	pop []TestCase
}

func (b *staticBreeder) InitialPopulation(int) []TestCase { return b.pop }
func (b *staticBreeder) Breed([]TestCase) []TestCase       { return b.pop }

func TestEngine_RunStopsAtMaxGenerations(t *testing.T) {
	goal := &target.Target{ID: 1, Kind: target.KindBranch, Buggy: true, BranchID: 1, ExpressionValue: true, Fitness: scriptedFitness{}}
	mgr := goalmanager.Build([]*target.Target{goal}, nil, nil, nil, archive.New(0), registry.New(), goalmanager.Params{Variant: goalmanager.VariantDynaMOSA})

	breeder := &staticBreeder{pop: []TestCase{
		&fakeTC{name: "a", size: 5, dist: 0},
		&fakeTC{name: "b", size: 10, dist: 1},
	}}

	engine := NewEngine(mgr, fakeExecutor{}, breeder, 2, MaxGenerations(1))
	result := engine.Run(context.Background())

	assert.Equal(t, 1, result.Generations)
	assert.Equal(t, "max-generations", result.StoppedBy)
	require.NotEmpty(t, result.Tests)

	found := false
	for _, tc := range result.Tests {
		if tc.(*fakeTC).name == "a" {
			found = true
		}
	}
	assert.True(t, found, "the covering test case should be archived")
}

func TestEngine_ArchiveBudgetStopsSearch(t *testing.T) {
	goal := &target.Target{ID: 1, Kind: target.KindBranch, Buggy: true, BranchID: 1, ExpressionValue: true, Fitness: scriptedFitness{}}
	arc := archive.New(3)
	mgr := goalmanager.Build([]*target.Target{goal}, nil, nil, nil, arc, registry.New(), goalmanager.Params{Variant: goalmanager.VariantDynaMOSA})

	breeder := &staticBreeder{pop: []TestCase{
		&fakeTC{name: "big", size: 10, dist: 0},
	}}

	engine := NewEngine(mgr, fakeExecutor{}, breeder, 1, ArchiveBudget(), MaxGenerations(5))
	result := engine.Run(context.Background())

	assert.Equal(t, "archive-budget", result.StoppedBy)
	assert.Equal(t, 0, result.Generations, "budget already exceeded by the initial evaluation sweep")
}

func TestDominates(t *testing.T) {
	assert.True(t, dominates([]float64{0, 1}, []float64{1, 1}))
	assert.False(t, dominates([]float64{1, 1}, []float64{1, 1}))
	assert.False(t, dominates([]float64{0, 2}, []float64{1, 1}))
}

func TestPreferredIndices_PicksClosestPerObjective(t *testing.T) {
	vecs := [][]float64{
		{0, 5},
		{5, 0},
		{3, 3},
	}
	preferred := preferredIndices(vecs)
	assert.ElementsMatch(t, []int{0, 1}, preferred)
}
