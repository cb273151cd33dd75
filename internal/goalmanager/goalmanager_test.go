package goalmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynamosa/dynamosa/internal/archive"
	"github.com/dynamosa/dynamosa/internal/registry"
	"github.com/dynamosa/dynamosa/internal/target"
)

type fakeTest struct {
	name string
	size uint32
}

func (f *fakeTest) Size() uint32 { return f.size }

type fakeExecutor struct {
	result ExecutionResult
}

func (f *fakeExecutor) Execute(target.TestCase) ExecutionResult { return f.result }

func containsID(ids []target.ID, want target.ID) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}

func TestBuild_TriggerOnNoBuggyGoals(t *testing.T) {
	var goals []*target.Target
	for i := 1; i <= 10; i++ {
		goals = append(goals, &target.Target{
			ID: target.ID(i), Kind: target.KindBranch, Buggy: false,
			BranchID: int32(i), ExpressionValue: true, Fitness: zeroFitness{},
		})
	}

	m := Build(goals, nil, nil, nil, archive.New(0), registry.New(), Params{Variant: VariantDynaMOSA})

	assert.True(t, m.TriggerFired())
	current := m.Current()
	assert.Len(t, current, 10)
	for i := 1; i <= 10; i++ {
		assert.True(t, containsID(current, target.ID(i)))
	}
}

func TestCalculateFitness_TriggerOnExhaustion(t *testing.T) {
	goals := []*target.Target{
		{ID: 1, Kind: target.KindBranch, Buggy: true, BranchID: 1, ExpressionValue: true, Fitness: zeroFitness{}},
		{ID: 2, Kind: target.KindBranch, Buggy: true, BranchID: 2, ExpressionValue: true, Fitness: zeroFitness{}},
		{ID: 3, Kind: target.KindBranch, Buggy: true, BranchID: 3, ExpressionValue: true, Fitness: zeroFitness{}},
		{ID: 4, Kind: target.KindBranch, Buggy: false, BranchID: 4, ExpressionValue: true, Fitness: zeroFitness{}},
		{ID: 5, Kind: target.KindBranch, Buggy: false, BranchID: 5, ExpressionValue: true, Fitness: zeroFitness{}},
	}

	m := Build(goals, nil, nil, nil, archive.New(0), registry.New(), Params{Variant: VariantDynaMOSA})
	require.False(t, m.TriggerFired())
	require.ElementsMatch(t, []target.ID{1, 2, 3}, m.Current())

	exec := &fakeExecutor{}
	m.CalculateFitness(&fakeTest{name: "t1", size: 5}, exec)

	assert.Empty(t, m.Uncovered())
	fired := m.MaybeFireTrigger(1)
	assert.True(t, fired)
	assert.True(t, m.TriggerFired())
	assert.ElementsMatch(t, []target.ID{4, 5}, m.Uncovered())
}

type fakePaths struct {
	counts map[target.ID]int
}

func (p *fakePaths) NumPaths(t *target.Target) int { return p.counts[t.ID] }

func TestAdjustGoals_PathBalancingSwapsSideInCurrent(t *testing.T) {
	trueTgt := &target.Target{ID: 1, Kind: target.KindBranch, Buggy: true, BranchID: 17, ExpressionValue: true, Fitness: zeroFitness{}}
	falseTgt := &target.Target{ID: 2, Kind: target.KindBranch, Buggy: true, BranchID: 17, ExpressionValue: false, Fitness: zeroFitness{}}

	paths := &fakePaths{counts: map[target.ID]int{1: 2, 2: 2}}
	arc := archive.New(0)
	m := Build([]*target.Target{trueTgt, falseTgt}, nil, nil, paths, arc, registry.New(), Params{Variant: VariantDynaMOSA})

	require.True(t, containsID(m.Current(), 1))
	require.True(t, containsID(m.Current(), 2))

	for i := 0; i < 4; i++ {
		arc.RecordCoverage(&fakeTest{size: 5}, 1)
	}

	m.AdjustGoals()

	current := m.Current()
	assert.False(t, containsID(current, 1), "true side should leave current")
	assert.True(t, containsID(current, 2), "false side should remain/enter current")
}

func TestCalculateFitness_ExceptionCoverageFirstDiscovery(t *testing.T) {
	reg := registry.New()
	m := Build(nil, nil, nil, nil, archive.New(0), reg, Params{Variant: VariantDynaMOSA})

	exec := &fakeExecutor{result: ExecutionResult{
		Exceptions: []ExceptionTrace{{Class: "Foo", Method: "bar", Type: "NullPointerException"}},
	}}
	m.CalculateFitness(&fakeTest{name: "t1", size: 3}, exec)

	key := registry.ExceptionKey{ClassName: "Foo", MethodName: "bar", ExceptionType: "NullPointerException"}
	assert.True(t, reg.Seen(key))
	assert.Equal(t, 1, m.Archive().CoveredCount())

	// A subsequent search seeded from this run's registry sees K already seen.
	next := registry.NewFromSeed(reg.Drain())
	assert.True(t, next.Seen(key))
}

func TestMaybeFireTrigger_PreMOSAStagnation(t *testing.T) {
	goals := []*target.Target{
		{ID: 1, Kind: target.KindBranch, Buggy: true, BranchID: 1, ExpressionValue: true, Fitness: zeroFitness{}},
	}
	m := Build(goals, nil, nil, nil, archive.New(0), registry.New(), Params{
		Variant:                      VariantPreMOSA,
		IterationsWithoutImprovement: 5,
		ZeroCoverageTrigger:          100,
	})

	for i := 1; i < 5; i++ {
		assert.False(t, m.MaybeFireTrigger(i), "generation %d should not fire yet", i)
	}
	assert.True(t, m.MaybeFireTrigger(5))
	assert.True(t, m.TriggerFired())
}
