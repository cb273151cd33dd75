package breed

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGenerator struct {
	next int
}

func (g *scriptedGenerator) New() *Case {
	g.next++
	return &Case{Name: "prog", Args: []string{fmt.Sprintf("seed-%d", g.next)}, Sz: 1}
}

func (g *scriptedGenerator) Mutate(parent *Case) *Case {
	return &Case{Name: parent.Name, Args: append(append([]string{}, parent.Args...), "mutated"), Sz: parent.Sz + 1}
}

func TestRandomBreeder_InitialPopulationUsesGeneratorNew(t *testing.T) {
	gen := &scriptedGenerator{}
	b := NewRandomBreeder(gen)

	pop := b.InitialPopulation(3)
	require.Len(t, pop, 3)
	for _, tc := range pop {
		c, ok := tc.(*Case)
		require.True(t, ok)
		assert.Equal(t, "prog", c.Name)
	}
}

func TestRandomBreeder_BreedMutatesEveryParent(t *testing.T) {
	gen := &scriptedGenerator{}
	b := NewRandomBreeder(gen)

	parent := &Case{Name: "prog", Args: []string{"a"}, Sz: 2}
	offspring := b.Breed([]TestCase{parent})

	require.Len(t, offspring, 1)
	child := offspring[0].(*Case)
	assert.Equal(t, []string{"a", "mutated"}, child.Args)
	assert.Equal(t, uint32(3), child.Sz)
}

func TestRandomBreeder_BreedSkipsForeignTestCases(t *testing.T) {
	gen := &scriptedGenerator{}
	b := NewRandomBreeder(gen)

	offspring := b.Breed([]TestCase{foreignTestCase{}})
	assert.Empty(t, offspring)
}

type foreignTestCase struct{}

func (foreignTestCase) Size() uint32 { return 1 }

func TestParseLLMCases_StripsCodeFence(t *testing.T) {
	content := "```json\n[{\"name\":\"prog\",\"args\":[\"x\"],\"size\":3}]\n```"
	cases, err := parseLLMCases(content)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	c := cases[0].(*Case)
	assert.Equal(t, "prog", c.Name)
	assert.Equal(t, []string{"x"}, c.Args)
	assert.Equal(t, uint32(3), c.Sz)
}

func TestParseLLMCases_MalformedJSONErrors(t *testing.T) {
	_, err := parseLLMCases("not json at all")
	require.Error(t, err)
}

func TestArgRandomGenerator_NewRespectsArgBounds(t *testing.T) {
	gen := NewArgRandomGenerator("prog", []string{"a", "b", "c"}, 2, 4, 42)
	for i := 0; i < 20; i++ {
		c := gen.New()
		assert.GreaterOrEqual(t, len(c.Args), 2)
		assert.LessOrEqual(t, len(c.Args), 4)
		assert.Equal(t, "prog", c.Name)
	}
}

func TestArgRandomGenerator_MutateChangesOneArgAndGrowsSize(t *testing.T) {
	gen := NewArgRandomGenerator("prog", []string{"a", "b", "c"}, 1, 1, 7)
	parent := &Case{Name: "prog", Args: []string{"a"}, Sz: 5}

	child := gen.Mutate(parent)
	assert.Len(t, child.Args, 1)
	assert.Equal(t, uint32(6), child.Sz)
}

func TestArgRandomGenerator_MutateAppendsWhenParentHasNoArgs(t *testing.T) {
	gen := NewArgRandomGenerator("prog", []string{"a"}, 0, 0, 3)
	parent := &Case{Name: "prog", Sz: 1}

	child := gen.Mutate(parent)
	assert.Len(t, child.Args, 1)
}

func TestArgRandomGenerator_EmptyPoolFallsBackToNumericArg(t *testing.T) {
	gen := NewArgRandomGenerator("prog", nil, 1, 1, 9)
	c := gen.New()
	require.Len(t, c.Args, 1)
	assert.NotEmpty(t, c.Args[0])
}
