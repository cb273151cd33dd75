package depmap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dynamosa/dynamosa/internal/target"
)

type fakeLookup struct {
	controlling map[string]BranchValue
}

func (f *fakeLookup) Controlling(instr interface{}) (BranchValue, bool) {
	bv, ok := f.controlling[instr.(string)]
	return bv, ok
}

func TestAttach_BranchControlled(t *testing.T) {
	lookup := &fakeLookup{controlling: map[string]BranchValue{
		"line-10": {BranchID: 1, ExpressionValue: true},
	}}
	m := New()
	line := &target.Target{ID: 1, Kind: target.KindLine, InstructionRef: "line-10"}

	m.Attach(line, lookup, "Foo", "bar")

	deps := m.Dependents(BranchValue{BranchID: 1, ExpressionValue: true})
	assert.Equal(t, []*target.Target{line}, deps)
	assert.Empty(t, m.BranchlessDependents("Foo", "bar"))
}

func TestAttach_BranchlessMethodSlot(t *testing.T) {
	lookup := &fakeLookup{controlling: map[string]BranchValue{}}
	m := New()
	stmt := &target.Target{ID: 2, Kind: target.KindStatement, InstructionRef: "line-99"}

	m.Attach(stmt, lookup, "Foo", "noBranches")

	assert.Empty(t, m.Dependents(BranchValue{}))
	deps := m.BranchlessDependents("Foo", "noBranches")
	assert.Equal(t, []*target.Target{stmt}, deps)
}

func TestAttachAll(t *testing.T) {
	lookup := &fakeLookup{controlling: map[string]BranchValue{
		"a": {BranchID: 7, ExpressionValue: false},
	}}
	m := New()
	a := &target.Target{ID: 1, InstructionRef: "a"}
	b := &target.Target{ID: 2, InstructionRef: "b"}

	m.AttachAll([]*target.Target{a, b}, lookup,
		func(*target.Target) string { return "Foo" },
		func(*target.Target) string { return "method" },
	)

	assert.Len(t, m.Dependents(BranchValue{BranchID: 7, ExpressionValue: false}), 1)
	assert.Len(t, m.BranchlessDependents("Foo", "method"), 1)
}

type fakeCallGraph struct {
	contexts []string
}

func (f *fakeCallGraph) CallingContexts(className, methodName string) []string {
	return f.contexts
}

func TestExpandCBranch(t *testing.T) {
	base := &target.Target{ID: 1, Kind: target.KindCBranch, BranchID: 3, ExpressionValue: true, ClassName: "Foo", MethodName: "bar"}
	cg := &fakeCallGraph{contexts: []string{"ctxA", "ctxB"}}
	lookup := &fakeLookup{controlling: map[string]BranchValue{}}

	nextID := target.ID(100)
	copies := ExpandCBranch(base, cg, lookup, func(ctx string) target.ID {
		nextID++
		return nextID
	})

	assert := assert.New(t)
	assert.Len(copies, 2)
	assert.Equal("ctxA", copies[0].CallContext)
	assert.Equal("ctxB", copies[1].CallContext)
	assert.NotEqual(copies[0].ID, copies[1].ID)
	assert.Equal(base.BranchID, copies[0].BranchID)
}
