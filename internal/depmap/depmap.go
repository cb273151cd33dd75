// Package depmap implements the per-criterion dependency augmentation of
// spec.md §4.2: attaching non-branch targets (lines, statements,
// mutations, methods, ...) as dependents of the innermost controlling
// branch+value they reside in, or of a synthesized branchless-method slot
// when no controlling branch exists.
//
// The line->key indexing style is grounded on the teacher's
// coverage.CoverageMapping (a File:Line -> seed map); here the key is a
// (branch, value) pair or a branchless-method slot, and the value is the
// set of non-branch targets that depend on it.
package depmap

import "github.com/dynamosa/dynamosa/internal/target"

// BranchValue identifies one side of a branch: (branchID, expressionValue).
type BranchValue struct {
	BranchID        int32
	ExpressionValue bool
}

// Map is the dependency map: branch (or branchless-method slot) -> set of
// non-branch dependents.
type Map struct {
	byBranch     map[BranchValue][]*target.Target
	byBranchless map[target.MethodKey][]*target.Target
}

// New creates an empty dependency map.
func New() *Map {
	return &Map{
		byBranch:     make(map[BranchValue][]*target.Target),
		byBranchless: make(map[target.MethodKey][]*target.Target),
	}
}

// ControllingLookup resolves the innermost controlling (branch, value) of
// a non-branch target's instruction, supplied by the external
// control-flow extractor (spec.md §1). ok is false when the instruction
// has no controlling branch, in which case the target attaches to the
// enclosing method's branchless slot.
type ControllingLookup interface {
	Controlling(instr interface{}) (bv BranchValue, ok bool)
}

// Attach adds a single non-branch target x, resolving its attachment
// point via lookup. className/methodName name the enclosing method, used
// for the branchless-method slot when lookup finds no controlling branch.
func (m *Map) Attach(x *target.Target, lookup ControllingLookup, className, methodName string) {
	if bv, ok := lookup.Controlling(x.InstructionRef); ok {
		m.byBranch[bv] = append(m.byBranch[bv], x)
		return
	}
	key := target.NewMethodKey(className, methodName)
	m.byBranchless[key] = append(m.byBranchless[key], x)
}

// AttachAll attaches every target in xs. Criteria that do not participate
// in dependency attachment (Exception — handled post-execution per
// spec.md §4.2) should be filtered out by the caller before calling this.
func (m *Map) AttachAll(xs []*target.Target, lookup ControllingLookup, classOf, methodOf func(*target.Target) string) {
	for _, x := range xs {
		className, methodName := classOf(x), methodOf(x)
		m.Attach(x, lookup, className, methodName)
	}
}

// Dependents returns the non-branch targets attached to a covered branch
// side (spec.md §4.6 step 3: enqueue every x in dependencies[f]).
func (m *Map) Dependents(bv BranchValue) []*target.Target {
	return append([]*target.Target(nil), m.byBranch[bv]...)
}

// BranchlessDependents returns the targets attached to a method's
// branchless slot (used for methods with no branches at all).
func (m *Map) BranchlessDependents(className, methodName string) []*target.Target {
	key := target.NewMethodKey(className, methodName)
	return append([]*target.Target(nil), m.byBranchless[key]...)
}

// CallGraphProvider is the external collaborator (spec.md §1) CBranch
// dependency expansion consumes: the set of calling contexts for a method,
// used to expand one branch target into one copy per calling context
// (spec.md §4.2).
type CallGraphProvider interface {
	CallingContexts(className, methodName string) []string
}

// ExpandCBranch expands base (a CBranch-kind branch target) into one copy
// per calling context reported by the call graph, setting each copy's
// CallContext. idFor mints a fresh target.ID for each context copy. The
// copies are only returned: lookup is not consulted, and no copy is
// attached to a controlling branch in any Map.
func ExpandCBranch(base *target.Target, cg CallGraphProvider, lookup ControllingLookup, idFor func(context string) target.ID) []*target.Target {
	contexts := cg.CallingContexts(base.ClassName, base.MethodName)
	out := make([]*target.Target, 0, len(contexts))
	for _, ctx := range contexts {
		clone := *base
		clone.ID = idFor(ctx)
		clone.CallContext = ctx
		out = append(out, &clone)
	}
	return out
}
