// Package cfgraph builds the structural control-dependence graph among
// branch targets (spec.md §3, §4.1). Edge a→b means a is the immediate
// controlling predicate of b, matched by expression value.
//
// The graph is computed over an abstract view of the control-flow graph,
// supplied by the external bytecode/CFG extractor (spec.md §1) through
// the ControlFlowProvider interface below — this package owns the
// upward-walk algorithm, not the block structure itself, mirroring how
// the teacher's coverage.CFGAnalyzer separates CFG parsing from the
// predecessor-map walk it drives (buildPredecessorMaps).
package cfgraph

import (
	"github.com/dynamosa/dynamosa/internal/orderedset"
	"github.com/dynamosa/dynamosa/internal/target"
)

// BlockID is an opaque identifier for a basic block, as assigned by the
// external control-flow extractor. Any comparable value works.
type BlockID interface{}

// ControlFlowProvider is the external collaborator supplying control-flow
// structure for the upward controlling-parent walk of spec.md §4.1.
type ControlFlowProvider interface {
	// BlockOf returns the block containing a branch target's controlling
	// instruction (target.Target.InstructionRef).
	BlockOf(instr interface{}) BlockID

	// Predecessors returns the immediate predecessor blocks of b across
	// every incoming control-flow edge.
	Predecessors(b BlockID) []BlockID

	// Branch reports whether b ends in a conditional branch; if so,
	// branchID identifies it and exprValue is the truth value of the
	// edge leading from b towards the block named by towards.
	Branch(b BlockID, towards BlockID) (branchID int32, exprValue bool, ok bool)
}

// visitKey dedupes (block, expression-value) pairs visited during the
// upward walk (spec.md §4.1: "deduplicates visited (block, expression-value)
// pairs").
type visitKey struct {
	block BlockID
	value bool
}

// Graph is the structural control-dependence graph among branch targets.
type Graph struct {
	roots    *orderedset.Set[target.ID]
	children map[target.ID][]target.ID
	parents  map[target.ID][]target.ID
}

// Build constructs the graph over goals, which must already be filtered
// to the branch-kind subset with instrumented (synthetic) branches
// excluded (spec.md §4.1). cfp is nil-safe: branches with no
// InstructionRef, or when cfp is nil, are treated as roots.
func Build(goals []*target.Target, cfp ControlFlowProvider) *Graph {
	g := &Graph{
		roots:    orderedset.New[target.ID](),
		children: make(map[target.ID][]target.ID),
		parents:  make(map[target.ID][]target.ID),
	}

	index := indexBranchTargets(goals)

	for _, f := range goals {
		if !f.Kind.IsBranchKind() {
			continue
		}
		if _, ok := g.parents[f.ID]; !ok {
			g.parents[f.ID] = nil // ensure the vertex exists even if rootless
		}

		parents := controllingParents(f, cfp, index)
		if len(parents) == 0 {
			g.roots.Add(f.ID)
			continue
		}
		for _, p := range parents {
			g.children[p.ID] = append(g.children[p.ID], f.ID)
			g.parents[f.ID] = append(g.parents[f.ID], p.ID)
		}
	}

	return g
}

// branchKey identifies a branch goal by (branchID, expressionValue,
// callContext) for the index lookup that resolves a controlling
// predicate found during the walk back to its goal Target.
type branchKey struct {
	branchID    int32
	exprValue   bool
	callContext string
}

func indexBranchTargets(goals []*target.Target) map[branchKey]*target.Target {
	idx := make(map[branchKey]*target.Target, len(goals))
	for _, g := range goals {
		if !g.Kind.IsBranchKind() {
			continue
		}
		idx[branchKey{g.BranchID, g.ExpressionValue, g.CallContext}] = g
	}
	return idx
}

// controllingParents performs the DFS upward walk of spec.md §4.1: from
// f's controlling instruction, walk predecessor blocks, skipping blocks
// with no branch and stopping on blocks that do, deduplicating visited
// (block, value) pairs, and resolving each found (branchID, exprValue)
// back to its goal Target via index. If the walk reaches no controlling
// branch on any incoming path, the result is empty (f is a root).
func controllingParents(f *target.Target, cfp ControlFlowProvider, index map[branchKey]*target.Target) []*target.Target {
	if cfp == nil || f.InstructionRef == nil {
		return nil
	}

	start := cfp.BlockOf(f.InstructionRef)
	visitedBranch := make(map[visitKey]bool)
	visitedBlock := make(map[BlockID]bool)
	var found []*target.Target

	var dfs func(cur BlockID)
	dfs = func(cur BlockID) {
		for _, pred := range cfp.Predecessors(cur) {
			branchID, exprValue, ok := cfp.Branch(pred, cur)
			if ok {
				key := visitKey{pred, exprValue}
				if visitedBranch[key] {
					continue
				}
				visitedBranch[key] = true
				if parent, found2 := index[branchKey{branchID, exprValue, f.CallContext}]; found2 {
					found = append(found, parent)
				}
				// Stop on this path: a controlling branch was found.
				continue
			}
			if visitedBlock[pred] {
				continue
			}
			visitedBlock[pred] = true
			dfs(pred)
		}
	}
	dfs(start)

	return found
}

// Roots returns the branches with no controlling predicate on any
// incoming path from method entry, in the order they were first
// encountered while walking goals in Build (spec.md §5/§9: reproducible
// search traces require deterministic iteration order).
func (g *Graph) Roots() []target.ID {
	return g.roots.Snapshot()
}

// IsRoot reports whether id has no structural parent.
func (g *Graph) IsRoot(id target.ID) bool {
	return g.roots.Contains(id)
}

// Children returns the immediate structural descendants of t.
func (g *Graph) Children(t target.ID) []target.ID {
	return append([]target.ID(nil), g.children[t]...)
}

// Parents returns the immediate structural predecessors of t.
func (g *Graph) Parents(t target.ID) []target.ID {
	return append([]target.ID(nil), g.parents[t]...)
}

// AllDescendants returns the transitive closure of t's structural
// children, memoized in cache across repeated calls (spec.md §4.1).
func (g *Graph) AllDescendants(t target.ID, cache map[target.ID][]target.ID) []target.ID {
	if cached, ok := cache[t]; ok {
		return cached
	}

	visited := make(map[target.ID]bool)
	var out []target.ID
	var walk func(cur target.ID)
	walk = func(cur target.ID) {
		for _, child := range g.children[cur] {
			if visited[child] {
				continue
			}
			visited[child] = true
			out = append(out, child)
			walk(child)
		}
	}
	walk(t)

	cache[t] = out
	return out
}
