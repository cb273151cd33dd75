// Package goalinput defines the single external-collaborator seam
// spec.md §1 leaves opaque for constructing a search run: the
// control-flow/bytecode extractor that yields the goal set, branch
// structure, dependency attachment, call graph, and per-branch path
// counts for one program under test.
//
// Grounded on the teacher's internal/oracle plugin registry
// (name -> factory map, looked up by a config-supplied string) — here
// generalized from "which bug oracle to run" to "which program
// front-end produced this goal set."
package goalinput

import (
	"fmt"

	"github.com/dynamosa/dynamosa/internal/cfgraph"
	"github.com/dynamosa/dynamosa/internal/depmap"
	"github.com/dynamosa/dynamosa/internal/goalmanager"
	"github.com/dynamosa/dynamosa/internal/target"
)

// ProgramAdapter bundles every external collaborator the goal manager
// and structural graph need from one program under test (spec.md §1,
// §3, §4.1, §4.2, §4.7). CallGraph and Paths may be nil when a
// deployment does not use CBranch expansion or path-balancing.
type ProgramAdapter interface {
	Goals() []*target.Target
	ControlFlow() cfgraph.ControlFlowProvider
	Controlling() depmap.ControllingLookup
	CallGraph() depmap.CallGraphProvider
	Paths() goalmanager.PathCountProvider
}

// Factory builds a ProgramAdapter from a source path (a file, directory,
// or connection string — meaning is entirely up to the named adapter).
type Factory func(source string) (ProgramAdapter, error)

var registry = make(map[string]Factory)

// Register adds a named adapter factory. Called from an adapter
// package's init().
func Register(name string, factory Factory) {
	registry[name] = factory
}

// New builds the named adapter over source.
func New(name, source string) (ProgramAdapter, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("goalinput: unknown program adapter %q", name)
	}
	return factory(source)
}
