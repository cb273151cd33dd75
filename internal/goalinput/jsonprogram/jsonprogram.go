// Package jsonprogram is a reference goalinput.ProgramAdapter: it reads
// a single JSON document describing a program's blocks, branch edges,
// goal set, dependency attachments, and per-branch path counts. It
// exists to make `dynamosa run` runnable end-to-end against a
// hand-written or scripted description without a real bytecode
// extractor wired in, the same role the teacher's cmd/seed_demo played
// for trying out seed generation without a full fuzzing run.
//
// Every target's FitnessFunction here is unknownDistance, a stand-in
// that never reports 0, so the goal manager's BFS (which tests
// Distance) never marks one of these targets covered. Coverage comes
// only from the execution trace: the archive fast path for branches and
// branchless methods, and the exception records. A production adapter
// replaces this with the real instrumented distance probe for its
// language/VM.
package jsonprogram

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dynamosa/dynamosa/internal/cfgraph"
	"github.com/dynamosa/dynamosa/internal/depmap"
	"github.com/dynamosa/dynamosa/internal/goalinput"
	"github.com/dynamosa/dynamosa/internal/goalmanager"
	"github.com/dynamosa/dynamosa/internal/target"
)

func init() {
	goalinput.Register("json", func(source string) (goalinput.ProgramAdapter, error) {
		return Load(source)
	})
}

type document struct {
	Blocks       map[string][]string `json:"blocks"` // block id -> predecessor ids
	Branches     []branchEdge        `json:"branches"`
	Goals        []goalSpec          `json:"goals"`
	Dependencies []dependencySpec    `json:"dependencies"`
	Paths        map[string]int      `json:"paths"`        // branchId (as string) -> path count
	CallContexts map[string][]string `json:"callContexts"` // "class.method" -> contexts
}

type branchEdge struct {
	From            string `json:"from"`
	To              string `json:"to"`
	BranchID        int32  `json:"branchId"`
	ExpressionValue bool   `json:"expressionValue"`
}

type goalSpec struct {
	ID              int64  `json:"id"`
	Kind            string `json:"kind"`
	Buggy           bool   `json:"buggy"`
	BranchID        int32  `json:"branchId"`
	ExpressionValue bool   `json:"expressionValue"`
	ClassName       string `json:"className"`
	MethodName      string `json:"methodName"`
	CallContext     string `json:"callContext"`
	Block           string `json:"block"`
	FQMethodName    string `json:"fqMethodName"`
}

type dependencySpec struct {
	Block                      string `json:"block"`
	ControllingBranchID        int32  `json:"controllingBranchId"`
	ControllingExpressionValue bool   `json:"controllingExpressionValue"`
	HasController              bool   `json:"hasController"`
}

var kindByName = map[string]target.Kind{
	"branch":              target.KindBranch,
	"branchless_method":   target.KindBranchlessMethod,
	"line":                target.KindLine,
	"statement":           target.KindStatement,
	"method":              target.KindMethod,
	"method_no_exception": target.KindMethodNoException,
	"weak_mutation":       target.KindWeakMutation,
	"strong_mutation":     target.KindStrongMutation,
	"input":               target.KindInput,
	"output":              target.KindOutput,
	"try_catch":           target.KindTryCatch,
	"cbranch":             target.KindCBranch,
	"exception":           target.KindException,
}

// unknownDistance never reports a target covered via Distance; coverage
// is always established through the execution trace (spec.md §4.6).
type unknownDistance struct{}

func (unknownDistance) Distance(target.TestCase) float64 { return 1 }

// Adapter is the in-memory program description loaded from one JSON
// document.
type Adapter struct {
	goals        []*target.Target
	blockPreds   map[string][]string
	branchByEdge map[blockPair]branchEdge
	controlling  map[string]dependencySpec
	callContexts map[string][]string
	paths        map[int32]int
}

type blockPair struct{ from, to string }

// Load parses path into an Adapter.
func Load(path string) (*Adapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jsonprogram: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("jsonprogram: parsing %s: %w", path, err)
	}

	a := &Adapter{
		blockPreds:   doc.Blocks,
		branchByEdge: make(map[blockPair]branchEdge, len(doc.Branches)),
		controlling:  make(map[string]dependencySpec, len(doc.Dependencies)),
		callContexts: doc.CallContexts,
		paths:        make(map[int32]int, len(doc.Paths)),
	}

	for _, e := range doc.Branches {
		a.branchByEdge[blockPair{e.From, e.To}] = e
	}
	for _, d := range doc.Dependencies {
		a.controlling[d.Block] = d
	}
	for k, v := range doc.Paths {
		var branchID int32
		if _, err := fmt.Sscanf(k, "%d", &branchID); err == nil {
			a.paths[branchID] = v
		}
	}

	for _, g := range doc.Goals {
		kind, ok := kindByName[g.Kind]
		if !ok {
			return nil, fmt.Errorf("jsonprogram: unknown goal kind %q (id %d)", g.Kind, g.ID)
		}
		var instrRef interface{}
		if g.Block != "" {
			instrRef = g.Block
		}
		a.goals = append(a.goals, &target.Target{
			ID:              target.ID(g.ID),
			Kind:            kind,
			Buggy:           g.Buggy,
			Fitness:         unknownDistance{},
			BranchID:        g.BranchID,
			ExpressionValue: g.ExpressionValue,
			ClassName:       g.ClassName,
			MethodName:      g.MethodName,
			CallContext:     g.CallContext,
			InstructionRef:  instrRef,
			FQMethodName:    g.FQMethodName,
		})
	}

	return a, nil
}

// Goals implements goalinput.ProgramAdapter.
func (a *Adapter) Goals() []*target.Target { return a.goals }

// ControlFlow implements goalinput.ProgramAdapter.
func (a *Adapter) ControlFlow() cfgraph.ControlFlowProvider { return (*cfProvider)(a) }

// Controlling implements goalinput.ProgramAdapter.
func (a *Adapter) Controlling() depmap.ControllingLookup { return (*controllingLookup)(a) }

// CallGraph implements goalinput.ProgramAdapter. Returns nil when the
// document declared no call contexts, so CBranch expansion is simply
// skipped by callers that check for nil.
func (a *Adapter) CallGraph() depmap.CallGraphProvider {
	if len(a.callContexts) == 0 {
		return nil
	}
	return (*callGraphProvider)(a)
}

// Paths implements goalinput.ProgramAdapter. Returns nil when the
// document declared no path counts, so path-balancing (spec.md §4.7)
// is simply skipped.
func (a *Adapter) Paths() goalmanager.PathCountProvider {
	if len(a.paths) == 0 {
		return nil
	}
	return (*pathProvider)(a)
}

type cfProvider Adapter

func (p *cfProvider) BlockOf(instr interface{}) cfgraph.BlockID {
	return instr
}

func (p *cfProvider) Predecessors(b cfgraph.BlockID) []cfgraph.BlockID {
	id, _ := b.(string)
	preds := p.blockPreds[id]
	out := make([]cfgraph.BlockID, len(preds))
	for i, pr := range preds {
		out[i] = pr
	}
	return out
}

func (p *cfProvider) Branch(b, towards cfgraph.BlockID) (int32, bool, bool) {
	from, _ := b.(string)
	to, _ := towards.(string)
	e, ok := p.branchByEdge[blockPair{from, to}]
	if !ok {
		return 0, false, false
	}
	return e.BranchID, e.ExpressionValue, true
}

type controllingLookup Adapter

func (p *controllingLookup) Controlling(instr interface{}) (depmap.BranchValue, bool) {
	block, _ := instr.(string)
	d, ok := p.controlling[block]
	if !ok || !d.HasController {
		return depmap.BranchValue{}, false
	}
	return depmap.BranchValue{BranchID: d.ControllingBranchID, ExpressionValue: d.ControllingExpressionValue}, true
}

type callGraphProvider Adapter

func (p *callGraphProvider) CallingContexts(className, methodName string) []string {
	return p.callContexts[className+"."+methodName]
}

type pathProvider Adapter

func (p *pathProvider) NumPaths(t *target.Target) int {
	return p.paths[t.BranchID]
}
