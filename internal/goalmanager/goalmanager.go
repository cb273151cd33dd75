// Package goalmanager implements the flattened goal manager of spec.md
// §4.3-§4.7 and §9's re-architecture note: the teacher's three-level
// inheritance (StructuralGoalManager -> MultiCriteriaManager ->
// PredictiveCriteriaManager) becomes one struct composing a structural
// graph, a dependency map, and two branch-lookup layers (active/shadow),
// with staged activation as explicit methods rather than overridden
// constructors.
package goalmanager

import (
	"github.com/dynamosa/dynamosa/internal/archive"
	"github.com/dynamosa/dynamosa/internal/cfgraph"
	"github.com/dynamosa/dynamosa/internal/depmap"
	"github.com/dynamosa/dynamosa/internal/logger"
	"github.com/dynamosa/dynamosa/internal/orderedset"
	"github.com/dynamosa/dynamosa/internal/registry"
	"github.com/dynamosa/dynamosa/internal/target"
)

// Variant selects between the DynaMOSA and PreMOSA trigger policies of
// spec.md §4.8.
type Variant string

const (
	VariantDynaMOSA Variant = "dynamosa"
	VariantPreMOSA  Variant = "premosa"
)

// Params configures the trigger policy; everything else the manager
// needs (population size, archive budget, ...) belongs to the outer
// search loop, not here.
type Params struct {
	Variant                      Variant
	IterationsWithoutImprovement int
	ZeroCoverageTrigger          int
}

// PathCountProvider supplies the number of independent paths from method
// entry to a branch-kind target, computed externally from the
// control-flow graph and cached once at build (spec.md §4.4, §4.7).
type PathCountProvider interface {
	NumPaths(t *target.Target) int
}

// ExceptionTrace is one thrown-exception observation from an execution
// result (spec.md §6).
type ExceptionTrace struct {
	Class  string
	Method string
	Type   string
}

// ExecutionResult is the external test executor's report for one test
// run (spec.md §6).
type ExecutionResult struct {
	Timeout bool
	Error   bool

	CoveredTrueBranches      []int32
	CoveredFalseBranches     []int32
	CoveredBranchlessMethods []string
	Exceptions               []ExceptionTrace
}

// Executor is the external test-execution sandbox (spec.md §1).
type Executor interface {
	Execute(test target.TestCase) ExecutionResult
}

// branchLookup is one layer (active or shadow) of the two branch-id
// lookup maps plus the branchless-method slot map (spec.md §3).
type branchLookup struct {
	trueBranch  map[target.Key]*target.Target
	falseBranch map[target.Key]*target.Target
	branchless  map[target.MethodKey]*target.Target
}

func newBranchLookup() branchLookup {
	return branchLookup{
		trueBranch:  make(map[target.Key]*target.Target),
		falseBranch: make(map[target.Key]*target.Target),
		branchless:  make(map[target.MethodKey]*target.Target),
	}
}

// Manager is the flattened goal manager: structural graph + dependency
// map + buggy/non-buggy partitioning + archive + exception registry.
type Manager struct {
	graph *cfgraph.Graph
	deps  *depmap.Map
	arc   *archive.Archive
	reg   *registry.Registry
	paths PathCountProvider

	all map[target.ID]*target.Target

	// orderedGoals preserves the input goal order for deterministic
	// iteration (spec.md §5, §9): seedCurrent must add dependents in a
	// stable order across runs, which ranging over the `all` map cannot
	// guarantee.
	orderedGoals []*target.Target

	uncovered     *orderedset.Set[target.ID]
	current       *orderedset.Set[target.ID]
	nonBuggyGoals *orderedset.Set[target.ID]

	methods         *orderedset.Set[target.ID]
	nonBuggyMethods *orderedset.Set[target.ID]

	active branchLookup
	shadow branchLookup

	params Params

	triggerFired        bool
	lastUncoveredSize   int
	stagnantGenerations int

	nextID         target.ID
	exceptionByKey map[registry.ExceptionKey]*target.Target
}

// Build constructs a Manager from the full goal set (spec.md §4.4,
// §4.5). goals must already reflect any CBranch per-context expansion
// (depmap.ExpandCBranch) performed upstream. cfp and lookup are the
// external control-flow collaborators of spec.md §1; paths may be nil,
// in which case AdjustGoals is a no-op.
func Build(goals []*target.Target, cfp cfgraph.ControlFlowProvider, lookup depmap.ControllingLookup, paths PathCountProvider, arc *archive.Archive, reg *registry.Registry, params Params) *Manager {
	m := &Manager{
		deps:            depmap.New(),
		arc:             arc,
		reg:             reg,
		paths:           paths,
		all:             make(map[target.ID]*target.Target, len(goals)),
		uncovered:       orderedset.New[target.ID](),
		current:         orderedset.New[target.ID](),
		nonBuggyGoals:   orderedset.New[target.ID](),
		methods:         orderedset.New[target.ID](),
		nonBuggyMethods: orderedset.New[target.ID](),
		active:          newBranchLookup(),
		shadow:          newBranchLookup(),
		params:          params,
		exceptionByKey:  make(map[registry.ExceptionKey]*target.Target),
	}

	m.orderedGoals = goals

	var branchGoals []*target.Target
	var nonBranchGoals []*target.Target
	for _, g := range goals {
		m.all[g.ID] = g
		if g.ID >= m.nextID {
			m.nextID = g.ID + 1
		}
		if g.Kind.IsBranchKind() {
			branchGoals = append(branchGoals, g)
		} else {
			nonBranchGoals = append(nonBranchGoals, g)
		}
	}

	m.graph = cfgraph.Build(branchGoals, cfp)

	m.partition(branchGoals, nonBranchGoals)
	m.attachDependencies(nonBranchGoals, lookup)
	m.seedCurrent()

	m.lastUncoveredSize = m.uncovered.Len()

	if m.current.Len() == 0 {
		m.fireTrigger()
	}

	return m
}

func (m *Manager) partition(branchGoals, nonBranchGoals []*target.Target) {
	for _, b := range branchGoals {
		key := target.Key{BranchID: b.BranchID, CallContext: b.CallContext}
		layer := &m.active
		if !b.Buggy {
			layer = &m.shadow
			m.nonBuggyGoals.Add(b.ID)
		} else {
			m.uncovered.Add(b.ID)
		}
		if b.ExpressionValue {
			layer.trueBranch[key] = b
		} else {
			layer.falseBranch[key] = b
		}
	}

	for _, x := range nonBranchGoals {
		switch x.Kind {
		case target.KindMethod, target.KindMethodNoException:
			if x.Buggy {
				m.methods.Add(x.ID)
			} else {
				m.nonBuggyMethods.Add(x.ID)
			}
		default:
			if x.Kind == target.KindBranchlessMethod {
				layer := &m.active
				if !x.Buggy {
					layer = &m.shadow
				}
				layer.branchless[target.NewMethodKey(x.ClassName, x.MethodName)] = x
			}
			m.uncovered.Add(x.ID)
		}
	}
}

func (m *Manager) attachDependencies(nonBranchGoals []*target.Target, lookup depmap.ControllingLookup) {
	var attachable []*target.Target
	for _, x := range nonBranchGoals {
		if x.Kind == target.KindException {
			continue
		}
		attachable = append(attachable, x)
	}
	m.deps.AttachAll(attachable, lookup,
		func(t *target.Target) string { return t.ClassName },
		func(t *target.Target) string { return t.MethodName },
	)
}

// seedCurrent seeds current with buggy root branches, and additionally
// with branchless-method dependents that have no gating branch at all —
// those would otherwise never be enqueued, since nothing ever covers a
// branch to trigger their dependency-map entry (spec.md §4.2, §4.4).
func (m *Manager) seedCurrent() {
	for _, id := range m.graph.Roots() {
		f := m.all[id]
		if f.Buggy {
			m.current.Add(id)
		}
	}

	seenSlots := make(map[target.MethodKey]bool)
	for _, g := range m.orderedGoals {
		if g.Kind.IsBranchKind() {
			continue
		}
		key := target.NewMethodKey(g.ClassName, g.MethodName)
		if seenSlots[key] {
			continue
		}
		seenSlots[key] = true
		for _, dep := range m.deps.BranchlessDependents(g.ClassName, g.MethodName) {
			m.current.Add(dep.ID)
		}
	}
}

// IsAlreadyCovered reports whether id has a best test in the archive
// (spec.md §4.3 is_already_covered).
func (m *Manager) IsAlreadyCovered(id target.ID) bool {
	return m.arc.IsCovered(id)
}

func (m *Manager) updateCoveredGoals(t *target.Target, test target.TestCase) {
	if !m.arc.RecordCoverage(test, t.ID) {
		return
	}
	m.uncovered.Remove(t.ID)
	m.nonBuggyGoals.Remove(t.ID)
}

// Target returns the goal identified by id, if known.
func (m *Manager) Target(id target.ID) (*target.Target, bool) {
	t, ok := m.all[id]
	return t, ok
}

// Current returns a snapshot of the active objective set, in insertion
// order (spec.md §5: deterministic iteration for reproducibility).
func (m *Manager) Current() []target.ID {
	return m.current.Snapshot()
}

// Uncovered returns a snapshot of the uncovered-goal set.
func (m *Manager) Uncovered() []target.ID {
	return m.uncovered.Snapshot()
}

// TriggerFired reports whether the non-buggy inclusion trigger has
// already fired.
func (m *Manager) TriggerFired() bool {
	return m.triggerFired
}

// Archive exposes the underlying archive for the outer search loop's
// stopping-condition polling and final test-suite assembly.
func (m *Manager) Archive() *archive.Archive {
	return m.arc
}

func (m *Manager) branchKey(id int32, ctx string) target.Key {
	return target.Key{BranchID: id, CallContext: ctx}
}

// CalculateFitness implements spec.md §4.6: executes test, expands
// current by descending the structural graph from newly-covered
// branches, applies the archive fast path for branches and branchless
// methods covered but never reached by the BFS, records exception
// coverage, and evaluates method-coverage targets independently.
func (m *Manager) CalculateFitness(test target.TestCase, exec Executor) ExecutionResult {
	result := exec.Execute(test)
	if result.Timeout || result.Error {
		return result
	}

	visitedMethods := make(map[target.ID]bool)
	visitedTargets := make(map[target.ID]bool)
	queue := m.current.Snapshot()

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if visitedTargets[id] {
			continue
		}
		visitedTargets[id] = true

		f, ok := m.all[id]
		if !ok {
			continue
		}

		d := f.Distance(test)
		if d == 0 {
			if f.Kind == target.KindMethod || f.Kind == target.KindMethodNoException {
				visitedMethods[id] = true
			}
			m.updateCoveredGoals(f, test)
			if f.Kind.IsBranchKind() {
				queue = append(queue, m.graph.Children(id)...)
				bv := depmap.BranchValue{BranchID: f.BranchID, ExpressionValue: f.ExpressionValue}
				for _, dep := range m.deps.Dependents(bv) {
					queue = append(queue, dep.ID)
				}
			}
		} else {
			m.current.Add(id)
		}
	}

	for _, bid := range result.CoveredTrueBranches {
		if t, ok := m.active.trueBranch[m.branchKey(bid, "")]; ok {
			m.updateCoveredGoals(t, test)
		}
	}
	for _, bid := range result.CoveredFalseBranches {
		if t, ok := m.active.falseBranch[m.branchKey(bid, "")]; ok {
			m.updateCoveredGoals(t, test)
		}
	}
	for _, slot := range result.CoveredBranchlessMethods {
		if t, ok := m.active.branchless[target.MethodKey(slot)]; ok {
			m.updateCoveredGoals(t, test)
		}
	}

	for _, exc := range result.Exceptions {
		key := registry.ExceptionKey{ClassName: exc.Class, MethodName: exc.Method, ExceptionType: exc.Type}
		t := m.exceptionTarget(key)
		m.updateCoveredGoals(t, test)
		m.reg.RegisterIfNew(key)
	}

	for _, id := range m.methods.Snapshot() {
		if visitedMethods[id] {
			continue
		}
		mt, ok := m.all[id]
		if !ok {
			continue
		}
		if mt.Distance(test) == 0 {
			m.updateCoveredGoals(mt, test)
		}
	}

	return result
}

// zeroFitness always reports covered: an exception target is only ever
// created at the moment its exception was actually observed.
type zeroFitness struct{}

func (zeroFitness) Distance(target.TestCase) float64 { return 0 }

func (m *Manager) exceptionTarget(key registry.ExceptionKey) *target.Target {
	if t, ok := m.exceptionByKey[key]; ok {
		return t
	}
	t := &target.Target{
		ID:         m.nextID,
		Kind:       target.KindException,
		ClassName:  key.ClassName,
		MethodName: key.MethodName,
		Fitness:    zeroFitness{},
	}
	m.nextID++
	m.exceptionByKey[key] = t
	m.all[t.ID] = t
	m.uncovered.Add(t.ID)
	return t
}

// AdjustGoals implements spec.md §4.7's path-balancing policy, called
// once per generation between breeding and ranking.
func (m *Manager) AdjustGoals() {
	if m.paths == nil {
		return
	}
	for key, trueTgt := range m.active.trueBranch {
		falseTgt, ok := m.active.falseBranch[key]
		if !ok {
			continue
		}

		pathsTrue := m.paths.NumPaths(trueTgt)
		pathsFalse := m.paths.NumPaths(falseTgt)
		if pathsTrue <= 0 || pathsFalse <= 0 {
			continue
		}

		ratioTrue := float64(m.arc.CoveringTestCount(trueTgt.ID)) / float64(pathsTrue)
		ratioFalse := float64(m.arc.CoveringTestCount(falseTgt.ID)) / float64(pathsFalse)

		switch {
		case ratioTrue > ratioFalse:
			m.current.Remove(trueTgt.ID)
			m.current.Add(falseTgt.ID)
		case ratioFalse > ratioTrue:
			m.current.Remove(falseTgt.ID)
			m.current.Add(trueTgt.ID)
		}
	}
}

// MaybeFireTrigger implements spec.md §4.8's per-generation trigger
// check. iteration is the 1-based generation index.
func (m *Manager) MaybeFireTrigger(iteration int) bool {
	if m.triggerFired {
		return false
	}

	switch m.params.Variant {
	case VariantPreMOSA:
		size := m.uncovered.Len()
		if size < m.lastUncoveredSize {
			m.lastUncoveredSize = size
			m.stagnantGenerations = 0
		} else {
			m.stagnantGenerations++
		}
		if m.stagnantGenerations >= m.params.IterationsWithoutImprovement {
			m.fireTrigger()
			return true
		}
		if m.arc.CoveredCount() == 0 && iteration >= m.params.ZeroCoverageTrigger {
			m.fireTrigger()
			return true
		}
	default:
		if m.uncovered.Len() == 0 {
			m.fireTrigger()
			return true
		}
	}

	return false
}

func (m *Manager) fireTrigger() {
	m.activateNonBuggyCurrentGoals()
	m.activateNonBuggyUncovered()
	m.activateNonBuggyMethods()
	m.activateNonBuggyBranchMaps()
	m.triggerFired = true
	logger.Info("goalmanager: non-buggy inclusion trigger fired")
}

func (m *Manager) activateNonBuggyCurrentGoals() {
	for _, id := range m.nonBuggyGoals.Items() {
		if m.graph.IsRoot(id) {
			m.current.Add(id)
		}
	}
}

func (m *Manager) activateNonBuggyUncovered() {
	m.uncovered.Union(m.nonBuggyGoals)
}

func (m *Manager) activateNonBuggyMethods() {
	m.methods.Union(m.nonBuggyMethods)
}

func (m *Manager) activateNonBuggyBranchMaps() {
	for k, v := range m.shadow.trueBranch {
		m.active.trueBranch[k] = v
	}
	for k, v := range m.shadow.falseBranch {
		m.active.falseBranch[k] = v
	}
	for k, v := range m.shadow.branchless {
		m.active.branchless[k] = v
	}
}

// CoveredCountByKind and UncoveredCountByKind support the exit contract
// of spec.md §6: per-criterion covered/uncovered counts.
func (m *Manager) CoveredCountByKind(k target.Kind) int {
	n := 0
	for id, t := range m.all {
		if t.Kind == k && m.arc.IsCovered(id) {
			n++
		}
	}
	return n
}

func (m *Manager) UncoveredCountByKind(k target.Kind) int {
	n := 0
	for id, t := range m.all {
		if t.Kind == k && !m.arc.IsCovered(id) {
			n++
		}
	}
	return n
}
