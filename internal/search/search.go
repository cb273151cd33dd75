// Package search implements the outer many-objective search loop of
// spec.md §4.8: DynaMOSA/PreMOSA generation stepping over a
// goalmanager.Manager, with preference + non-domination ranking,
// crowding-distance selection, and composable stopping conditions.
//
// The generation state machine (breed -> evaluate -> adjust goals ->
// rank -> select -> maybe trigger -> poll stopping conditions) is
// grounded on the teacher's fuzz.Engine.Run loop shape (iteration
// counter, per-generation phase dispatch, stopping-condition polling
// between phases), generalized from corpus-queue scheduling to
// objective-driven selection.
package search

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/dynamosa/dynamosa/internal/goalmanager"
	"github.com/dynamosa/dynamosa/internal/target"
)

// TestCase is the opaque external test-case type the search loop
// breeds, evaluates, and archives (spec.md §3).
type TestCase = target.TestCase

// Breeder is the external outer-driver collaborator (spec.md §1):
// population initialization and crossover/mutation are entirely its
// responsibility; the search loop only calls it at fixed points.
type Breeder interface {
	InitialPopulation(size int) []TestCase
	Breed(parents []TestCase) []TestCase
}

// Status is the read-only view of engine progress a StoppingCondition
// is evaluated against.
type Status struct {
	Generation  int
	Evaluations int
	Elapsed     time.Duration
	Manager     *goalmanager.Manager
}

// StoppingCondition is polled once between generations (spec.md §5);
// any condition returning true ends the search.
type StoppingCondition interface {
	Name() string
	Done(s Status) bool
}

type maxGenerations struct{ n int }

func (m maxGenerations) Name() string      { return "max-generations" }
func (m maxGenerations) Done(s Status) bool { return m.n > 0 && s.Generation >= m.n }

// MaxGenerations stops the search after n generations. n <= 0 disables it.
func MaxGenerations(n int) StoppingCondition { return maxGenerations{n} }

type maxEvaluations struct{ n int }

func (m maxEvaluations) Name() string      { return "max-evaluations" }
func (m maxEvaluations) Done(s Status) bool { return m.n > 0 && s.Evaluations >= m.n }

// MaxEvaluations stops the search after n fitness evaluations.
func MaxEvaluations(n int) StoppingCondition { return maxEvaluations{n} }

type timeBudget struct{ d time.Duration }

func (t timeBudget) Name() string      { return "time-budget" }
func (t timeBudget) Done(s Status) bool { return t.d > 0 && s.Elapsed >= t.d }

// TimeBudget stops the search after wall-clock duration d.
func TimeBudget(d time.Duration) StoppingCondition { return timeBudget{d} }

type archiveBudget struct{}

func (archiveBudget) Name() string      { return "archive-budget" }
func (archiveBudget) Done(s Status) bool { return s.Manager.Archive().IsFinished() }

// ArchiveBudget stops the search once the archive's statement budget has
// latched (spec.md §4.9).
func ArchiveBudget() StoppingCondition { return archiveBudget{} }

// Result is the outcome of one Run: the archive's tests as the final test
// suite, the generation and evaluation counts, and the name of the
// stopping condition that ended the search. It carries no per-criterion
// covered/uncovered counts or coverage ratios; goalmanager.Manager
// exposes the per-kind counts through CoveredCountByKind and
// UncoveredCountByKind.
type Result struct {
	Generations int
	Evaluations int
	Tests       []TestCase
	StoppedBy   string
}

// Engine drives the DynaMOSA/PreMOSA generation loop over a goal
// manager (spec.md §4.8).
type Engine struct {
	mgr        *goalmanager.Manager
	exec       goalmanager.Executor
	breeder    Breeder
	population int
	stopping   []StoppingCondition
}

// NewEngine constructs an Engine. populationSize is the target
// population; stopping is evaluated in order after every generation
// (and once before the first, in case the initial sweep already
// satisfies one).
func NewEngine(mgr *goalmanager.Manager, exec goalmanager.Executor, breeder Breeder, populationSize int, stopping ...StoppingCondition) *Engine {
	return &Engine{mgr: mgr, exec: exec, breeder: breeder, population: populationSize, stopping: stopping}
}

// Run executes the search loop until a stopping condition fires or ctx
// is cancelled. Cancellation is coarse-grained (spec.md §5): it is only
// observed between generations, never mid-evaluation.
func (e *Engine) Run(ctx context.Context) Result {
	start := time.Now()
	evaluations := 0

	population := e.breeder.InitialPopulation(e.population)
	for _, tc := range population {
		e.mgr.CalculateFitness(tc, e.exec)
		evaluations++
	}

	generation := 0
	stoppedBy := ""

	if s := e.statusCheck(generation, evaluations, start); s != "" {
		stoppedBy = s
	}

	for stoppedBy == "" {
		select {
		case <-ctx.Done():
			stoppedBy = "context"
		default:
		}
		if stoppedBy != "" {
			break
		}

		offspring := e.breeder.Breed(population)
		for _, tc := range offspring {
			e.mgr.CalculateFitness(tc, e.exec)
			evaluations++
		}

		union := append(append([]TestCase{}, population...), offspring...)

		e.mgr.AdjustGoals()

		objectives := e.mgr.Current()
		population = selectNextGeneration(union, objectives, e.mgr, e.population)

		generation++
		e.mgr.MaybeFireTrigger(generation)

		if s := e.statusCheck(generation, evaluations, start); s != "" {
			stoppedBy = s
		}
	}

	return Result{
		Generations: generation,
		Evaluations: evaluations,
		Tests:       e.mgr.Archive().Tests(),
		StoppedBy:   stoppedBy,
	}
}

func (e *Engine) statusCheck(generation, evaluations int, start time.Time) string {
	status := Status{Generation: generation, Evaluations: evaluations, Elapsed: time.Since(start), Manager: e.mgr}
	for _, sc := range e.stopping {
		if sc.Done(status) {
			return sc.Name()
		}
	}
	return ""
}

// objectiveVectors computes, for every individual, its distance to
// every currently active objective (spec.md §4.6, §4.8).
func objectiveVectors(pop []TestCase, objectives []target.ID, mgr *goalmanager.Manager) [][]float64 {
	vecs := make([][]float64, len(pop))
	for i, tc := range pop {
		v := make([]float64, len(objectives))
		for j, id := range objectives {
			t, ok := mgr.Target(id)
			if !ok {
				v[j] = math.Inf(1)
				continue
			}
			v[j] = t.Distance(tc)
		}
		vecs[i] = v
	}
	return vecs
}

// dominates reports whether a Pareto-dominates b: at least as good on
// every objective, strictly better on at least one.
func dominates(a, b []float64) bool {
	betterSome := false
	for i := range a {
		if a[i] > b[i] {
			return false
		}
		if a[i] < b[i] {
			betterSome = true
		}
	}
	return betterSome
}

// preferredIndices implements DynaMOSA's preference criterion (spec.md
// §4.8 "rank by preference + non-domination"): the individual closest
// to each objective is promoted to the top rank regardless of
// dominance, so every active objective always has at least one
// champion surviving selection.
func preferredIndices(vecs [][]float64) []int {
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil
	}
	seen := make(map[int]bool)
	var out []int
	for o := range vecs[0] {
		best := -1
		bestVal := math.Inf(1)
		for i := range vecs {
			if vecs[i][o] < bestVal {
				bestVal = vecs[i][o]
				best = i
			}
		}
		if best >= 0 && !seen[best] {
			seen[best] = true
			out = append(out, best)
		}
	}
	return out
}

// fastNonDominatedSort performs the classic NSGA-II front decomposition
// over indices not already in the preferred front.
func fastNonDominatedSort(vecs [][]float64, excluded map[int]bool) [][]int {
	n := len(vecs)
	dominated := make([][]int, n)
	count := make([]int, n)
	var first []int

	for i := 0; i < n; i++ {
		if excluded[i] {
			continue
		}
		for j := 0; j < n; j++ {
			if i == j || excluded[j] {
				continue
			}
			if dominates(vecs[i], vecs[j]) {
				dominated[i] = append(dominated[i], j)
			} else if dominates(vecs[j], vecs[i]) {
				count[i]++
			}
		}
		if count[i] == 0 {
			first = append(first, i)
		}
	}

	fronts := [][]int{first}
	for k := 0; len(fronts[k]) > 0; k++ {
		var next []int
		for _, i := range fronts[k] {
			for _, j := range dominated[i] {
				count[j]--
				if count[j] == 0 {
					next = append(next, j)
				}
			}
		}
		fronts = append(fronts, next)
	}
	return fronts[:len(fronts)-1]
}

// crowdingDistance assigns NSGA-II crowding distance within one front.
func crowdingDistance(front []int, vecs [][]float64) map[int]float64 {
	dist := make(map[int]float64, len(front))
	if len(front) == 0 {
		return dist
	}
	numObj := len(vecs[front[0]])
	for _, i := range front {
		dist[i] = 0
	}
	for o := 0; o < numObj; o++ {
		sorted := append([]int(nil), front...)
		sort.Slice(sorted, func(a, b int) bool { return vecs[sorted[a]][o] < vecs[sorted[b]][o] })
		lo, hi := vecs[sorted[0]][o], vecs[sorted[len(sorted)-1]][o]
		dist[sorted[0]] = math.Inf(1)
		dist[sorted[len(sorted)-1]] = math.Inf(1)
		if hi == lo {
			continue
		}
		for k := 1; k < len(sorted)-1; k++ {
			dist[sorted[k]] += (vecs[sorted[k+1]][o] - vecs[sorted[k-1]][o]) / (hi - lo)
		}
	}
	return dist
}

// selectNextGeneration implements spec.md §4.8's per-generation
// selection: rank union by preference + non-domination, crowd within
// each front, fill fronts fully while capacity allows, then take the
// remainder of the next front by descending crowding distance.
func selectNextGeneration(union []TestCase, objectives []target.ID, mgr *goalmanager.Manager, size int) []TestCase {
	if len(union) <= size {
		return union
	}

	vecs := objectiveVectors(union, objectives, mgr)

	preferred := preferredIndices(vecs)
	excluded := make(map[int]bool, len(preferred))
	for _, i := range preferred {
		excluded[i] = true
	}

	fronts := append([][]int{preferred}, fastNonDominatedSort(vecs, excluded)...)

	selected := make([]TestCase, 0, size)
	for _, front := range fronts {
		if len(front) == 0 {
			continue
		}
		if len(selected)+len(front) <= size {
			for _, i := range front {
				selected = append(selected, union[i])
			}
			continue
		}

		remaining := size - len(selected)
		if remaining <= 0 {
			break
		}
		dist := crowdingDistance(front, vecs)
		ordered := append([]int(nil), front...)
		sort.Slice(ordered, func(a, b int) bool { return dist[ordered[a]] > dist[ordered[b]] })
		for _, i := range ordered[:remaining] {
			selected = append(selected, union[i])
		}
		break
	}

	return selected
}
