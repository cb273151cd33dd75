// Package archive implements the size-bounded test-case archive of
// spec.md §3, §4.3, and §4.9: for each covered target, the shortest test
// case that covers it, plus the cumulative-statement stopping condition.
//
// This replaces the teacher's file-backed corpus.Manager (which persists
// seeds to disk for resumability) with an in-memory-only structure:
// spec.md's Non-goals explicitly exclude "persistence of search state
// across runs", so only the in-memory bookkeeping shape is kept — the
// mutex-guarded maps and append-only-by-coverage semantics of
// corpus.FileManager, not its disk I/O.
package archive

import (
	"sync"

	"github.com/dynamosa/dynamosa/internal/target"
)

// TestCase is the opaque external test-case type (spec.md §3). Aliased
// from package target so that a []TestCase produced here is directly
// usable wherever package target's identical contract is expected, with
// no per-element conversion.
type TestCase = target.TestCase

// CoverageRecorder is an optional capability a TestCase implementation
// may provide so post-processing can read which targets a test covers
// directly off the test object (spec.md §4.3 step 2: "register t into
// test's externally-visible covered-set").
type CoverageRecorder interface {
	RecordCovered(id target.ID)
}

// Archive maps each retained TestCase to the targets it covers, and each
// Target to its best (smallest, size>1) covering TestCase.
type Archive struct {
	mu sync.Mutex

	maxStatements int // 0 = unlimited
	statementSum  int
	budgetLatched bool

	charged map[TestCase]bool
	covers  map[TestCase][]target.ID
	best    map[target.ID]TestCase

	pairSeen   map[pairKey]bool
	coverCount map[target.ID]int
}

// pairKey dedupes a (test, target) coverage fact so repeated fast-path
// and BFS discoveries of the same edge don't inflate numTests(·) counts
// used by the path-balancing goal adjustment (spec.md §4.7).
type pairKey struct {
	test TestCase
	id   target.ID
}

// New creates an archive with the given cumulative-statement budget.
// maxStatements <= 0 means unbounded (spec.md §6 MAX_ARCHIVE_STATEMENTS).
func New(maxStatements int) *Archive {
	return &Archive{
		maxStatements: maxStatements,
		charged:       make(map[TestCase]bool),
		covers:        make(map[TestCase][]target.ID),
		best:          make(map[target.ID]TestCase),
		pairSeen:      make(map[pairKey]bool),
		coverCount:    make(map[target.ID]int),
	}
}

// RecordCoverage implements spec.md §4.6's update_covered_goals procedure
// for a single target id covered by test. It returns false without
// mutating the archive when recording test (for the first time) would
// exceed the statement budget, at which point the stopping-condition
// latch is set (spec.md §4.3 step 1, §4.9).
func (a *Archive) RecordCoverage(test TestCase, id target.ID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.charged[test] {
		candidateSum := a.statementSum + int(test.Size())
		if a.maxStatements > 0 && candidateSum > a.maxStatements {
			a.budgetLatched = true
			return false
		}
		a.statementSum = candidateSum
		a.charged[test] = true
	}

	if rec, ok := test.(CoverageRecorder); ok {
		rec.RecordCovered(id)
	}

	if existing, ok := a.best[id]; !ok {
		a.best[id] = test
	} else if test.Size() < existing.Size() && test.Size() > 1 {
		// Note: the previous best is not evicted from a.covers — an
		// archived test may remain even once no target's best pointer
		// references it anymore (spec.md §9 Open Question: retained,
		// not cleaned up).
		a.best[id] = test
	}

	pk := pairKey{test, id}
	if !a.pairSeen[pk] {
		a.pairSeen[pk] = true
		a.covers[test] = append(a.covers[test], id)
		a.coverCount[id]++
	}

	return true
}

// CoveringTestCount returns the number of distinct archived tests that
// cover id — spec.md §4.7's numTests(ff.key), used by path-balancing.
func (a *Archive) CoveringTestCount(id target.ID) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.coverCount[id]
}

// BestTest returns the best (smallest, size>1 when possible) test
// covering id, if any.
func (a *Archive) BestTest(id target.ID) (TestCase, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.best[id]
	return t, ok
}

// IsCovered reports whether any test has covered id.
func (a *Archive) IsCovered(id target.ID) bool {
	_, ok := a.BestTest(id)
	return ok
}

// Tests returns every TestCase retained in the archive.
func (a *Archive) Tests() []TestCase {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]TestCase, 0, len(a.covers))
	for t := range a.covers {
		out = append(out, t)
	}
	return out
}

// Covers returns the targets a retained test covers.
func (a *Archive) Covers(test TestCase) []target.ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]target.ID(nil), a.covers[test]...)
}

// StatementCount returns the cumulative statement count charged so far.
func (a *Archive) StatementCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statementSum
}

// IsFinished reports whether the archive's statement budget has latched
// (spec.md §4.9's ArchiveBudgetExceeded stopping condition).
func (a *Archive) IsFinished() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.budgetLatched
}

// CoveredCount returns how many distinct targets have a best test.
func (a *Archive) CoveredCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.best)
}
