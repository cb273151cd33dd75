// Package breed provides reference search.Breeder backends: population
// initialization and offspring generation are an external concern per
// spec.md §1, but dynamosa ships a random backend usable out of the box
// and an optional LLM-guided one behind the same Generator seam.
//
// Case and Generator are the adaptation surface: Case is a minimal,
// concrete stand-in for the opaque TestCase of spec.md §3 — a named
// subprocess invocation, executable by internal/sandbox — and Generator
// is the pluggable "how do I make a new one / how do I perturb an
// existing one" primitive both backends below are built from, mirroring
// the way the teacher's internal/seed separated seed *storage* from the
// LLM/constraint-driven seed *generation* strategies in internal/prompt.
package breed

import (
	"github.com/dynamosa/dynamosa/internal/target"
)

// TestCase is the search loop's opaque test-case type (spec.md §3).
type TestCase = target.TestCase

// Case is a reference TestCase implementation: a subprocess invocation
// plus its charged statement size. It implements target.TestCase (via
// Size) and internal/sandbox.Runnable (via Command).
type Case struct {
	Name string
	Args []string
	Sz   uint32
}

// Size implements target.TestCase.
func (c *Case) Size() uint32 { return c.Sz }

// Command implements internal/sandbox.Runnable.
func (c *Case) Command() (string, []string) { return c.Name, c.Args }

// Generator is the external, program-specific primitive for producing
// brand-new test cases and perturbing existing ones. Neither operation
// can be written generically — what a "random" or "nearby" test case
// means depends entirely on the program under test — so both backends
// below are driven by a caller-supplied Generator rather than
// hardcoding any notion of mutation.
type Generator interface {
	// New produces a fresh, independent test case.
	New() *Case
	// Mutate produces one offspring derived from parent.
	Mutate(parent *Case) *Case
}

// RandomBreeder implements search.Breeder by repeatedly calling a
// Generator with no guidance beyond which parents survived to be bred
// from — the population-genetics baseline every many-objective search
// is compared against.
//
// Any randomness (spec.md §9's reproducibility requirement asks for a
// deterministic, seedable PRNG) belongs entirely to the Generator
// implementation, not to this type: RandomBreeder itself makes no
// random choices, it only sequences New/Mutate calls.
type RandomBreeder struct {
	gen Generator
}

// NewRandomBreeder constructs a RandomBreeder over gen.
func NewRandomBreeder(gen Generator) *RandomBreeder {
	return &RandomBreeder{gen: gen}
}

// InitialPopulation implements search.Breeder.
func (b *RandomBreeder) InitialPopulation(size int) []TestCase {
	out := make([]TestCase, 0, size)
	for i := 0; i < size; i++ {
		out = append(out, b.gen.New())
	}
	return out
}

// Breed implements search.Breeder: every parent contributes exactly one
// mutated offspring, in the teacher's one-parent-one-child seed
// expansion style rather than pairwise crossover, since Generator's
// contract has no notion of combining two parents. Parents that are not
// *Case (e.g. injected by a different breeder in a prior generation)
// are skipped rather than crashing the search loop.
func (b *RandomBreeder) Breed(parents []TestCase) []TestCase {
	out := make([]TestCase, 0, len(parents))
	for _, p := range parents {
		parent, ok := p.(*Case)
		if !ok {
			continue
		}
		out = append(out, b.gen.Mutate(parent))
	}
	return out
}
