package breed

import (
	"fmt"
	"math/rand/v2"
)

// ArgRandomGenerator is a default Generator: it picks a random
// combination of values from a fixed argument pool (the caller-supplied
// vocabulary for the program under test) for New, and perturbs one
// randomly chosen argument of an existing case for Mutate. It is
// grounded on the teacher's RandomMutationPhase (fuzz.go's random
// phase): randomly selecting from a known pool and mutating one element
// at a time, rehosted from math/rand to the stdlib's newer math/rand/v2
// API.
type ArgRandomGenerator struct {
	Command string
	Pool    []string
	MinArgs int
	MaxArgs int
	rng     *rand.Rand
}

// NewArgRandomGenerator constructs a generator that invokes command with
// between minArgs and maxArgs arguments drawn from pool, seeded
// deterministically for spec.md §9's reproducibility requirement.
func NewArgRandomGenerator(command string, pool []string, minArgs, maxArgs int, seed uint64) *ArgRandomGenerator {
	return &ArgRandomGenerator{
		Command: command,
		Pool:    pool,
		MinArgs: minArgs,
		MaxArgs: maxArgs,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// New implements Generator.
func (g *ArgRandomGenerator) New() *Case {
	n := g.MinArgs
	if g.MaxArgs > g.MinArgs {
		n += g.rng.IntN(g.MaxArgs - g.MinArgs + 1)
	}
	args := make([]string, n)
	for i := range args {
		args[i] = g.randomArg()
	}
	return &Case{Name: g.Command, Args: args, Sz: uint32(n) + 1}
}

// Mutate implements Generator by replacing one randomly chosen argument
// (or appending one, if the parent has none) with a fresh value from the
// pool.
func (g *ArgRandomGenerator) Mutate(parent *Case) *Case {
	args := append([]string(nil), parent.Args...)
	if len(args) == 0 {
		args = append(args, g.randomArg())
	} else {
		args[g.rng.IntN(len(args))] = g.randomArg()
	}
	return &Case{Name: parent.Name, Args: args, Sz: parent.Sz + 1}
}

func (g *ArgRandomGenerator) randomArg() string {
	if len(g.Pool) == 0 {
		return fmt.Sprintf("%d", g.rng.Int64())
	}
	return g.Pool[g.rng.IntN(len(g.Pool))]
}
