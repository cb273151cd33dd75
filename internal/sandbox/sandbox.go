// Package sandbox provides a reference process-based implementation of
// goalmanager.Executor: it runs an external test-execution command per
// test case under a wall-clock timeout and parses its stdout as the
// execution-result trace of spec.md §6.
//
// Grounded on the teacher's internal/exec.CommandExecutor: the same
// os/exec.Command + buffered stdout/stderr capture shape, generalized
// from an opaque (stdout, stderr, exitCode) result to the structured
// coverage trace the goal manager's CalculateFitness consumes, and with
// a context-bound timeout in place of the teacher's unbounded Run.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/dynamosa/dynamosa/internal/goalmanager"
	"github.com/dynamosa/dynamosa/internal/target"
)

// Runnable is the narrow surface a TestCase must expose to be executed
// by this package: the command line that runs it. This is strictly
// additional to target.TestCase's Size() — the goal manager never needs
// it, only this executor does.
type Runnable interface {
	target.TestCase
	Command() (name string, args []string)
}

// trace mirrors spec.md §6's execution-result wire shape.
type trace struct {
	Timeout bool        `json:"timeout"`
	Error   bool        `json:"error"`
	Trace   traceFields `json:"trace"`
}

type traceFields struct {
	CoveredTrueBranches      []int32       `json:"coveredTrueBranches"`
	CoveredFalseBranches     []int32       `json:"coveredFalseBranches"`
	CoveredBranchlessMethods []string      `json:"coveredBranchlessMethods"`
	Exceptions               []tracedThrow `json:"exceptions"`
}

type tracedThrow struct {
	Class  string `json:"class"`
	Method string `json:"method"`
	Type   string `json:"type"`
}

// Executor runs each test case as a subprocess and parses its stdout as
// a spec.md §6 execution-result trace. It implements goalmanager.Executor.
type Executor struct {
	// Timeout bounds each individual execution; a run that exceeds it is
	// killed and reported as ExecutionResult.Timeout, never as a panic
	// or propagated error (spec.md §4.6 step 1 / §7's ExecutionFailure).
	Timeout time.Duration
}

// NewExecutor constructs an Executor with the given per-test wall-clock
// timeout.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{Timeout: timeout}
}

// Execute runs tc's command, parses its stdout trace, and converts it
// into a goalmanager.ExecutionResult. tc must implement Runnable; a
// TestCase that does not is a caller configuration error and produces
// an ExecutionResult with Error set rather than a panic, since this
// path runs deep inside the search loop where a single malformed test
// case must never abort the whole run.
func (e *Executor) Execute(tc target.TestCase) goalmanager.ExecutionResult {
	runnable, ok := tc.(Runnable)
	if !ok {
		return goalmanager.ExecutionResult{Error: true}
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	name, args := runnable.Command()
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return goalmanager.ExecutionResult{Timeout: true}
	}
	if runErr != nil {
		if _, isExit := runErr.(*exec.ExitError); !isExit {
			return goalmanager.ExecutionResult{Error: true}
		}
	}

	return parseTrace(stdout.Bytes())
}

// parseTrace decodes the execution-result JSON and converts it into the
// goal manager's representation. A malformed or empty trace is reported
// as Error rather than silently treated as "nothing covered" — the goal
// manager's CalculateFitness treats Error identically to a thrown
// exception (spec.md §4.6 step 1).
func parseTrace(stdout []byte) goalmanager.ExecutionResult {
	var t trace
	if err := json.Unmarshal(stdout, &t); err != nil {
		return goalmanager.ExecutionResult{Error: true}
	}
	if t.Timeout || t.Error {
		return goalmanager.ExecutionResult{Timeout: t.Timeout, Error: t.Error}
	}

	exceptions := make([]goalmanager.ExceptionTrace, 0, len(t.Trace.Exceptions))
	for _, ex := range t.Trace.Exceptions {
		exceptions = append(exceptions, goalmanager.ExceptionTrace{
			Class:  ex.Class,
			Method: ex.Method,
			Type:   ex.Type,
		})
	}

	return goalmanager.ExecutionResult{
		CoveredTrueBranches:      t.Trace.CoveredTrueBranches,
		CoveredFalseBranches:     t.Trace.CoveredFalseBranches,
		CoveredBranchlessMethods: t.Trace.CoveredBranchlessMethods,
		Exceptions:               exceptions,
	}
}
