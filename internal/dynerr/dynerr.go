// Package dynerr implements the error taxonomy of spec.md §7: fatal
// startup misconfiguration is surfaced, everything else is recovered
// locally so search progress is preserved.
package dynerr

import (
	"fmt"

	"go.uber.org/multierr"
)

// ConfigurationError is fatal at startup: a missing defect-score file, a
// malformed CSV, or an unknown criterion.
type ConfigurationError struct {
	Stage string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error during %s: %v", e.Stage, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigurationError wraps err as a ConfigurationError for the given
// stage (e.g. "loading defect scores").
func NewConfigurationError(stage string, err error) *ConfigurationError {
	return &ConfigurationError{Stage: stage, Err: err}
}

// AppendConfigurationErrors combines per-row/per-file configuration
// failures into a single ConfigurationError whose Err is a multierr chain,
// so every failure is reported on one diagnostic line (spec.md §7).
func AppendConfigurationErrors(stage string, errs ...error) error {
	var combined error
	for _, e := range errs {
		if e != nil {
			combined = multierr.Append(combined, e)
		}
	}
	if combined == nil {
		return nil
	}
	return NewConfigurationError(stage, combined)
}

// GoalMissing records that a defect-score entry referred to a method absent
// from the program's method pool. It is logged and skipped, never fatal:
// the method is treated as non-buggy (spec.md §7).
type GoalMissing struct {
	FQMethodName string
}

func (e *GoalMissing) Error() string {
	return fmt.Sprintf("defect score for unknown method %q: treating as non-buggy", e.FQMethodName)
}

// ExecutionFailure wraps a timeout or exception observed while running a
// test case. It is evaluation evidence, not a fatal error (spec.md §7).
type ExecutionFailure struct {
	Timeout bool
	Err     error
}

func (e *ExecutionFailure) Error() string {
	if e.Timeout {
		return "test execution timed out"
	}
	return fmt.Sprintf("test execution failed: %v", e.Err)
}

func (e *ExecutionFailure) Unwrap() error { return e.Err }

// InvariantViolation records a defensive check that failed at a call site
// that should be unreachable in a correct build — e.g. a covered branch
// with no entry in the lookup table (spec.md §4.6 step 4). Logged and
// skipped, never fatal.
type InvariantViolation struct {
	Where string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation at %s: %s", e.Where, e.Detail)
}
