// Package target defines the coverage goal abstraction consumed by the
// goal manager: an opaque FitnessFunction with a distance() method, plus
// the branch-specific identity fields the structural graph and dependency
// maps need (spec.md §3).
package target

// Kind is the coverage criterion a Target belongs to (spec.md §3).
type Kind int

const (
	KindBranch Kind = iota
	KindBranchlessMethod
	KindLine
	KindStatement
	KindMethod
	KindMethodNoException
	KindWeakMutation
	KindStrongMutation
	KindInput
	KindOutput
	KindTryCatch
	KindCBranch
	KindException
)

func (k Kind) String() string {
	switch k {
	case KindBranch:
		return "Branch"
	case KindBranchlessMethod:
		return "BranchlessMethod"
	case KindLine:
		return "Line"
	case KindStatement:
		return "Statement"
	case KindMethod:
		return "Method"
	case KindMethodNoException:
		return "MethodNoException"
	case KindWeakMutation:
		return "WeakMutation"
	case KindStrongMutation:
		return "StrongMutation"
	case KindInput:
		return "Input"
	case KindOutput:
		return "Output"
	case KindTryCatch:
		return "TryCatch"
	case KindCBranch:
		return "CBranch"
	case KindException:
		return "Exception"
	default:
		return "Unknown"
	}
}

// IsBranchKind reports whether this kind carries the branch-only identity
// fields (BranchID, ExpressionValue).
func (k Kind) IsBranchKind() bool {
	return k == KindBranch || k == KindCBranch
}

// TestCase is the minimal surface the target package needs from the
// otherwise-opaque external TestCase type (spec.md §3): its statement
// count. Execution is not part of it: goalmanager.Executor runs a
// TestCase, and packages archive, breed and search alias this type
// rather than declaring their own.
type TestCase interface {
	Size() uint32
}

// FitnessFunction is the external, black-box distance function a coverage
// criterion implementation supplies for one Target (spec.md §2 item 1).
// Zero means covered.
type FitnessFunction interface {
	Distance(t TestCase) float64
}

// ID uniquely identifies a Target within one goal manager build. Branch
// targets that are expanded per calling context (CBranch, spec.md §4.2)
// get distinct IDs per context even though they share a BranchID.
type ID int64

// Target is one coverage goal (spec.md §3).
type Target struct {
	ID    ID
	Kind  Kind
	Buggy bool

	Fitness FitnessFunction

	// Branch-kind identity (valid when Kind.IsBranchKind()).
	BranchID        int32
	ExpressionValue bool
	ClassName       string
	MethodName      string

	// CallContext distinguishes CBranch copies of the same BranchID
	// expanded per calling context (spec.md §4.2); empty for all other
	// kinds and for the base (non-context-sensitive) branch copy.
	CallContext string

	// InstructionRef is an opaque back-reference into the external
	// control-flow/bytecode extractor, used only by the
	// ControlFlowProvider passed to cfgraph.Build. May be nil.
	InstructionRef interface{}

	// FQMethodName is the enclosing method's fully-qualified name in the
	// defect-score file's convention (spec.md §6), supplied by the
	// external goal builder. Empty when the target carries no
	// defect-prediction correlation (e.g. a synthesized exception
	// target). Used only by package defectscore to assign Buggy.
	FQMethodName string
}

// Distance evaluates the target's fitness function against tc. A nil
// Fitness is a programmer error in the caller that supplied the goal set;
// it is not a spec-level condition, so it panics rather than silently
// returning a bogus value.
func (t *Target) Distance(tc TestCase) float64 {
	return t.Fitness.Distance(tc)
}

// Key identifies a branch's (true, false) pair for the branch lookup
// tables and path-balancing (spec.md §3, §4.7).
type Key struct {
	BranchID    int32
	CallContext string
}

// MethodKey identifies a method by its "class.method" fully-qualified
// name, used for the branchless-method slot of spec.md §4.2.
type MethodKey string

// NewMethodKey builds the "class.method" key spec.md §4.2 uses for
// branchless-method attachment.
func NewMethodKey(className, methodName string) MethodKey {
	return MethodKey(className + "." + methodName)
}
