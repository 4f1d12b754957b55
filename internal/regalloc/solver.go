package regalloc

import "errors"

// Status is a MIP solve outcome, mirroring the small set of statuses
// LLVM's RegAllocILP.cpp accepts from OR-Tools' MPSolver.
type Status int

const (
	StatusUnavailable Status = iota
	StatusInfeasible
	StatusOptimal
	StatusFeasible
)

// ErrSolverUnavailable is returned by CreateSolver when no MIP backend is
// compiled in.
var ErrSolverUnavailable = errors.New("regalloc: MIP solver unavailable")

// Var is an opaque handle to a boolean decision variable created by a
// Solver.
type Var int

// Constraint is an opaque handle to a row constraint created by a Solver.
type Constraint int

// Solver is a narrow black-box interface: create solver, make boolean
// variable, make row constraint with bounds, set coefficient, set
// minimization, solve to a status, read a variable's solution. It mirrors
// operations_research::MPSolver's call shape used by LLVM's RegAllocILP.cpp
// one-for-one so the MIP encoder in mip.go needs no translation layer.
type Solver interface {
	// NewBoolVar creates a new 0/1 decision variable named name (names need
	// not be unique; they exist for debugging only).
	NewBoolVar(name string) Var
	// NewRowConstraint creates a new linear constraint lb <= sum <= ub.
	NewRowConstraint(lb, ub float64) Constraint
	// SetCoefficient sets v's coefficient in constraint c.
	SetCoefficient(c Constraint, v Var, coeff float64)
	// SetObjectiveCoefficient sets v's coefficient in the (minimized)
	// objective.
	SetObjectiveCoefficient(v Var, coeff float64)
	// Solve runs the solve and returns its status.
	Solve() Status
	// Value returns v's solution value after a Solve that returned
	// StatusOptimal or StatusFeasible.
	Value(v Var) float64
}

// CreateSolver constructs a new Solver instance, or reports
// ErrSolverUnavailable if no MIP backend is compiled into this binary (see
// solver_unavailable.go, replaced by solver_bnb.go under the "mipsolver"
// build tag). This mirrors RegAllocILP::solveWithILP's
// "MPSolver::CreateSolver(...); if (!Solver) return false" null-factory
// check. It is set by an init() in exactly one of solver_unavailable.go /
// solver_bnb.go, selected by the "mipsolver" build tag.
var CreateSolver func() (Solver, error)

// HasSolver reports whether a real MIP backend is compiled in, mirroring
// RegAllocILP.cpp's compile-time HasORTools constant.
var HasSolver bool
