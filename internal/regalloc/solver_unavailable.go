//go:build !mipsolver

package regalloc

func init() {
	HasSolver = false
	CreateSolver = func() (Solver, error) {
		return nil, ErrSolverUnavailable
	}
}
