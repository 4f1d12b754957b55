package regalloc

// bruteForceSolver is a small, obviously-correct exact 0/1 solver used only
// by this package's tests, so MIP-path tests (mip_test.go, driver_test.go)
// don't depend on the mipsolver build tag's solver_bnb.go. It exhaustively
// enumerates every assignment, which is fine at the handful-of-variables
// scale these tests construct.
type bruteForceSolver struct {
	objCoeff []float64
	cons     []rowConstraint
	best     []int8
}

func newBruteForceSolver() *bruteForceSolver { return &bruteForceSolver{} }

func (s *bruteForceSolver) NewBoolVar(name string) Var {
	s.objCoeff = append(s.objCoeff, 0)
	return Var(len(s.objCoeff) - 1)
}

func (s *bruteForceSolver) NewRowConstraint(lb, ub float64) Constraint {
	s.cons = append(s.cons, rowConstraint{lb: lb, ub: ub})
	return Constraint(len(s.cons) - 1)
}

func (s *bruteForceSolver) SetCoefficient(c Constraint, v Var, coeff float64) {
	s.cons[c].terms = append(s.cons[c].terms, term{v: v, coeff: coeff})
}

func (s *bruteForceSolver) SetObjectiveCoefficient(v Var, coeff float64) {
	s.objCoeff[v] = coeff
}

func (s *bruteForceSolver) Value(v Var) float64 {
	if int(v) < 0 || int(v) >= len(s.best) {
		return 0
	}
	return float64(s.best[v])
}

func (s *bruteForceSolver) Solve() Status {
	n := len(s.objCoeff)
	assignment := make([]int8, n)
	bestObj := 0.0
	found := false

	var rec func(i int)
	rec = func(i int) {
		if i == n {
			for _, c := range s.cons {
				sum := 0.0
				for _, t := range c.terms {
					sum += t.coeff * float64(assignment[t.v])
				}
				if sum < c.lb-1e-9 || sum > c.ub+1e-9 {
					return
				}
			}
			obj := 0.0
			for i, c := range s.objCoeff {
				obj += c * float64(assignment[i])
			}
			if !found || obj < bestObj {
				found = true
				bestObj = obj
				s.best = append([]int8(nil), assignment...)
			}
			return
		}
		for _, v := range [2]int8{0, 1} {
			assignment[i] = v
			rec(i + 1)
		}
	}
	rec(0)

	if !found {
		return StatusInfeasible
	}
	return StatusOptimal
}
