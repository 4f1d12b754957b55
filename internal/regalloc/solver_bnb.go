//go:build mipsolver

package regalloc

import (
	"math"

	"github.com/mipalloc/mipalloc/internal/config"
)

func init() {
	HasSolver = true
	CreateSolver = func() (Solver, error) {
		return newBnBSolver(config.DefaultSolverNodeBudget), nil
	}

	// "ilp" and "regalloc-ilp" mirror RegisterRegAlloc's two registered
	// names for the same pass in the original LLVM source. Registered only
	// here, under the "mipsolver" tag, so the strategy is selectable
	// exactly when a real solver backend backs it.
	_ = Register("ilp", ">=1.0.0", mipAllocatorFactory)
	_ = Register("regalloc-ilp", ">=1.0.0", mipAllocatorFactory)
}

// term is one (variable, coefficient) pair inside a constraint row.
type term struct {
	v     Var
	coeff float64
}

type rowConstraint struct {
	lb, ub float64
	terms  []term
}

// bnbSolver is a direct, dependency-free 0/1 branch-and-bound solver
// implementing the Solver interface. No LP/MIP library exists anywhere in
// this repository's retrieval pack (see DESIGN.md), so variables and row
// constraints are searched directly rather than relaxed through an external
// simplex routine: vars are decided in declaration order with constraint
// and objective bound-and-prune, capped at nodeBudget expansions.
type bnbSolver struct {
	objCoeff   []float64
	varTerms   [][]int // index into cons for each var: which constraints reference it
	cons       []rowConstraint
	nodeBudget int
	assignment []int8
}

func newBnBSolver(nodeBudget int) *bnbSolver {
	if nodeBudget <= 0 {
		nodeBudget = config.DefaultSolverNodeBudget
	}
	return &bnbSolver{nodeBudget: nodeBudget}
}

func (s *bnbSolver) NewBoolVar(name string) Var {
	s.objCoeff = append(s.objCoeff, 0)
	s.varTerms = append(s.varTerms, nil)
	return Var(len(s.objCoeff) - 1)
}

func (s *bnbSolver) NewRowConstraint(lb, ub float64) Constraint {
	s.cons = append(s.cons, rowConstraint{lb: lb, ub: ub})
	return Constraint(len(s.cons) - 1)
}

func (s *bnbSolver) SetCoefficient(c Constraint, v Var, coeff float64) {
	s.cons[c].terms = append(s.cons[c].terms, term{v: v, coeff: coeff})
	s.varTerms[v] = append(s.varTerms[v], int(c))
}

func (s *bnbSolver) SetObjectiveCoefficient(v Var, coeff float64) {
	s.objCoeff[v] = coeff
}

func (s *bnbSolver) Value(v Var) float64 {
	if int(v) < 0 || int(v) >= len(s.assignment) {
		return 0
	}
	return float64(s.assignment[v])
}

func (s *bnbSolver) Solve() Status {
	n := len(s.objCoeff)
	s.assignment = make([]int8, n)
	best := make([]int8, n)
	bestObj := math.Inf(1)
	haveIncumbent := false
	nodes := 0
	hitBudget := false

	partial := make([]float64, len(s.cons)) // running sum per constraint
	remaining := make([]float64, len(s.cons))
	for ci, c := range s.cons {
		var pos float64
		for _, t := range c.terms {
			if t.coeff > 0 {
				pos += t.coeff
			}
		}
		remaining[ci] = pos
	}

	var dfs func(i int, objSoFar float64) bool // returns false when node budget exhausted (abort search)
	dfs = func(i int, objSoFar float64) bool {
		nodes++
		if nodes > s.nodeBudget {
			hitBudget = true
			return false
		}
		if i == n {
			ok := true
			for ci, c := range s.cons {
				if partial[ci] < c.lb-1e-9 || partial[ci] > c.ub+1e-9 {
					ok = false
					break
				}
			}
			if ok && objSoFar < bestObj {
				bestObj = objSoFar
				copy(best, s.assignment)
				haveIncumbent = true
			}
			return true
		}

		// optimistic objective bound: remaining vars can contribute at best
		// min(0, coeff) each.
		lowerBound := objSoFar
		for j := i; j < n; j++ {
			if s.objCoeff[j] < 0 {
				lowerBound += s.objCoeff[j]
			}
		}
		if haveIncumbent && lowerBound >= bestObj {
			return true
		}

		// try 0 then 1; try the value matching the sign of the objective
		// coefficient first (greedy ordering: negative coeff prefers 1).
		order := [2]int8{0, 1}
		if s.objCoeff[i] < 0 {
			order = [2]int8{1, 0}
		}
		for _, val := range order {
			// apply
			touched := s.varTerms[i]
			feasible := true
			for _, ci := range touched {
				c := &s.cons[ci]
				delta := 0.0
				for _, t := range c.terms {
					if t.v == Var(i) {
						delta = t.coeff * float64(val)
						if val == 1 {
							remaining[ci] -= t.coeff
						}
						break
					}
				}
				partial[ci] += delta
				if partial[ci] > c.ub+1e-9 {
					feasible = false
				}
				if partial[ci]+remaining[ci] < c.lb-1e-9 {
					feasible = false
				}
			}

			if feasible {
				s.assignment[i] = val
				if !dfs(i+1, objSoFar+s.objCoeff[i]*float64(val)) {
					// undo before propagating abort
					s.undo(i, val, partial, remaining)
					return false
				}
			}
			s.undo(i, val, partial, remaining)
		}
		return true
	}

	dfs(0, 0)

	if !haveIncumbent {
		return StatusInfeasible
	}
	s.assignment = best
	if hitBudget {
		return StatusFeasible
	}
	return StatusOptimal
}

// undo reverses the bookkeeping applied by one trial assignment of var i to
// val, restoring partial/remaining to their pre-trial state.
func (s *bnbSolver) undo(i int, val int8, partial, remaining []float64) {
	for _, ci := range s.varTerms[i] {
		c := &s.cons[ci]
		for _, t := range c.terms {
			if t.v == Var(i) {
				if val == 1 {
					partial[ci] -= t.coeff
					remaining[ci] += t.coeff
				}
				break
			}
		}
	}
}
