package regalloc

import (
	"log/slog"
	"strconv"

	"github.com/mipalloc/mipalloc/internal/target"
)

// candidate mirrors RegAllocILP.cpp's local Candidate struct: one
// allocatable VReg plus its filtered list of allowed PRegs.
type candidate struct {
	vreg      *VReg
	pregs     []target.PReg
	allowed   map[target.PReg]bool
	spillable bool
}

// mipModel holds everything solveWithMIP needs to translate a solved model
// back into decisions, mirroring RegAllocILP::AssignedPhysRegs/SpillDecisions.
type mipModel struct {
	assigned map[VRegID]target.PReg
	spilled  map[VRegID]bool
}

// solveWithMIP attempts the global MIP solve exactly once per function. It
// returns (model, true) on acceptance (solver status Optimal or Feasible
// and every candidate decided), or (nil, false) if the solver is unusable:
// solver factory failure, a-priori infeasibility, a non-accepting solve
// status, or an undecided variable after rounding.
func solveWithMIP(candidates []*VReg, tgt TargetInfo, matrix RegisterMatrix, vrm VirtRegMap, log *slog.Logger) (*mipModel, bool) {
	cands := make([]candidate, 0, len(candidates))
	for _, v := range candidates {
		hint := vrm.ResolveHint(v.ID)
		hintPReg := resolveHintPReg(hint, vrm)
		order := tgt.Order(v.Class, hintPReg)

		c := candidate{vreg: v, spillable: v.Spillable, allowed: make(map[target.PReg]bool)}
		for _, p := range order {
			switch matrix.Check(v.Interval, p) {
			case IKFree, IKVirtReg:
				c.pregs = append(c.pregs, p)
				c.allowed[p] = true
			}
		}

		if len(c.pregs) == 0 && !c.spillable {
			log.Debug("mip: unsatisfied fixed register", "vreg", v.ID)
			return nil, false
		}

		cands = append(cands, c)
	}

	solver, err := CreateSolver()
	if err != nil || solver == nil {
		log.Debug("mip: solver unavailable", "error", err)
		return nil, false
	}

	assignVars := make(map[VRegID]map[target.PReg]Var, len(cands))
	spillVars := make(map[VRegID]Var, len(cands))

	for _, c := range cands {
		choice := solver.NewRowConstraint(1, 1)
		vmap := make(map[target.PReg]Var, len(c.pregs))

		hint := vrm.ResolveHint(c.vreg.ID)
		hintPReg := resolveHintPReg(hint, vrm)

		for rank, p := range c.pregs {
			v := solver.NewBoolVar(varName(c.vreg.ID, p))
			vmap[p] = v
			solver.SetCoefficient(choice, v, 1.0)

			hintPenalty := 0.0
			if hintPReg != target.NoPReg && hintPReg == p {
				hintPenalty = -0.1
			}
			solver.SetObjectiveCoefficient(v, hintPenalty+0.001*float64(rank))
		}
		assignVars[c.vreg.ID] = vmap

		if c.spillable {
			sv := solver.NewBoolVar(spillVarName(c.vreg.ID))
			spillVars[c.vreg.ID] = sv
			solver.SetCoefficient(choice, sv, 1.0)
			solver.SetObjectiveCoefficient(sv, c.vreg.Weight)
		}
	}

	// Interference is computed at VReg granularity (same PReg on both sides),
	// not per register-unit; safe because allowed sets already excluded any
	// p conflicting with a fixed reservation, but tight-not-optimal when two
	// candidates' allowed sets intersect on distinct PRegs sharing a unit.
	// Left as a known modelling approximation.
	for i := 0; i < len(cands); i++ {
		for j := i + 1; j < len(cands); j++ {
			a, b := cands[i], cands[j]
			if !a.vreg.Interval.Overlaps(b.vreg.Interval) {
				continue
			}
			for _, p := range a.pregs {
				if !b.allowed[p] {
					continue
				}
				varA := assignVars[a.vreg.ID][p]
				varB := assignVars[b.vreg.ID][p]
				con := solver.NewRowConstraint(0, 1)
				solver.SetCoefficient(con, varA, 1.0)
				solver.SetCoefficient(con, varB, 1.0)
			}
		}
	}

	status := solver.Solve()
	if status != StatusOptimal && status != StatusFeasible {
		log.Debug("mip: solve rejected", "status", status)
		return nil, false
	}

	model := &mipModel{assigned: make(map[VRegID]target.PReg), spilled: make(map[VRegID]bool)}
	for _, c := range cands {
		assigned := target.NoPReg
		for _, p := range c.pregs {
			if solver.Value(assignVars[c.vreg.ID][p]) > 0.5 {
				assigned = p
				break
			}
		}
		if assigned != target.NoPReg {
			model.assigned[c.vreg.ID] = assigned
			continue
		}
		if sv, ok := spillVars[c.vreg.ID]; ok && solver.Value(sv) > 0.5 {
			model.spilled[c.vreg.ID] = true
			continue
		}
		log.Debug("mip: no assignment for candidate", "vreg", c.vreg.ID)
		return nil, false
	}

	return model, true
}

func resolveHintPReg(h Hint, vrm VirtRegMap) target.PReg {
	if h.HasPReg {
		return h.PReg
	}
	if h.HasVReg {
		if p, ok := vrm.HasPhys(h.VReg); ok {
			return p
		}
	}
	return target.NoPReg
}

func varName(v VRegID, p target.PReg) string {
	return "x_" + strconv.Itoa(int(v)) + "_" + strconv.Itoa(int(p))
}

func spillVarName(v VRegID) string {
	return "spill_" + strconv.Itoa(int(v))
}
