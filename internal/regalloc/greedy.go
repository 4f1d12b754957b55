package regalloc

import "github.com/mipalloc/mipalloc/internal/target"

// selectOrSplitFallback is the greedy fallback selector, directly mirroring
// RegAllocILP::selectOrSplitFallback / ::spillInterferences: try a free
// physreg first, then one reachable by evicting lighter occupants, and
// finally spill v itself. It walks the allocation order untouched by any
// hint — hint bias only ever affects the MIP objective (mip.go).
func (a *Allocator) selectOrSplitFallback(v *VReg) (target.PReg, error) {
	order := a.target.Order(v.Class, target.NoPReg)

	var spillCands []target.PReg
	for _, p := range order {
		switch a.matrix.Check(v.Interval, p) {
		case IKFree:
			return p, nil
		case IKVirtReg:
			spillCands = append(spillCands, p)
		}
	}

	for _, p := range spillCands {
		if !a.spillInterferences(v, p) {
			continue
		}
		return p, nil
	}

	a.log.Debug("fallback spilling", "vreg", v.ID)
	if !v.Spillable {
		return target.NoPReg, ErrUnspillableUnassignable(v.ID)
	}

	if err := a.spiller.Spill(v, a, &a.splitVRegs); err != nil {
		return target.NoPReg, err
	}
	return target.NoPReg, nil
}

// spillInterferences enumerates p's interferers; aborts if any is
// non-spillable or heavier than v; otherwise evicts (unassigns + spills)
// every currently-assigned interferer.
func (a *Allocator) spillInterferences(v *VReg, p target.PReg) bool {
	intfs := a.matrix.Interferers(v.Interval, p)
	if len(intfs) == 0 {
		return false
	}

	for _, w := range intfs {
		if !w.Spillable || w.Weight > v.Weight {
			return false
		}
	}

	for _, w := range intfs {
		if _, ok := a.matrix.HasPhys(w); !ok {
			continue
		}
		a.matrix.Unassign(w)
		if err := a.spiller.Spill(w, a, &a.splitVRegs); err != nil {
			a.log.Debug("spill during eviction failed", "vreg", w.ID, "error", err)
		}
	}
	return true
}
