package regalloc

import (
	"log/slog"

	"github.com/mipalloc/mipalloc/internal/target"
)

// DriverConfig configures one Allocator run. Zero value is a usable
// default: no solver required, no strict delegate assertions.
type DriverConfig struct {
	// RequireSolver, when true, makes allocator construction fail fatally
	// if no MIP backend is compiled in, instead of silently falling back to
	// the greedy selector for every VReg.
	RequireSolver bool
	// StrictDelegates is not read by the allocator: CanErase and WillShrink
	// perform no delegate-contract checks in any build, and treat a VReg
	// the allocator never saw like any other unassigned VReg.
	StrictDelegates bool
	Logger          *slog.Logger
}

// Allocator is both the allocation driver and its edit delegate: it owns
// the function-scoped queue, matrix, spiller and MIP result cache, and
// implements EditDelegate so the spiller can mutate allocator-visible
// state through range-edit callbacks.
type Allocator struct {
	target   TargetInfo
	matrix   RegisterMatrix
	vrm      VirtRegMap
	liveness LivenessDB
	spiller  Spiller
	queue    *Queue
	log      *slog.Logger

	mipAttempted bool
	mipSolved    bool
	model        *mipModel

	splitVRegs []*VReg
	cfg        DriverConfig
}

// NewAllocator constructs an allocator for one function's run. It returns
// an error only when a solver is required but unavailable; every other
// failure mode is recovered internally during Run.
func NewAllocator(tgt TargetInfo, matrix RegisterMatrix, vrm VirtRegMap, liveness LivenessDB, spillerFactory SpillerFactory, cfg DriverConfig) (*Allocator, error) {
	if cfg.RequireSolver && !HasSolver {
		return nil, ErrSolverRequired()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Allocator{
		target:   tgt,
		matrix:   matrix,
		vrm:      vrm,
		liveness: liveness,
		spiller:  spillerFactory(liveness),
		queue:    NewQueue(),
		log:      log,
		cfg:      cfg,
	}, nil
}

// Run executes the allocation driver loop over the given seed VRegs (every
// allocatable VReg of one function), returning a fatal error only when a
// non-spillable VReg turns out to be unassignable.
func (a *Allocator) Run(seed []*VReg) error {
	for _, v := range seed {
		if a.target.ShouldAllocate(VRegID(v.ID)) {
			a.queue.Push(v)
		}
	}

	for {
		v := a.queue.Pop()
		if v == nil {
			break
		}

		p, err := a.decide(v)
		if err != nil {
			return err
		}
		if p != target.NoPReg {
			a.matrix.Assign(v, p)
			a.vrm.SetPhys(v.ID, p)
		}

		if len(a.splitVRegs) > 0 {
			for _, nv := range a.splitVRegs {
				a.queue.Push(nv)
			}
			a.splitVRegs = a.splitVRegs[:0]
		}
	}

	return nil
}

// decide resolves one VReg's assignment: the first invocation runs the MIP
// encoder and solver (solveWithMIP); every invocation thereafter consults
// its cached result before falling through to the greedy selector.
func (a *Allocator) decide(v *VReg) (target.PReg, error) {
	if !a.mipAttempted {
		a.mipAttempted = true
		candidates := a.collectCandidates(v)
		model, ok := solveWithMIP(candidates, a.target, a.matrix, a.vrm, a.log)
		a.mipSolved = ok
		a.model = model
		if !ok {
			a.log.Debug("MIP solver unavailable or rejected, using fallback")
		}
	}

	if a.mipSolved {
		if p, ok := a.model.assigned[v.ID]; ok {
			return p, nil
		}
		if a.model.spilled[v.ID] {
			delete(a.model.spilled, v.ID)
			if !v.Spillable {
				return target.NoPReg, ErrUnspillableUnassignable(v.ID)
			}
			if err := a.spiller.Spill(v, a, &a.splitVRegs); err != nil {
				return target.NoPReg, err
			}
			return target.NoPReg, nil
		}
	}

	return a.selectOrSplitFallback(v)
}

// collectCandidates gathers every allocatable VReg the MIP model should
// cover. In this repository's single-pass driver that is simply every VReg
// the caller seeded the queue with; a host compiler could instead scan its
// own VReg table the way RegAllocILP::solveWithILP iterates
// MRI->getNumVirtRegs().
func (a *Allocator) collectCandidates(first *VReg) []*VReg {
	all := []*VReg{first}
	for a.queue.Len() > 0 {
		all = append(all, a.queue.Pop())
	}
	for _, v := range all[1:] {
		a.queue.Push(v)
	}
	return all
}

// CanErase implements EditDelegate. If v is currently assigned, it is
// unassigned from the matrix and true ("about to remove") is reported;
// otherwise v's interval is cleared and false is returned.
func (a *Allocator) CanErase(v *VReg) bool {
	if _, ok := a.matrix.HasPhys(v); ok {
		a.matrix.Unassign(v)
		return true
	}
	v.Interval.Clear()
	return false
}

// WillShrink implements EditDelegate. If v is currently assigned it is
// unassigned and re-enqueued, since its relaxed constraints may now fit a
// better register.
func (a *Allocator) WillShrink(v *VReg) {
	if _, ok := a.matrix.HasPhys(v); !ok {
		return
	}
	a.matrix.Unassign(v)
	a.queue.Push(v)
}
