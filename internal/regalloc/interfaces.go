// Package regalloc implements a 0/1 MIP-based global register allocator
// with a complete greedy fallback, driven by a single allocation loop over
// a max-heap priority queue and a live register matrix.
package regalloc

import "github.com/mipalloc/mipalloc/internal/target"

// LivenessDB is the liveness collaborator: interval lookup, overlap test
// (via the returned interval's own Overlaps), and weight. Hosted externally
// in a real compiler; this package only ever reads through this interface.
type LivenessDB interface {
	Interval(v VRegID) *LiveInterval
	Weight(v VRegID) float64
}

// RegisterMatrix is the register-matrix collaborator:
// check/assign/unassign/query. *Matrix implements it directly.
type RegisterMatrix interface {
	Check(li *LiveInterval, p target.PReg) InterferenceKind
	Interferers(li *LiveInterval, p target.PReg) []*VReg
	Assign(v *VReg, p target.PReg)
	Unassign(v *VReg)
	HasPhys(v *VReg) (target.PReg, bool)
}

// VirtRegMap is the virtual-register-map collaborator: has-physreg,
// set-physreg, resolve-hint.
type VirtRegMap interface {
	HasPhys(v VRegID) (target.PReg, bool)
	SetPhys(v VRegID, p target.PReg)
	ResolveHint(v VRegID) Hint
}

// TargetInfo is the target-info collaborator: allocation order, register
// units and allocatability. It has no non-debug-empty test: every seeded
// VReg that ShouldAllocate accepts is queued.
type TargetInfo interface {
	target.Description
	ShouldAllocate(v VRegID) bool
}

// Spiller is the range-edit handle: the only channel through which an
// external spiller mutates allocator-visible state. A Spiller is
// constructed per-function and released before function exit.
type Spiller interface {
	// Spill materializes v's spill decision, producing zero or more new,
	// shorter VRegs (appended to splitVRegs) via the delegate's
	// CanErase/WillShrink callbacks.
	Spill(v *VReg, delegate EditDelegate, splitVRegs *[]*VReg) error
}

// SpillerFactory constructs a Spiller scoped to one function's run, given
// the liveness collaborator. This repository's concrete factory (see
// spiller.go) needs no dom-tree or block-frequency input since its spiller
// is a simple stack-slot spiller, not a rematerializing one.
type SpillerFactory func(liveness LivenessDB) Spiller

// EditDelegate is the small interface the spiller is handed explicitly
// rather than storing globally: two methods, borrowed for the duration of
// one spill operation.
type EditDelegate interface {
	// CanErase reports that v is about to be deleted. If v is currently
	// assigned, the delegate must unassign it from the matrix and report
	// true ("about to remove"); otherwise it clears v's interval and
	// returns false.
	CanErase(v *VReg) bool
	// WillShrink reports that v's interval shrank in place. If v is
	// currently assigned, the delegate unassigns it and re-enqueues it.
	WillShrink(v *VReg)
}
