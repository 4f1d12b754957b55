package regalloc

import (
	"testing"

	"github.com/mipalloc/mipalloc/internal/target"
)

func TestAllocatorRunEmptyFunctionTerminatesImmediately(t *testing.T) {
	tgt := newFakeTarget(2)
	a, vrm, _ := newTestAllocator(t, tgt)
	if err := a.Run(nil); err != nil {
		t.Fatalf("unexpected error on empty function: %v", err)
	}
	if len(vrm.assigned) != 0 {
		t.Errorf("expected VirtRegMap unchanged, got %v", vrm.assigned)
	}
}

func TestAllocatorRunSingleVRegSingleFeasiblePReg(t *testing.T) {
	tgt := newFakeTarget(1)
	a, vrm, _ := newTestAllocator(t, tgt)
	v := &VReg{ID: 1, Class: target.ClassGPR, Interval: NewLiveInterval(Range{Start: 0, End: 10}), Weight: 1.0, Spillable: true}

	if err := a.Run([]*VReg{v}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, ok := vrm.HasPhys(v.ID)
	if !ok || p != 0 {
		t.Fatalf("expected vreg 1 assigned to R0, got %v, %v", p, ok)
	}
}

func TestAllocatorRunTrivialTwoNonOverlapping(t *testing.T) {
	tgt := newFakeTarget(2)
	a, vrm, _ := newTestAllocator(t, tgt)

	va := &VReg{ID: 1, Class: target.ClassGPR, Interval: NewLiveInterval(Range{Start: 0, End: 5}), Weight: 1.0, Spillable: true}
	vb := &VReg{ID: 2, Class: target.ClassGPR, Interval: NewLiveInterval(Range{Start: 10, End: 15}), Weight: 0.5, Spillable: true}

	if err := a.Run([]*VReg{va, vb}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pa, _ := vrm.HasPhys(va.ID)
	pb, _ := vrm.HasPhys(vb.ID)
	if pa != 0 || pb != 0 {
		t.Errorf("expected both a, b -> R0, got a=%v b=%v", pa, pb)
	}
}

func TestAllocatorRunSoundAssignmentAndCompleteCoverage(t *testing.T) {
	tgt := newFakeTarget(2)
	a, vrm, matrix := newTestAllocator(t, tgt)

	vregs := []*VReg{
		{ID: 1, Class: target.ClassGPR, Interval: NewLiveInterval(Range{Start: 0, End: 10}), Weight: 3.0, Spillable: true},
		{ID: 2, Class: target.ClassGPR, Interval: NewLiveInterval(Range{Start: 5, End: 15}), Weight: 2.0, Spillable: true},
		{ID: 3, Class: target.ClassGPR, Interval: NewLiveInterval(Range{Start: 8, End: 20}), Weight: 1.0, Spillable: true},
	}
	if err := a.Run(vregs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < len(vregs); i++ {
		for j := i + 1; j < len(vregs); j++ {
			pi, oki := vrm.HasPhys(vregs[i].ID)
			pj, okj := vrm.HasPhys(vregs[j].ID)
			if !oki || !okj {
				continue // one or both were spilled: covered by the completeness check below
			}
			if !vregs[i].Interval.Overlaps(vregs[j].Interval) {
				continue
			}
			if pi == pj {
				t.Errorf("sound-assignment violated: overlapping vregs %d, %d both assigned %v", vregs[i].ID, vregs[j].ID, pi)
			}
		}
	}

	for _, v := range vregs {
		_, assigned := vrm.HasPhys(v.ID)
		_, stillInMatrix := matrix.HasPhys(v)
		if !assigned && stillInMatrix {
			t.Errorf("vreg %d neither assigned in VirtRegMap nor spilled out of the matrix", v.ID)
		}
	}
}

func TestAllocatorRunEmptyAllocationOrderSpillableIsSpilled(t *testing.T) {
	tgt := newFakeTarget(0)
	a, vrm, _ := newTestAllocator(t, tgt)
	v := &VReg{ID: 1, Class: target.ClassGPR, Interval: NewLiveInterval(Range{Start: 0, End: 10}), Weight: 1.0, Spillable: true}

	if err := a.Run([]*VReg{v}); err != nil {
		t.Fatalf("expected spill, not an error, got: %v", err)
	}
	if _, ok := vrm.HasPhys(v.ID); ok {
		t.Error("expected vreg to remain unassigned (spilled), not given a physreg")
	}
}

func TestAllocatorRunEmptyAllocationOrderNonSpillableIsFatal(t *testing.T) {
	tgt := newFakeTarget(0)
	a, _, _ := newTestAllocator(t, tgt)
	v := &VReg{ID: 1, Class: target.ClassGPR, Interval: NewLiveInterval(Range{Start: 0, End: 10}), Weight: 1.0, Spillable: false}

	if err := a.Run([]*VReg{v}); err == nil {
		t.Fatal("expected fatal error for non-spillable vreg with empty allocation order")
	}
}

func TestNewAllocatorRequireSolverWithoutBackendFails(t *testing.T) {
	tgt := newFakeTarget(1)
	vrm := newTestVRM()
	matrix := NewMatrix(tgt)
	liveness := stubLiveness{}

	prevHas := HasSolver
	HasSolver = false
	t.Cleanup(func() { HasSolver = prevHas })

	_, err := NewAllocator(tgt, matrix, vrm, liveness, func(LivenessDB) Spiller {
		return NewInlineSpiller(liveness, 1000)
	}, DriverConfig{RequireSolver: true})
	if err == nil {
		t.Fatal("expected ErrSolverRequired when RequireSolver is set and no backend is compiled in")
	}
}
