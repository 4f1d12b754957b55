package regalloc

import (
	"log/slog"
	"testing"

	"github.com/mipalloc/mipalloc/internal/target"
)

func withBruteForceSolver(t *testing.T) {
	t.Helper()
	prevCreate, prevHas := CreateSolver, HasSolver
	CreateSolver = func() (Solver, error) { return newBruteForceSolver(), nil }
	HasSolver = true
	t.Cleanup(func() { CreateSolver = prevCreate; HasSolver = prevHas })
}

func TestSolveWithMIPTrivialNonOverlapping(t *testing.T) {
	withBruteForceSolver(t)
	tgt := newFakeTarget(2)
	matrix := NewMatrix(tgt)
	vrm := newTestVRM()

	a := &VReg{ID: 1, Class: target.ClassGPR, Interval: NewLiveInterval(Range{Start: 0, End: 5}), Weight: 1.0, Spillable: true, Hint: NoHint}
	b := &VReg{ID: 2, Class: target.ClassGPR, Interval: NewLiveInterval(Range{Start: 10, End: 15}), Weight: 0.5, Spillable: true, Hint: NoHint}

	model, ok := solveWithMIP([]*VReg{a, b}, tgt, matrix, vrm, slog.Default())
	if !ok {
		t.Fatal("expected MIP to accept trivial non-overlapping case")
	}
	if model.assigned[a.ID] != 0 || model.assigned[b.ID] != 0 {
		t.Errorf("expected both a, b -> R0 (lowest rank), got a=%v b=%v", model.assigned[a.ID], model.assigned[b.ID])
	}
}

func TestSolveWithMIPInterferingPair(t *testing.T) {
	withBruteForceSolver(t)
	tgt := newFakeTarget(2)
	matrix := NewMatrix(tgt)
	vrm := newTestVRM()

	a := &VReg{ID: 1, Class: target.ClassGPR, Interval: NewLiveInterval(Range{Start: 0, End: 10}), Weight: 1.0, Spillable: true, Hint: NoHint}
	b := &VReg{ID: 2, Class: target.ClassGPR, Interval: NewLiveInterval(Range{Start: 0, End: 10}), Weight: 1.0, Spillable: true, Hint: NoHint}

	model, ok := solveWithMIP([]*VReg{a, b}, tgt, matrix, vrm, slog.Default())
	if !ok {
		t.Fatal("expected MIP to accept interfering-pair case")
	}
	if model.assigned[a.ID] == model.assigned[b.ID] {
		t.Fatalf("overlapping VRegs must not share a PReg, both got %v", model.assigned[a.ID])
	}
}

func TestSolveWithMIPHintBiasOutweighsRank(t *testing.T) {
	withBruteForceSolver(t)
	tgt := newFakeTarget(4)
	matrix := NewMatrix(tgt)
	vrm := newTestVRM()
	vrm.Hints[1] = Hint{PReg: 3, HasPReg: true}

	v := &VReg{ID: 1, Class: target.ClassGPR, Interval: NewLiveInterval(Range{Start: 0, End: 5}), Weight: 1.0, Spillable: true, Hint: Hint{PReg: 3, HasPReg: true}}

	model, ok := solveWithMIP([]*VReg{v}, tgt, matrix, vrm, slog.Default())
	if !ok {
		t.Fatal("expected MIP to accept hinted single-VReg case")
	}
	if model.assigned[v.ID] != 3 {
		t.Errorf("expected hint to win, got %v", model.assigned[v.ID])
	}
}

func TestSolveWithMIPUnsatisfiedFixedNonSpillable(t *testing.T) {
	withBruteForceSolver(t)
	tgt := newFakeTarget(1)
	matrix := NewMatrix(tgt)
	vrm := newTestVRM()

	fixed := &VReg{ID: 99, Interval: NewLiveInterval(Range{Start: 0, End: 100})}
	matrix.AssignFixed(fixed, 0)

	v := &VReg{ID: 1, Class: target.ClassGPR, Interval: NewLiveInterval(Range{Start: 0, End: 10}), Weight: 1.0, Spillable: false}

	_, ok := solveWithMIP([]*VReg{v}, tgt, matrix, vrm, slog.Default())
	if ok {
		t.Fatal("expected MIP to reject a-priori-infeasible non-spillable candidate")
	}
}

// testVRM is a VirtRegMap test double, separate from regallocmock's exported
// mocks since internal package tests can reach unexported fields directly.
type testVRM struct {
	assigned map[VRegID]target.PReg
	Hints    map[VRegID]Hint
}

func newTestVRM() *testVRM {
	return &testVRM{assigned: map[VRegID]target.PReg{}, Hints: map[VRegID]Hint{}}
}

func (v *testVRM) HasPhys(id VRegID) (target.PReg, bool) { p, ok := v.assigned[id]; return p, ok }
func (v *testVRM) SetPhys(id VRegID, p target.PReg)      { v.assigned[id] = p }
func (v *testVRM) ResolveHint(id VRegID) Hint {
	if h, ok := v.Hints[id]; ok {
		return h
	}
	return NoHint
}
