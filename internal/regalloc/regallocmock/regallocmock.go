// Package regallocmock holds hand-authored test doubles for
// internal/regalloc's collaborator interfaces, in the shape
// internal/mockgen would produce for them (concurrency-safe stub/calls
// fields, a Reset helper) — written by hand here since generation needs a
// live go/packages load this repository's build step does not perform.
package regallocmock

import (
	"sync"

	"github.com/mipalloc/mipalloc/internal/regalloc"
	"github.com/mipalloc/mipalloc/internal/target"
)

// LivenessDBMock is a test double for regalloc.LivenessDB.
type LivenessDBMock struct {
	mu           sync.Mutex
	IntervalStub func(v regalloc.VRegID) *regalloc.LiveInterval
	WeightStub   func(v regalloc.VRegID) float64

	Intervals map[regalloc.VRegID]*regalloc.LiveInterval
	Weights   map[regalloc.VRegID]float64
}

// NewLivenessDBMock returns an empty mock backed by plain maps, for tests
// that just want table data rather than per-call stubs.
func NewLivenessDBMock() *LivenessDBMock {
	return &LivenessDBMock{Intervals: map[regalloc.VRegID]*regalloc.LiveInterval{}, Weights: map[regalloc.VRegID]float64{}}
}

func (m *LivenessDBMock) Interval(v regalloc.VRegID) *regalloc.LiveInterval {
	m.mu.Lock()
	stub := m.IntervalStub
	m.mu.Unlock()
	if stub != nil {
		return stub(v)
	}
	return m.Intervals[v]
}

func (m *LivenessDBMock) Weight(v regalloc.VRegID) float64 {
	m.mu.Lock()
	stub := m.WeightStub
	m.mu.Unlock()
	if stub != nil {
		return stub(v)
	}
	return m.Weights[v]
}

func (m *LivenessDBMock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IntervalStub = nil
	m.WeightStub = nil
	m.Intervals = map[regalloc.VRegID]*regalloc.LiveInterval{}
	m.Weights = map[regalloc.VRegID]float64{}
}

// VirtRegMapMock is a test double for regalloc.VirtRegMap, backed by a
// plain map so tests can assert on SetPhys calls directly.
type VirtRegMapMock struct {
	mu         sync.Mutex
	Assigned   map[regalloc.VRegID]target.PReg
	Hints      map[regalloc.VRegID]regalloc.Hint
	SetCalls   []VirtRegMapSetCall
	HasPhysErr bool
}

type VirtRegMapSetCall struct {
	VReg regalloc.VRegID
	PReg target.PReg
}

func NewVirtRegMapMock() *VirtRegMapMock {
	return &VirtRegMapMock{Assigned: map[regalloc.VRegID]target.PReg{}, Hints: map[regalloc.VRegID]regalloc.Hint{}}
}

func (m *VirtRegMapMock) HasPhys(v regalloc.VRegID) (target.PReg, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Assigned[v]
	return p, ok
}

func (m *VirtRegMapMock) SetPhys(v regalloc.VRegID, p target.PReg) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Assigned[v] = p
	m.SetCalls = append(m.SetCalls, VirtRegMapSetCall{VReg: v, PReg: p})
}

func (m *VirtRegMapMock) ResolveHint(v regalloc.VRegID) regalloc.Hint {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.Hints[v]; ok {
		return h
	}
	return regalloc.NoHint
}

func (m *VirtRegMapMock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Assigned = map[regalloc.VRegID]target.PReg{}
	m.Hints = map[regalloc.VRegID]regalloc.Hint{}
	m.SetCalls = nil
}

// SpillerMock is a test double for regalloc.Spiller recording every Spill
// call it receives, with an optional stub for custom split-VReg behavior.
type SpillerMock struct {
	mu        sync.Mutex
	SpillStub func(v *regalloc.VReg, delegate regalloc.EditDelegate, splitVRegs *[]*regalloc.VReg) error
	Calls     []*regalloc.VReg
	Err       error
}

func (m *SpillerMock) Spill(v *regalloc.VReg, delegate regalloc.EditDelegate, splitVRegs *[]*regalloc.VReg) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, v)
	stub := m.SpillStub
	err := m.Err
	m.mu.Unlock()
	if stub != nil {
		return stub(v, delegate, splitVRegs)
	}
	delegate.CanErase(v)
	return err
}

func (m *SpillerMock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.Err = nil
	m.SpillStub = nil
}

// SolverMock is a test double for regalloc.Solver, letting tests force a
// specific status/value assignment without compiling the mipsolver tag.
type SolverMock struct {
	mu          sync.Mutex
	nextVar     regalloc.Var
	nextCon     regalloc.Constraint
	StatusToRet regalloc.Status
	Values      map[regalloc.Var]float64
}

func NewSolverMock(status regalloc.Status) *SolverMock {
	return &SolverMock{StatusToRet: status, Values: map[regalloc.Var]float64{}}
}

func (m *SolverMock) NewBoolVar(name string) regalloc.Var {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.nextVar
	m.nextVar++
	return v
}

func (m *SolverMock) NewRowConstraint(lb, ub float64) regalloc.Constraint {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.nextCon
	m.nextCon++
	return c
}

func (m *SolverMock) SetCoefficient(c regalloc.Constraint, v regalloc.Var, coeff float64) {}

func (m *SolverMock) SetObjectiveCoefficient(v regalloc.Var, coeff float64) {}

func (m *SolverMock) Solve() regalloc.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StatusToRet
}

func (m *SolverMock) Value(v regalloc.Var) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Values[v]
}
