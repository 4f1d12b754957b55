package regalloc

import "github.com/mipalloc/mipalloc/internal/target"

// fakeTarget is a minimal TargetInfo over a handful of GPR-class PRegs
// named R0..R(n-1), every one single-unit (no aliasing), used across this
// package's tests in place of a real target.Description.
type fakeTarget struct {
	n int
}

func newFakeTarget(n int) fakeTarget { return fakeTarget{n: n} }

func (f fakeTarget) APIVersion() string { return "1.0.0" }

func (f fakeTarget) RegisterInfo(p target.PReg) target.Register {
	if int(p) < 0 || int(p) >= f.n {
		return target.Register{}
	}
	return target.Register{Name: regName(p), Class: target.ClassGPR, Units: []target.Unit{target.Unit(p)}}
}

func (f fakeTarget) RegUnits(p target.PReg) []target.Unit {
	return f.RegisterInfo(p).Units
}

func (f fakeTarget) Order(class target.Class, hint target.PReg) []target.PReg {
	if class != target.ClassGPR {
		return nil
	}
	order := make([]target.PReg, 0, f.n)
	if hint != target.NoPReg && int(hint) >= 0 && int(hint) < f.n {
		order = append(order, hint)
	}
	for i := 0; i < f.n; i++ {
		if target.PReg(i) == hint {
			continue
		}
		order = append(order, target.PReg(i))
	}
	return order
}

func (f fakeTarget) ShouldAllocate(VRegID) bool { return true }

func regName(p target.PReg) string {
	names := []string{"R0", "R1", "R2", "R3", "R4", "R5", "R6", "R7"}
	if int(p) < len(names) {
		return names[p]
	}
	return "R?"
}

// fakeTargetInfo wraps fakeTarget to satisfy TargetInfo (target.Description
// embedding requires a pointer or value consistently implementing every
// method; fakeTarget already does, by value).
type fakeTargetInfo = fakeTarget
