package regalloc

import "github.com/mipalloc/mipalloc/internal/target"

// VRegID is a dense integer identity in [0, N) for a virtual register.
type VRegID int

// Hint is a VReg's allocation hint: either another VReg whose eventual
// assignment should be followed, or a concrete physreg. At most one of the
// two fields is meaningful; HasVReg/HasPReg report which.
type Hint struct {
	VReg    VRegID
	PReg    target.PReg
	HasVReg bool
	HasPReg bool
}

// NoHint is the empty hint.
var NoHint = Hint{PReg: target.NoPReg}

// VReg is a virtual register: identity, class, live interval, spill weight,
// spillability and hint.
type VReg struct {
	ID        VRegID
	Class     target.Class
	Interval  *LiveInterval
	Weight    float64
	Spillable bool
	Hint      Hint
}
