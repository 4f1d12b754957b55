package regalloc

// inlineSpiller is this repository's concrete inline spiller. It is
// deliberately simple: every spill gets the next 8-byte-aligned stack slot,
// and the spilled VReg's interval is replaced by one shorter VReg per
// remaining contiguous live range after the spill point, grounded on
// doSpill/spillInterval-style stack-slot bookkeeping and on LLVM's
// LiveRangeEdit callback shape.
type inlineSpiller struct {
	liveness      LivenessDB
	nextSpillSlot int
	nextVRegID    VRegID
	spillSlots    map[VRegID]int
}

// NewInlineSpiller returns a new *inlineSpiller whose split-off VRegs are
// numbered from firstFreeVReg; callers wrap it in a closure to use it as a
// SpillerFactory.
func NewInlineSpiller(liveness LivenessDB, firstFreeVReg VRegID) Spiller {
	return &inlineSpiller{liveness: liveness, nextSpillSlot: 8, nextVRegID: firstFreeVReg, spillSlots: make(map[VRegID]int)}
}

// SpillSlots returns the stack-slot assignment built up across every Spill
// call so far, keyed by the VReg that occupies each slot (for VRegs spilled
// whole, not split).
func (s *inlineSpiller) SpillSlots() map[VRegID]int { return s.spillSlots }

// Spill implements Spiller. It erases v (invoking delegate.CanErase), and
// if v's interval spans more than one disjoint range, emits one fresh VReg
// per range after the first so later uses can still be allocated — a
// minimal rematerialization-free split. Rematerialization is a spiller
// concern distinct from allocation, and this spiller does not attempt it.
func (s *inlineSpiller) Spill(v *VReg, delegate EditDelegate, splitVRegs *[]*VReg) error {
	slot := s.nextSpillSlot
	s.nextSpillSlot += 8
	s.spillSlots[v.ID] = slot

	ranges := v.Interval.Ranges
	delegate.CanErase(v)

	for i := 1; i < len(ranges); i++ {
		id := s.nextVRegID
		s.nextVRegID++
		nv := &VReg{
			ID:        id,
			Class:     v.Class,
			Interval:  NewLiveInterval(ranges[i]),
			Weight:    s.liveness.Weight(v.ID),
			Spillable: v.Spillable,
			Hint:      NoHint,
		}
		*splitVRegs = append(*splitVRegs, nv)
	}

	return nil
}
