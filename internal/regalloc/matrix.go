package regalloc

import "github.com/mipalloc/mipalloc/internal/target"

// InterferenceKind classifies the result of checking one VReg against one
// PReg.
type InterferenceKind int

const (
	// IKFree means no conflict on any unit of the candidate PReg.
	IKFree InterferenceKind = iota
	// IKVirtReg means the only conflicts are with other virtual assignees
	// — evictable.
	IKVirtReg
	// IKFixed means the candidate conflicts with a fixed (non-virtual)
	// reservation — not evictable.
	IKFixed
)

// assignment records which VReg currently occupies a unit, and whether that
// occupant is a fixed (non-evictable) reservation.
type assignment struct {
	reg   *VReg
	fixed bool
}

// Matrix is the live register matrix: a mapping from register unit to the
// set of currently assigned intervals, with queries at (interval, preg)
// granularity.
type Matrix struct {
	desc units
	// per-unit list of current assignments, ordered by insertion (oldest
	// first); Interferers yields them in reverse so heavier recent
	// candidates are scanned first.
	byUnit map[target.Unit][]*assignment
	// reverse index: VReg -> PReg, for Unassign.
	assignedTo map[VRegID]target.PReg
}

// units is the minimal target facet Matrix needs: register unit expansion.
type units interface {
	RegUnits(p target.PReg) []target.Unit
}

// NewMatrix builds an empty matrix over the given target's register units.
func NewMatrix(desc units) *Matrix {
	return &Matrix{
		desc:       desc,
		byUnit:     make(map[target.Unit][]*assignment),
		assignedTo: make(map[VRegID]target.PReg),
	}
}

// Check reports whether assigning li to p would conflict with an existing
// assignment, and if so, whether that conflict is evictable.
func (m *Matrix) Check(li *LiveInterval, p target.PReg) InterferenceKind {
	kind := IKFree
	for _, u := range m.desc.RegUnits(p) {
		for _, a := range m.byUnit[u] {
			if !a.reg.Interval.Overlaps(li) {
				continue
			}
			if a.fixed {
				return IKFixed
			}
			kind = IKVirtReg
		}
	}
	return kind
}

// Interferers enumerates conflicting assignees across all register units of
// p, yielded in reverse of the matrix's natural (insertion) order, so the
// heaviest/most-recent candidates from each unit are examined first when
// scanning for eviction. Fixed reservations are never returned (they are
// surfaced only via Check's IKFixed).
func (m *Matrix) Interferers(li *LiveInterval, p target.PReg) []*VReg {
	seen := make(map[VRegID]bool)
	var out []*VReg
	for _, u := range m.desc.RegUnits(p) {
		lst := m.byUnit[u]
		for i := len(lst) - 1; i >= 0; i-- {
			a := lst[i]
			if a.fixed || seen[a.reg.ID] || !a.reg.Interval.Overlaps(li) {
				continue
			}
			seen[a.reg.ID] = true
			out = append(out, a.reg)
		}
	}
	return out
}

// Assign installs v at PReg p across every unit p expands to.
func (m *Matrix) Assign(v *VReg, p target.PReg) {
	a := &assignment{reg: v}
	for _, u := range m.desc.RegUnits(p) {
		m.byUnit[u] = append(m.byUnit[u], a)
	}
	m.assignedTo[v.ID] = p
}

// AssignFixed installs a non-evictable reservation for v at p (used to seed
// the matrix with pre-colored/fixed registers before allocation begins).
func (m *Matrix) AssignFixed(v *VReg, p target.PReg) {
	a := &assignment{reg: v, fixed: true}
	for _, u := range m.desc.RegUnits(p) {
		m.byUnit[u] = append(m.byUnit[u], a)
	}
	m.assignedTo[v.ID] = p
}

// Unassign removes v from the matrix. It is a no-op if v was not assigned.
// Assign(v, p) followed by Unassign(v) leaves the matrix byte-identical to
// its pre-assignment state.
func (m *Matrix) Unassign(v *VReg) {
	p, ok := m.assignedTo[v.ID]
	if !ok {
		return
	}
	for _, u := range m.desc.RegUnits(p) {
		lst := m.byUnit[u]
		for i, a := range lst {
			if a.reg.ID == v.ID {
				lst = append(lst[:i], lst[i+1:]...)
				break
			}
		}
		if len(lst) == 0 {
			delete(m.byUnit, u)
		} else {
			m.byUnit[u] = lst
		}
	}
	delete(m.assignedTo, v.ID)
}

// HasPhys reports whether v currently occupies a physreg in the matrix, and
// returns it.
func (m *Matrix) HasPhys(v *VReg) (target.PReg, bool) {
	p, ok := m.assignedTo[v.ID]
	return p, ok
}
