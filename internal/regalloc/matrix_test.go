package regalloc

import (
	"reflect"
	"testing"

	"github.com/mipalloc/mipalloc/internal/target"
)

func TestMatrixAssignThenUnassignRoundTrips(t *testing.T) {
	m := NewMatrix(newFakeTarget(4))
	v := &VReg{ID: 1, Interval: NewLiveInterval(Range{Start: 0, End: 10})}

	before := snapshotMatrix(m)
	m.Assign(v, 0)
	m.Unassign(v)
	after := snapshotMatrix(m)

	if !reflect.DeepEqual(before, after) {
		t.Fatalf("matrix not byte-identical after assign/unassign round trip: before=%v after=%v", before, after)
	}
}

func snapshotMatrix(m *Matrix) map[target.Unit][]VRegID {
	out := map[target.Unit][]VRegID{}
	for unit, assigns := range m.byUnit {
		var ids []VRegID
		for _, a := range assigns {
			if a.reg != nil {
				ids = append(ids, a.reg.ID)
			}
		}
		out[unit] = ids
	}
	return out
}

func TestMatrixCheckFreeVsVirtRegVsFixed(t *testing.T) {
	m := NewMatrix(newFakeTarget(2))
	a := &VReg{ID: 1, Interval: NewLiveInterval(Range{Start: 0, End: 10})}
	b := &VReg{ID: 2, Interval: NewLiveInterval(Range{Start: 5, End: 15})}
	fixed := &VReg{ID: 99, Interval: NewLiveInterval(Range{Start: 0, End: 100})}

	if k := m.Check(a.Interval, 0); k != IKFree {
		t.Fatalf("expected IKFree on empty matrix, got %v", k)
	}

	m.Assign(a, 0)
	if k := m.Check(b.Interval, 0); k != IKVirtReg {
		t.Fatalf("expected IKVirtReg after overlapping assignment, got %v", k)
	}
	if k := m.Check(b.Interval, 1); k != IKFree {
		t.Fatalf("expected IKFree on register 1, got %v", k)
	}

	m.Unassign(a)
	m.AssignFixed(fixed, 1)
	if k := m.Check(b.Interval, 1); k != IKFixed {
		t.Fatalf("expected IKFixed over a fixed reservation, got %v", k)
	}
}

func TestMatrixInterferersExcludesFixedAndDedups(t *testing.T) {
	m := NewMatrix(newFakeTarget(1))
	a := &VReg{ID: 1, Interval: NewLiveInterval(Range{Start: 0, End: 10})}
	b := &VReg{ID: 2, Interval: NewLiveInterval(Range{Start: 0, End: 10})}
	fixed := &VReg{ID: 99, Interval: NewLiveInterval(Range{Start: 0, End: 10})}

	m.AssignFixed(fixed, 0)
	probe := &VReg{ID: 3, Interval: NewLiveInterval(Range{Start: 0, End: 10})}
	if got := m.Interferers(probe.Interval, 0); len(got) != 0 {
		t.Fatalf("expected no interferers against a fixed reservation, got %v", got)
	}

	m2 := NewMatrix(newFakeTarget(1))
	m2.Assign(a, 0)
	m2.Assign(b, 0) // same unit, artificial double-assign for this test's dedup check
	got := m2.Interferers(probe.Interval, 0)
	seen := map[VRegID]bool{}
	for _, w := range got {
		if seen[w.ID] {
			t.Fatalf("Interferers returned duplicate VReg %d", w.ID)
		}
		seen[w.ID] = true
	}
}

func TestMatrixHasPhys(t *testing.T) {
	m := NewMatrix(newFakeTarget(2))
	v := &VReg{ID: 7, Interval: NewLiveInterval(Range{Start: 0, End: 5})}
	if _, ok := m.HasPhys(v); ok {
		t.Fatal("expected HasPhys false before assignment")
	}
	m.Assign(v, 1)
	p, ok := m.HasPhys(v)
	if !ok || p != 1 {
		t.Fatalf("HasPhys = %v, %v; want 1, true", p, ok)
	}
}
