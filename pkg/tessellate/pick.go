package tessellate

import (
	"sort"

	"github.com/chazu/elbow/pkg/kernel"
)

// PickRange is the contiguous block of triangle ids emitted for one face.
type PickRange struct {
	Face  kernel.Face
	First int
	Count int
}

// End returns one past the last triangle id of the range.
func (r PickRange) End() int { return r.First + r.Count }

// PickMap maps triangle ids of a tessellation back to faces. Ranges are
// sorted, non-overlapping and together cover every triangle of the mesh.
type PickMap struct {
	solid  kernel.SolidID
	ranges []PickRange
	total  int
}

// Lookup returns the face that emitted triangle id.
func (m *PickMap) Lookup(id int) (kernel.Face, bool) {
	if m == nil || id < 0 || id >= m.total {
		return nil, false
	}
	i := sort.Search(len(m.ranges), func(i int) bool { return m.ranges[i].End() > id })
	if i == len(m.ranges) {
		return nil, false
	}
	return m.ranges[i].Face, true
}

// Range returns the triangles emitted for f.
func (m *PickMap) Range(f kernel.Face) (PickRange, bool) {
	if m == nil || f == nil {
		return PickRange{}, false
	}
	for _, r := range m.ranges {
		if r.Face.Key() == f.Key() {
			return r, true
		}
	}
	return PickRange{}, false
}

// Ranges returns a copy of the ranges in emission order.
func (m *PickMap) Ranges() []PickRange {
	if m == nil {
		return nil
	}
	return append([]PickRange(nil), m.ranges...)
}

// TriangleCount returns the number of triangles covered by the map.
func (m *PickMap) TriangleCount() int {
	if m == nil {
		return 0
	}
	return m.total
}

// SolidID returns the snapshot the map was built from.
func (m *PickMap) SolidID() kernel.SolidID { return m.solid }

// Valid reports whether the map was built from this snapshot of s.
func (m *PickMap) Valid(s kernel.Solid) bool {
	return m != nil && s != nil && s.ID() == m.solid
}
