package kernel

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const eps = 1e-9

func near(a, b r3.Vec) bool {
	return r3.Norm(r3.Sub(a, b)) < eps
}

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

func TestMeshAccessors(t *testing.T) {
	m := &Mesh{
		Vertices: []float32{0, 0, 0, 1, 2, 3, 4, 5, 6},
		Indices:  []uint32{0, 1, 2},
	}
	if got := m.Vertex(1); got != (r3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Errorf("Vertex(1) = %v, want (1,2,3)", got)
	}
	if got := m.Triangle(0); got != [3]uint32{0, 1, 2} {
		t.Errorf("Triangle(0) = %v, want [0 1 2]", got)
	}
}

func TestMerge(t *testing.T) {
	tri := func(x float32) *Mesh {
		return &Mesh{
			Vertices: []float32{x, 0, 0, x + 1, 0, 0, x, 1, 0},
			Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
			Indices:  []uint32{0, 1, 2},
		}
	}
	m := Merge(tri(0), nil, tri(5))
	if m.VertexCount() != 6 || m.TriangleCount() != 2 {
		t.Fatalf("merged %d vertices, %d triangles; want 6, 2", m.VertexCount(), m.TriangleCount())
	}
	if got := m.Triangle(1); got != [3]uint32{3, 4, 5} {
		t.Errorf("Triangle(1) = %v, want [3 4 5]", got)
	}
	if got := m.Vertex(int(m.Triangle(1)[0])); got.X != 5 {
		t.Errorf("second triangle starts at %v, want x=5", got)
	}
	if !Merge().IsEmpty() {
		t.Error("Merge() is not empty")
	}
}

// --- Compile-time interface check with a stub kernel ---

type stubFace struct {
	key ShapeKey
	box r3.Box
}

func (f *stubFace) Key() ShapeKey    { return f.key }
func (f *stubFace) Surface() Surface { return Plane{Normal: r3.Vec{Z: 1}, XDir: r3.Vec{X: 1}} }
func (f *stubFace) Edges() []Edge    { return nil }
func (f *stubFace) Reversed() bool   { return false }
func (f *stubFace) Bounds() r3.Box   { return f.box }

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. All methods return trivial results.
type stubKernel struct{}

func (k *stubKernel) Cylinder(axis Axis, radius, height float64) (Solid, error) {
	return NewCompound(&stubFace{
		key: NewShapeKey(),
		box: r3.Box{
			Min: r3.Vec{X: -radius, Y: -radius},
			Max: r3.Vec{X: radius, Y: radius, Z: height},
		},
	}), nil
}

func (k *stubKernel) Cut(a, _ Solid) (Solid, error)                       { return a, nil }
func (k *stubKernel) Revolve(_ Profile, _ Axis, _ float64) (Solid, error) { return NewCompound(), nil }
func (k *stubKernel) ToMesh(_ Solid) (*Mesh, error)                       { return &Mesh{}, nil }
func (k *stubKernel) Triangulate(_ Face, _ float64) (*FaceMesh, error) {
	return nil, nil
}
func (k *stubKernel) MakeEdge(_ Curve, _, _ float64) (Edge, error) { return nil, nil }

var _ Kernel = (*stubKernel)(nil)

func TestStubKernelCylinderBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, err := k.Cylinder(Axis{Direction: r3.Vec{Z: 1}}, 2, 30)
	if err != nil {
		t.Fatalf("Cylinder() error = %v", err)
	}
	bb := s.BoundingBox()
	if bb.Min != (r3.Vec{X: -2, Y: -2}) {
		t.Errorf("min = %v, want (-2,-2,0)", bb.Min)
	}
	if bb.Max != (r3.Vec{X: 2, Y: 2, Z: 30}) {
		t.Errorf("max = %v, want (2,2,30)", bb.Max)
	}
}

func TestStubKernelToMesh(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, _ := k.Revolve(Profile{}, Axis{}, 1)
	m, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if m == nil {
		t.Fatal("ToMesh() returned nil mesh")
	}
	if !m.IsEmpty() {
		t.Error("stub ToMesh() should return empty mesh")
	}
}

// --- Identity ---

func TestShapeKeysUnique(t *testing.T) {
	seen := make(map[ShapeKey]bool)
	for i := 0; i < 100; i++ {
		k := NewShapeKey()
		if seen[k] {
			t.Fatalf("duplicate key %d", k)
		}
		seen[k] = true
	}
}

func TestCompoundSharesFaces(t *testing.T) {
	f1 := &stubFace{key: NewShapeKey(), box: r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}}
	f2 := &stubFace{key: NewShapeKey(), box: r3.Box{Min: r3.Vec{X: -1}, Max: r3.Vec{Z: 4}}}
	c := NewCompound(f1, f2)
	other := NewCompound(f1)

	if c.ID() == other.ID() {
		t.Error("two compounds share a SolidID")
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if c.Faces()[0].Key() != other.Faces()[0].Key() {
		t.Error("shared face lost its key")
	}
	bb := c.BoundingBox()
	if bb.Min != (r3.Vec{X: -1}) || bb.Max != (r3.Vec{X: 1, Y: 1, Z: 4}) {
		t.Errorf("BoundingBox() = %v", bb)
	}

	empty := NewCompound().BoundingBox()
	if empty.Min.X <= empty.Max.X {
		t.Errorf("empty compound box should be inverted, got %v", empty)
	}
}

// --- Geometry ---

func TestAxisRotate(t *testing.T) {
	a := Axis{Location: r3.Vec{X: 1}, Direction: r3.Vec{Z: 1}}
	tests := []struct {
		name  string
		p     r3.Vec
		angle float64
		want  r3.Vec
	}{
		{"quarter", r3.Vec{X: 2}, math.Pi / 2, r3.Vec{X: 1, Y: 1}},
		{"half", r3.Vec{X: 2, Z: 3}, math.Pi, r3.Vec{X: 0, Z: 3}},
		{"on axis", r3.Vec{X: 1, Z: 5}, 1.3, r3.Vec{X: 1, Z: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Rotate(tt.p, tt.angle); !near(got, tt.want) {
				t.Errorf("Rotate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAxisDistance(t *testing.T) {
	a := Axis{Direction: r3.Vec{X: 1}}
	if d := a.Distance(r3.Vec{X: 7, Y: 3, Z: 4}); math.Abs(d-5) > eps {
		t.Errorf("Distance() = %v, want 5", d)
	}
	if p := a.Project(r3.Vec{X: 7, Y: 3}); !near(p, r3.Vec{X: 7}) {
		t.Errorf("Project() = %v, want (7,0,0)", p)
	}
}

func TestCircleValueAndAngle(t *testing.T) {
	c := Circle{Center: r3.Vec{Z: 2}, Normal: r3.Vec{Z: 1}, XDir: r3.Vec{X: 1}, Radius: 3}
	p := c.Value(math.Pi / 2)
	if !near(p, r3.Vec{Y: 3, Z: 2}) {
		t.Errorf("Value(pi/2) = %v", p)
	}
	if a := c.Angle(r3.Vec{X: 0, Y: -3, Z: 2}); math.Abs(a-3*math.Pi/2) > eps {
		t.Errorf("Angle() = %v, want 3pi/2", a)
	}
}

func TestPerpendicularTo(t *testing.T) {
	for _, n := range []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}, r3.Unit(r3.Vec{X: 1, Y: 1, Z: 1})} {
		p := PerpendicularTo(n)
		if math.Abs(r3.Dot(p, n)) > eps || math.Abs(r3.Norm(p)-1) > eps {
			t.Errorf("PerpendicularTo(%v) = %v", n, p)
		}
	}
}

func TestArcCircle(t *testing.T) {
	t.Run("semicircle", func(t *testing.T) {
		c, sweep, ok := ArcCircle(r3.Vec{Y: -2}, r3.Vec{X: -2}, r3.Vec{Y: 2})
		if !ok {
			t.Fatal("ArcCircle() not ok")
		}
		if !near(c.Center, r3.Vec{}) || math.Abs(c.Radius-2) > eps {
			t.Errorf("center %v radius %v", c.Center, c.Radius)
		}
		if math.Abs(sweep-math.Pi) > eps {
			t.Errorf("sweep = %v, want pi", sweep)
		}
		if !near(c.Value(sweep/2), r3.Vec{X: -2}) {
			t.Errorf("midpoint = %v, want (-2,0,0)", c.Value(sweep/2))
		}
	})
	t.Run("collinear", func(t *testing.T) {
		if _, _, ok := ArcCircle(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{X: 2}); ok {
			t.Error("collinear points should not form an arc")
		}
	})
}

func TestProfileBuilder(t *testing.T) {
	p := StartProfile(r3.Vec{}).
		LineTo(r3.Vec{X: 1}).
		LineTo(r3.Vec{X: 1, Y: 1}).
		Close()
	if len(p.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(p.Segments))
	}
	if !p.Closed(1e-9) {
		t.Error("Closed() = false, want true")
	}
	if got := len(p.Vertices()); got != 3 {
		t.Errorf("Vertices() = %d, want 3", got)
	}

	open := Profile{Segments: []Segment{
		{Kind: SegmentLine, Start: r3.Vec{}, End: r3.Vec{X: 1}},
		{Kind: SegmentLine, Start: r3.Vec{X: 1}, End: r3.Vec{X: 2}},
	}}
	if open.Closed(1e-9) {
		t.Error("open profile reported closed")
	}
}
