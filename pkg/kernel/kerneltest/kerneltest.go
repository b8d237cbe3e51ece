// Package kerneltest provides hand-built kernel objects for tests: solids
// whose faces, edges and surfaces are spelled out explicitly, and
// triangulators and edge builders whose behaviour the test controls.
package kerneltest

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/chazu/elbow/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface checks.
var (
	_ kernel.Solid        = (*Solid)(nil)
	_ kernel.Face         = (*Face)(nil)
	_ kernel.Edge         = (*Edge)(nil)
	_ kernel.Triangulator = (*Triangulator)(nil)
	_ kernel.EdgeBuilder  = (*EdgeBuilder)(nil)
)

// Kind is a surface that carries nothing but its kind. It stands in for
// surface types the tests do not need to evaluate.
type Kind kernel.SurfaceKind

func (k Kind) Kind() kernel.SurfaceKind { return kernel.SurfaceKind(k) }

// CurveKind is a curve that carries nothing but its kind.
type CurveKind kernel.CurveKind

func (k CurveKind) Kind() kernel.CurveKind { return kernel.CurveKind(k) }
func (CurveKind) Value(float64) r3.Vec     { return r3.Vec{} }

// Edge is a fixed edge.
type Edge struct {
	K           kernel.ShapeKey
	C           kernel.Curve
	First, Last float64
	Start, End  r3.Vec
}

// NewEdge returns an edge with a fresh key.
func NewEdge(c kernel.Curve, start, end r3.Vec) *Edge {
	return &Edge{K: kernel.NewShapeKey(), C: c, Last: 1, Start: start, End: end}
}

// LineEdge returns a straight edge from a to b.
func LineEdge(a, b r3.Vec) *Edge {
	d := r3.Sub(b, a)
	e := NewEdge(kernel.Line{Origin: a, Direction: r3.Unit(d)}, a, b)
	e.Last = r3.Norm(d)
	return e
}

// CircleEdge returns a closed circular edge of radius r about center with
// the given normal. Both endpoints sit at the start of the circle.
func CircleEdge(center, normal r3.Vec, r float64) *Edge {
	c := kernel.Circle{Center: center, Normal: normal, XDir: kernel.PerpendicularTo(normal), Radius: r}
	p := c.Value(0)
	e := NewEdge(c, p, p)
	e.Last = 2 * math.Pi
	return e
}

// CurvelessEdge returns an edge without a 3D curve.
func CurvelessEdge(a, b r3.Vec) *Edge {
	return NewEdge(nil, a, b)
}

// Reversed returns a copy of e traversed the other way, under a new key.
func (e *Edge) Reversed() *Edge {
	r := *e
	r.K = kernel.NewShapeKey()
	r.Start, r.End = e.End, e.Start
	return &r
}

func (e *Edge) Key() kernel.ShapeKey { return e.K }

// Curve returns the edge curve. A nil C yields a nil interface.
func (e *Edge) Curve() kernel.Curve {
	if e.C == nil {
		return nil
	}
	return e.C
}

func (e *Edge) Range() (float64, float64)   { return e.First, e.Last }
func (e *Edge) Endpoints() (r3.Vec, r3.Vec) { return e.Start, e.End }

// Face is a fixed face.
type Face struct {
	K   kernel.ShapeKey
	S   kernel.Surface
	E   []kernel.Edge
	Rev bool
	// Mesh is returned by Triangulator when set.
	Mesh *kernel.FaceMesh
}

// NewFace returns a face with a fresh key.
func NewFace(s kernel.Surface, edges ...kernel.Edge) *Face {
	return &Face{K: kernel.NewShapeKey(), S: s, E: edges}
}

func (f *Face) Key() kernel.ShapeKey    { return f.K }
func (f *Face) Surface() kernel.Surface { return f.S }
func (f *Face) Edges() []kernel.Edge    { return f.E }
func (f *Face) Reversed() bool          { return f.Rev }

// Bounds returns the box around the edge endpoints and mesh nodes.
func (f *Face) Bounds() r3.Box {
	b := kernel.EmptyBox()
	for _, e := range f.E {
		s, t := e.Endpoints()
		b = kernel.ExpandBox(kernel.ExpandBox(b, s), t)
	}
	if f.Mesh != nil {
		for _, n := range f.Mesh.Nodes {
			b = kernel.ExpandBox(b, n)
		}
	}
	return b
}

// Solid is a fixed list of faces.
type Solid struct {
	Id kernel.SolidID
	F  []kernel.Face
}

// NewSolid returns a solid with a fresh snapshot identity.
func NewSolid(faces ...kernel.Face) *Solid {
	return &Solid{Id: kernel.NewSolidID(), F: faces}
}

func (s *Solid) ID() kernel.SolidID   { return s.Id }
func (s *Solid) Faces() []kernel.Face { return s.F }

func (s *Solid) BoundingBox() r3.Box {
	b := kernel.EmptyBox()
	for _, f := range s.F {
		b = kernel.UnionBox(b, f.Bounds())
	}
	return b
}

// Triangulator returns each Face's Mesh field. Errors maps face keys to
// failures. Calls counts invocations and is safe for concurrent use.
type Triangulator struct {
	Errors map[kernel.ShapeKey]error

	calls atomic.Int64
	mu    sync.Mutex
	seen  []float64
}

// Triangulate implements kernel.Triangulator.
func (t *Triangulator) Triangulate(f kernel.Face, deflection float64) (*kernel.FaceMesh, error) {
	t.calls.Add(1)
	t.mu.Lock()
	t.seen = append(t.seen, deflection)
	t.mu.Unlock()
	if err := t.Errors[f.Key()]; err != nil {
		return nil, err
	}
	if ff, ok := f.(*Face); ok {
		return ff.Mesh, nil
	}
	return nil, nil
}

// Calls returns the number of Triangulate invocations.
func (t *Triangulator) Calls() int { return int(t.calls.Load()) }

// Deflections returns the deflections passed so far.
func (t *Triangulator) Deflections() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]float64(nil), t.seen...)
}

// EdgeBuilder materializes edges directly from curves. Fail, when set, is
// consulted first; a non-nil error is returned and a panic propagates.
type EdgeBuilder struct {
	Fail func(c kernel.Curve) error
}

// MakeEdge implements kernel.EdgeBuilder.
func (b *EdgeBuilder) MakeEdge(c kernel.Curve, first, last float64) (kernel.Edge, error) {
	if b.Fail != nil {
		if err := b.Fail(c); err != nil {
			return nil, err
		}
	}
	e := NewEdge(c, c.Value(first), c.Value(last))
	e.First, e.Last = first, last
	return e, nil
}

// Quad returns a two-triangle mesh over the unit square at height z.
func Quad(z float64) *kernel.FaceMesh {
	return &kernel.FaceMesh{
		Nodes: []r3.Vec{
			{X: 0, Y: 0, Z: z},
			{X: 1, Y: 0, Z: z},
			{X: 1, Y: 1, Z: z},
			{X: 0, Y: 1, Z: z},
		},
		Triangles: [][3]int{{0, 1, 2}, {0, 2, 3}},
	}
}

// Triangle returns a single-triangle mesh offset along x.
func Triangle(x float64) *kernel.FaceMesh {
	return &kernel.FaceMesh{
		Nodes:     []r3.Vec{{X: x}, {X: x + 1}, {X: x, Y: 1}},
		Triangles: [][3]int{{0, 1, 2}},
	}
}
