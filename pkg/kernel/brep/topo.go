package brep

import (
	"github.com/chazu/elbow/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface checks.
var (
	_ kernel.Solid = (*solid)(nil)
	_ kernel.Face  = (*face)(nil)
	_ kernel.Edge  = (*edge)(nil)
)

// cylinderSpec records the parameters of a primitive cylinder so that Cut
// can recognise coaxial pairs.
type cylinderSpec struct {
	axis   kernel.Axis
	radius float64
	height float64
}

type solid struct {
	id    kernel.SolidID
	faces []kernel.Face
	box   r3.Box
	cyl   *cylinderSpec
}

func newSolid(faces []*face) *solid {
	s := &solid{id: kernel.NewSolidID(), box: kernel.EmptyBox()}
	for _, f := range faces {
		s.faces = append(s.faces, f)
		s.box = kernel.UnionBox(s.box, f.bounds)
	}
	return s
}

func (s *solid) ID() kernel.SolidID { return s.id }

func (s *solid) Faces() []kernel.Face {
	return append([]kernel.Face(nil), s.faces...)
}

func (s *solid) BoundingBox() r3.Box { return s.box }

type face struct {
	key      kernel.ShapeKey
	surf     kernel.Surface
	edges    []kernel.Edge
	reversed bool
	bounds   r3.Box

	// patch is nil for faces this kernel cannot triangulate.
	patch patch
	// flip is set when the patch parametrization runs against the natural
	// normal of surf; triangles are flipped back before they are returned.
	flip bool
}

func (f *face) Key() kernel.ShapeKey    { return f.key }
func (f *face) Surface() kernel.Surface { return f.surf }
func (f *face) Edges() []kernel.Edge    { return append([]kernel.Edge(nil), f.edges...) }
func (f *face) Reversed() bool          { return f.reversed }
func (f *face) Bounds() r3.Box          { return f.bounds }

type edge struct {
	key         kernel.ShapeKey
	curve       kernel.Curve
	first, last float64
	start, end  r3.Vec
}

func newEdge(c kernel.Curve, first, last float64, start, end r3.Vec) *edge {
	return &edge{
		key:   kernel.NewShapeKey(),
		curve: c,
		first: first,
		last:  last,
		start: start,
		end:   end,
	}
}

func (e *edge) Key() kernel.ShapeKey        { return e.key }
func (e *edge) Curve() kernel.Curve         { return e.curve }
func (e *edge) Range() (float64, float64)   { return e.first, e.last }
func (e *edge) Endpoints() (r3.Vec, r3.Vec) { return e.start, e.end }
