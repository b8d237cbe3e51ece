// Package kernel defines the abstract geometry kernel interface.
// Implementations (brep, sdfx) provide solid modeling behind this
// interface; the selection, classification and tessellation packages only
// consume the query side (faces, edges, surfaces, curves, triangulation)
// and never assume exclusive ownership of kernel objects.
package kernel

import (
	"sync/atomic"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// SolidID identifies one snapshot of a solid. Derived artifacts (adjacency
// indexes, pick maps) record the SolidID they were built from.
type SolidID uuid.UUID

// NewSolidID returns a fresh random snapshot identity.
func NewSolidID() SolidID {
	return SolidID(uuid.New())
}

func (id SolidID) String() string {
	return uuid.UUID(id).String()
}

// ShapeKey is the identity of an underlying topological object. Two handles
// with equal keys refer to the same face or edge even when reached through
// different containers (a solid and a compound built from its faces).
type ShapeKey uint64

var shapeKeys atomic.Uint64

// NewShapeKey returns a process-unique key. Kernel implementations call it
// once per topological object they create.
func NewShapeKey() ShapeKey {
	return ShapeKey(shapeKeys.Add(1))
}

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// ID returns the snapshot identity.
	ID() SolidID
	// Faces returns the boundary faces in a deterministic exploration order.
	// Kernels without a boundary representation return nil.
	Faces() []Face
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() r3.Box
}

// Face is a bounded region of a surface.
type Face interface {
	Key() ShapeKey
	// Surface returns the underlying surface, or nil when there is none.
	Surface() Surface
	// Edges returns the boundary edges in wire order. Seam edges appear twice.
	Edges() []Edge
	// Reversed reports whether the face normal opposes the surface normal.
	Reversed() bool
	Bounds() r3.Box
}

// Edge is a boundary curve of one or more faces.
type Edge interface {
	Key() ShapeKey
	// Curve returns the 3D curve, or nil when the edge has none
	// (degenerated edges at poles, edges known only in parameter space).
	Curve() Curve
	// Range returns the parameter domain of the curve on this edge.
	Range() (first, last float64)
	// Endpoints returns the start and end vertex positions.
	Endpoints() (start, end r3.Vec)
}

// Modeler builds solids. Both the B-Rep kernel and the SDF preview kernel
// implement it.
type Modeler interface {
	// Cylinder creates a solid cylinder whose base disc is centered on
	// axis.Location and which extends height along axis.Direction.
	Cylinder(axis Axis, radius, height float64) (Solid, error)

	// Cut returns a minus b.
	Cut(a, b Solid) (Solid, error)

	// Revolve sweeps the planar region bounded by p about axis through
	// angle radians.
	Revolve(p Profile, axis Axis, angle float64) (Solid, error)

	// ToMesh converts a solid to a single triangle mesh.
	ToMesh(s Solid) (*Mesh, error)
}

// Triangulator triangulates individual faces.
type Triangulator interface {
	// Triangulate returns the triangulation of f at the given linear
	// deflection. A nil mesh with a nil error means the face has no
	// triangulation (degenerate); an error means the kernel could not
	// complete the operation.
	Triangulate(f Face, deflection float64) (*FaceMesh, error)
}

// EdgeBuilder materializes free-standing edges from curves.
type EdgeBuilder interface {
	// MakeEdge bounds c to [first, last]. The returned edge may carry no
	// 3D curve when the input is numerically degenerate.
	MakeEdge(c Curve, first, last float64) (Edge, error)
}

// Kernel is the full kernel interface: construction, triangulation and
// edge materialization.
type Kernel interface {
	Modeler
	Triangulator
	EdgeBuilder
}
