package kernel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// SurfaceKind enumerates the surface types a kernel can report.
type SurfaceKind int

const (
	OtherSurface SurfaceKind = iota
	PlaneSurface
	CylinderSurface
	ConeSurface
	SphereSurface
	TorusSurface
	BezierSurface
	BSplineSurfaceKind
	RevolutionSurfaceKind
	ExtrusionSurface
	OffsetSurface
)

func (k SurfaceKind) String() string {
	switch k {
	case PlaneSurface:
		return "plane"
	case CylinderSurface:
		return "cylinder"
	case ConeSurface:
		return "cone"
	case SphereSurface:
		return "sphere"
	case TorusSurface:
		return "torus"
	case BezierSurface:
		return "bezier"
	case BSplineSurfaceKind:
		return "bspline"
	case RevolutionSurfaceKind:
		return "revolution"
	case ExtrusionSurface:
		return "extrusion"
	case OffsetSurface:
		return "offset"
	default:
		return "other"
	}
}

// CurveKind enumerates the curve types a kernel can report.
type CurveKind int

const (
	OtherCurve CurveKind = iota
	LineCurve
	CircleCurve
	EllipseCurve
	BSplineCurve
)

func (k CurveKind) String() string {
	switch k {
	case LineCurve:
		return "line"
	case CircleCurve:
		return "circle"
	case EllipseCurve:
		return "ellipse"
	case BSplineCurve:
		return "bspline"
	default:
		return "other"
	}
}

// Surface is the geometry underlying a face.
type Surface interface {
	Kind() SurfaceKind
}

// Curve is the 3D geometry underlying an edge.
type Curve interface {
	Kind() CurveKind
	// Value evaluates the curve at parameter t.
	Value(t float64) r3.Vec
}

// Axis is a located direction. Direction is expected to be a unit vector.
type Axis struct {
	Location  r3.Vec
	Direction r3.Vec
}

// Project returns the foot of the perpendicular from p onto the axis line.
func (a Axis) Project(p r3.Vec) r3.Vec {
	t := r3.Dot(r3.Sub(p, a.Location), a.Direction)
	return r3.Add(a.Location, r3.Scale(t, a.Direction))
}

// Distance returns the distance from p to the axis line.
func (a Axis) Distance(p r3.Vec) float64 {
	return r3.Norm(r3.Sub(p, a.Project(p)))
}

// Rotate rotates p about the axis by angle radians (right hand rule).
func (a Axis) Rotate(p r3.Vec, angle float64) r3.Vec {
	rot := r3.NewRotation(angle, a.Direction)
	return r3.Add(a.Location, rot.Rotate(r3.Sub(p, a.Location)))
}

// Plane is an oriented plane with an in-plane reference direction.
type Plane struct {
	Origin r3.Vec
	Normal r3.Vec
	XDir   r3.Vec
}

func (Plane) Kind() SurfaceKind { return PlaneSurface }

// Cylinder is an infinite circular cylinder.
type Cylinder struct {
	Axis   Axis
	Radius float64
}

func (Cylinder) Kind() SurfaceKind { return CylinderSurface }

// Cone is an infinite circular cone. Radius is measured at Axis.Location.
type Cone struct {
	Axis      Axis
	Radius    float64
	SemiAngle float64
}

func (Cone) Kind() SurfaceKind { return ConeSurface }

// Sphere is a sphere.
type Sphere struct {
	Center r3.Vec
	Radius float64
}

func (Sphere) Kind() SurfaceKind { return SphereSurface }

// Torus is a torus of revolution. The major circle lies in the plane through
// Axis.Location perpendicular to Axis.Direction.
type Torus struct {
	Axis        Axis
	MajorRadius float64
	MinorRadius float64
}

func (Torus) Kind() SurfaceKind { return TorusSurface }

// BSplineSurface is a freeform tensor-product surface. Only its control net
// is carried; evaluation belongs to the kernel that produced it.
type BSplineSurface struct {
	Poles  [][]r3.Vec
	UDeg   int
	VDeg   int
	Closed bool
}

func (BSplineSurface) Kind() SurfaceKind { return BSplineSurfaceKind }

// RevolutionSurface is a general surface of revolution whose generatrix is
// not a line or a circle coplanar with the axis.
type RevolutionSurface struct {
	Axis       Axis
	Generatrix Curve
}

func (RevolutionSurface) Kind() SurfaceKind { return RevolutionSurfaceKind }

// Line is an infinite straight line parametrized by arc length when
// Direction is a unit vector.
type Line struct {
	Origin    r3.Vec
	Direction r3.Vec
}

func (Line) Kind() CurveKind { return LineCurve }

func (l Line) Value(t float64) r3.Vec {
	return r3.Add(l.Origin, r3.Scale(t, l.Direction))
}

// Circle is a full circle parametrized by angle from XDir, counterclockwise
// about Normal.
type Circle struct {
	Center r3.Vec
	Normal r3.Vec
	XDir   r3.Vec
	Radius float64
}

func (Circle) Kind() CurveKind { return CircleCurve }

func (c Circle) Value(t float64) r3.Vec {
	ydir := r3.Cross(c.Normal, c.XDir)
	p := r3.Add(r3.Scale(math.Cos(t), c.XDir), r3.Scale(math.Sin(t), ydir))
	return r3.Add(c.Center, r3.Scale(c.Radius, p))
}

// Angle returns the parameter of the projection of p onto the circle.
func (c Circle) Angle(p r3.Vec) float64 {
	d := r3.Sub(p, c.Center)
	ydir := r3.Cross(c.Normal, c.XDir)
	a := math.Atan2(r3.Dot(d, ydir), r3.Dot(d, c.XDir))
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// PerpendicularTo returns a unit vector perpendicular to the unit vector n.
func PerpendicularTo(n r3.Vec) r3.Vec {
	ref := r3.Vec{X: 1}
	if math.Abs(n.X) > 0.9 {
		ref = r3.Vec{Y: 1}
	}
	return r3.Unit(r3.Cross(n, ref))
}

// EmptyBox returns an inverted box that any point or box expands.
func EmptyBox() r3.Box {
	inf := math.Inf(1)
	return r3.Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// ExpandBox grows b to include p.
func ExpandBox(b r3.Box, p r3.Vec) r3.Box {
	b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	return b
}

// UnionBox returns the smallest box containing a and b.
func UnionBox(a, b r3.Box) r3.Box {
	if b.Min.X > b.Max.X {
		return a
	}
	return ExpandBox(ExpandBox(a, b.Min), b.Max)
}
