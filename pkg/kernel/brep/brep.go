// Package brep implements kernel.Kernel with an analytic boundary
// representation. It covers the shapes a pipe elbow needs: solid cylinders,
// cuts between coaxial cylinders, and revolutions of closed line/arc
// profiles about an axis in the profile plane. Every face is a parametric
// patch, so triangulation samples the patch directly.
package brep

import (
	"math"

	"github.com/chazu/elbow/pkg/fault"
	"github.com/chazu/elbow/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*Kernel)(nil)

const (
	// DefaultTolerance is the linear confusion distance used for point and
	// axis coincidence.
	DefaultTolerance = 1e-7
	// DefaultMaxSegments bounds the chord count of one curved direction.
	DefaultMaxSegments = 4096
	// DefaultMeshDeflection is the deflection used by ToMesh.
	DefaultMeshDeflection = 0.05

	angleTol = 1e-9
)

// Kernel is the analytic B-Rep kernel. It is stateless apart from its
// options and safe for concurrent use.
type Kernel struct {
	tol            float64
	maxSegments    int
	meshDeflection float64
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithTolerance sets the linear confusion distance.
func WithTolerance(tol float64) Option {
	return func(k *Kernel) {
		if tol > 0 {
			k.tol = tol
		}
	}
}

// WithMaxSegments bounds how finely a single curved direction may be split.
// Triangulation requests beyond it fail with fault.KernelFailure.
func WithMaxSegments(n int) Option {
	return func(k *Kernel) {
		if n > 0 {
			k.maxSegments = n
		}
	}
}

// WithMeshDeflection sets the deflection used by ToMesh.
func WithMeshDeflection(d float64) Option {
	return func(k *Kernel) {
		if d > 0 {
			k.meshDeflection = d
		}
	}
}

// New returns a Kernel.
func New(opts ...Option) *Kernel {
	k := &Kernel{
		tol:            DefaultTolerance,
		maxSegments:    DefaultMaxSegments,
		meshDeflection: DefaultMeshDeflection,
	}
	for _, o := range opts {
		o(k)
	}
	return k
}

// Tolerance returns the linear confusion distance.
func (k *Kernel) Tolerance() float64 { return k.tol }

// Cylinder creates a solid cylinder. The faces come out in the order
// lateral, top disc, bottom disc.
func (k *Kernel) Cylinder(axis kernel.Axis, radius, height float64) (kernel.Solid, error) {
	const op = "cylinder"
	if radius <= k.tol || height <= k.tol {
		return nil, fault.Newf(fault.InvalidInput, op, "radius %g and height %g must be positive", radius, height)
	}
	axis, err := k.normalizeAxis(op, axis)
	if err != nil {
		return nil, err
	}
	at := radialFrame(axis)
	prof := kernel.StartProfile(at(radius, 0)).
		LineTo(at(radius, height)).
		LineTo(at(0, height)).
		LineTo(at(0, 0)).
		Close()

	s, err := k.revolve(op, prof, axis, 2*math.Pi)
	if err != nil {
		return nil, err
	}
	s.cyl = &cylinderSpec{axis: axis, radius: radius, height: height}
	return s, nil
}

// Cut returns a minus b. Only a cylinder minus a thinner coaxial cylinder of
// the same extent is supported; it yields a tube with faces outer lateral,
// top annulus, inner lateral, bottom annulus.
func (k *Kernel) Cut(a, b kernel.Solid) (kernel.Solid, error) {
	const op = "cut"
	sa, okA := a.(*solid)
	sb, okB := b.(*solid)
	if !okA || !okB || sa.cyl == nil || sb.cyl == nil {
		return nil, fault.New(fault.KernelFailure, op, "unsupported operands: only primitive cylinders can be cut")
	}
	ca, cb := sa.cyl, sb.cyl
	if !k.coaxial(ca, cb) {
		return nil, fault.New(fault.KernelFailure, op, "unsupported operands: cylinders are not coaxial with equal extent")
	}
	if cb.radius >= ca.radius-k.tol {
		return nil, fault.Newf(fault.DegenerateGeometry, op,
			"tool radius %g removes the whole cylinder of radius %g", cb.radius, ca.radius)
	}

	at := radialFrame(ca.axis)
	prof := kernel.StartProfile(at(ca.radius, 0)).
		LineTo(at(ca.radius, ca.height)).
		LineTo(at(cb.radius, ca.height)).
		LineTo(at(cb.radius, 0)).
		Close()
	s, err := k.revolve(op, prof, ca.axis, 2*math.Pi)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (k *Kernel) coaxial(a, b *cylinderSpec) bool {
	if r3.Dot(a.axis.Direction, b.axis.Direction) < 1-angleTol {
		return false
	}
	if r3.Norm(r3.Sub(a.axis.Location, b.axis.Location)) > k.tol {
		return false
	}
	return math.Abs(a.height-b.height) <= k.tol
}

// Revolve sweeps the region bounded by p about axis. The profile must lie in
// a plane containing the axis and stay on one side of it.
func (k *Kernel) Revolve(p kernel.Profile, axis kernel.Axis, angle float64) (kernel.Solid, error) {
	const op = "revolve"
	axis, err := k.normalizeAxis(op, axis)
	if err != nil {
		return nil, err
	}
	s, err := k.revolve(op, p, axis, angle)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ToMesh triangulates every face at the kernel's mesh deflection and joins
// the results. Faces without a triangulation are left out.
func (k *Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	mesh := &kernel.Mesh{}
	for _, f := range s.Faces() {
		fm, err := k.Triangulate(f, k.meshDeflection)
		if err != nil {
			return nil, err
		}
		if fm == nil {
			continue
		}
		base := uint32(mesh.VertexCount())
		for _, n := range fm.Nodes {
			mesh.Vertices = append(mesh.Vertices, float32(n.X), float32(n.Y), float32(n.Z))
		}
		for _, t := range fm.Triangles {
			if f.Reversed() {
				t[1], t[2] = t[2], t[1]
			}
			mesh.Indices = append(mesh.Indices, base+uint32(t[0]), base+uint32(t[1]), base+uint32(t[2]))
		}
	}
	mesh.Normals = kernel.FlatNormals(mesh.Vertices, mesh.Indices)
	return mesh, nil
}

// Triangulate samples the face's patch. Triangles follow the natural
// orientation of the face's surface; callers flip reversed faces.
func (k *Kernel) Triangulate(f kernel.Face, deflection float64) (*kernel.FaceMesh, error) {
	const op = "triangulate"
	if deflection <= 0 || math.IsNaN(deflection) {
		return nil, fault.Newf(fault.InvalidInput, op, "deflection must be positive, got %g", deflection)
	}
	bf, ok := f.(*face)
	if !ok {
		return nil, fault.Newf(fault.KernelFailure, op, "face %d was not created by this kernel", f.Key())
	}
	if bf.patch == nil {
		return nil, nil
	}
	nu, nv, err := bf.patch.divisions(deflection, k.maxSegments)
	if err != nil {
		return nil, err
	}
	fm := triangulateGrid(bf.patch, nu, nv, bf.flip)
	if len(fm.Triangles) == 0 {
		return nil, nil
	}
	return fm, nil
}

// MakeEdge bounds c to [first, last]. Zero-length input produces an edge
// with no 3D curve, the way degenerated edges carry none.
func (k *Kernel) MakeEdge(c kernel.Curve, first, last float64) (kernel.Edge, error) {
	const op = "make edge"
	if c == nil {
		return nil, fault.New(fault.InvalidInput, op, "nil curve")
	}
	if last < first {
		return nil, fault.Newf(fault.InvalidInput, op, "inverted range [%g, %g]", first, last)
	}
	start, end := c.Value(first), c.Value(last)
	if k.degenerateCurve(c) || last-first <= k.tol {
		return newEdge(nil, first, last, start, end), nil
	}
	return newEdge(c, first, last, start, end), nil
}

func (k *Kernel) degenerateCurve(c kernel.Curve) bool {
	switch c := c.(type) {
	case kernel.Line:
		return r3.Norm(c.Direction) <= k.tol
	case kernel.Circle:
		return c.Radius <= k.tol || r3.Norm(c.Normal) <= k.tol || r3.Norm(c.XDir) <= k.tol
	}
	return false
}

func (k *Kernel) normalizeAxis(op string, a kernel.Axis) (kernel.Axis, error) {
	n := r3.Norm(a.Direction)
	if n <= k.tol || math.IsNaN(n) {
		return a, fault.New(fault.InvalidInput, op, "axis direction has zero length")
	}
	a.Direction = r3.Scale(1/n, a.Direction)
	return a, nil
}

// radialFrame returns a function mapping (r, h) to the point at radial
// distance r and height h in a fixed half-plane bounded by the axis.
func radialFrame(axis kernel.Axis) func(r, h float64) r3.Vec {
	rdir := kernel.PerpendicularTo(axis.Direction)
	return func(r, h float64) r3.Vec {
		return r3.Add(axis.Location, r3.Add(r3.Scale(r, rdir), r3.Scale(h, axis.Direction)))
	}
}
