// Package sdfx implements the kernel.Modeler interface using the
// github.com/deadsy/sdfx SDF-based CAD library. Solids built here have no
// boundary representation: they mesh through marching cubes and serve as a
// quick preview of an assembly, not as input to face selection.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/elbow/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface check.
var _ kernel.Modeler = (*SdfxKernel)(nil)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 200

// arcSteps is the number of chords per profile arc when building polygons.
const arcSteps = 32

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	id kernel.SolidID
	s  sdf.SDF3
}

func (s *sdfxSolid) ID() kernel.SolidID { return s.id }

// Faces returns nil: an SDF has no boundary representation.
func (s *sdfxSolid) Faces() []kernel.Face { return nil }

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() r3.Box {
	bb := s.s.BoundingBox()
	return r3.Box{
		Min: r3.Vec{X: bb.Min.X, Y: bb.Min.Y, Z: bb.Min.Z},
		Max: r3.Vec{X: bb.Max.X, Y: bb.Max.Y, Z: bb.Max.Z},
	}
}

// SdfxKernel implements kernel.Modeler using sdfx.
type SdfxKernel struct {
	meshCells int
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution along the longest side
// of the bounding box.
func WithMeshCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.meshCells = n
		}
	}
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{meshCells: defaultMeshCells}
	for _, o := range opts {
		o(k)
	}
	return k
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) (sdf.SDF3, error) {
	w, ok := s.(*sdfxSolid)
	if !ok {
		return nil, fmt.Errorf("sdfx: solid %s was not created by this kernel", s.ID())
	}
	return w.s, nil
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{id: kernel.NewSolidID(), s: s}
}

func vec(v r3.Vec) v3.Vec {
	return v3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

// Cylinder creates a cylinder whose base disc is centered on axis.Location.
// sdf.Cylinder3D centers the cylinder on the origin along Z, so it is
// shifted up by half its height and then rotated onto the axis.
func (k *SdfxKernel) Cylinder(axis kernel.Axis, radius, height float64) (kernel.Solid, error) {
	if radius <= 0 || height <= 0 {
		return nil, fmt.Errorf("sdfx: cylinder radius %g and height %g must be positive", radius, height)
	}
	d, err := unitDirection(axis)
	if err != nil {
		return nil, err
	}
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Cylinder3D: %w", err)
	}
	rdir := kernel.PerpendicularTo(d)
	m := sdf.Translate3d(vec(axis.Location)).
		Mul(orient(rdir, r3.Cross(d, rdir), d)).
		Mul(sdf.Translate3d(v3.Vec{Z: height / 2}))
	return wrap(sdf.Transform3D(s, m)), nil
}

// Cut returns the difference a - b.
func (k *SdfxKernel) Cut(a, b kernel.Solid) (kernel.Solid, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, err
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Difference3D(sa, sb)), nil
}

// Revolve sweeps the profile about the axis. The profile is flattened to a
// polygon in (radius, height) coordinates, revolved about Z and rotated so
// that Z follows the axis and angle zero passes through the profile.
func (k *SdfxKernel) Revolve(p kernel.Profile, axis kernel.Axis, angle float64) (kernel.Solid, error) {
	if angle <= 0 || angle > 2*math.Pi+1e-9 {
		return nil, fmt.Errorf("sdfx: revolution angle %g outside (0, 2π]", angle)
	}
	d, err := unitDirection(axis)
	if err != nil {
		return nil, err
	}
	axis.Direction = d

	pts := p.Polyline(arcSteps)
	var rdir r3.Vec
	for _, q := range pts {
		if axis.Distance(q) > 1e-9 {
			rdir = r3.Unit(r3.Sub(q, axis.Project(q)))
			break
		}
	}
	if rdir == (r3.Vec{}) {
		return nil, fmt.Errorf("sdfx: profile lies on the revolution axis")
	}

	poly := make([]v2.Vec, len(pts))
	for i, q := range pts {
		rel := r3.Sub(q, axis.Location)
		poly[i] = v2.Vec{X: r3.Dot(rel, rdir), Y: r3.Dot(rel, d)}
	}
	s2, err := sdf.Polygon2D(poly)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Polygon2D: %w", err)
	}

	var s3 sdf.SDF3
	if math.Abs(angle-2*math.Pi) <= 1e-9 {
		s3, err = sdf.Revolve3D(s2)
	} else {
		s3, err = sdf.RevolveTheta3D(s2, angle)
	}
	if err != nil {
		return nil, fmt.Errorf("sdfx: revolve: %w", err)
	}

	m := sdf.Translate3d(vec(axis.Location)).Mul(orient(rdir, r3.Cross(d, rdir), d))
	return wrap(sdf.Transform3D(s3, m)), nil
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3, err := unwrap(s)
	if err != nil {
		return nil, err
	}

	renderer := render.NewMarchingCubesUniform(k.meshCells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}

func unitDirection(axis kernel.Axis) (r3.Vec, error) {
	n := r3.Norm(axis.Direction)
	if n == 0 || math.IsNaN(n) {
		return r3.Vec{}, fmt.Errorf("sdfx: axis direction has zero length")
	}
	return r3.Scale(1/n, axis.Direction), nil
}

// orient returns the rotation taking the X, Y and Z axes to the orthonormal
// right-handed frame (x, y, z). sdf has no matrix constructor, so the
// rotation is decomposed into Z-Y-Z Euler angles.
func orient(x, y, z r3.Vec) sdf.M44 {
	alpha, beta, gamma := eulerZYZ(x, y, z)
	return sdf.RotateZ(alpha).Mul(sdf.RotateY(beta)).Mul(sdf.RotateZ(gamma))
}

// eulerZYZ decomposes the rotation with columns x, y, z into angles with
// R = Rz(alpha) Ry(beta) Rz(gamma).
func eulerZYZ(x, y, z r3.Vec) (alpha, beta, gamma float64) {
	const eps = 1e-12
	beta = math.Acos(math.Max(-1, math.Min(1, z.Z)))
	switch {
	case math.Abs(beta) < eps:
		return 0, 0, math.Atan2(x.Y, x.X)
	case math.Abs(beta-math.Pi) < eps:
		return 0, math.Pi, math.Atan2(x.Y, -x.X)
	}
	alpha = math.Atan2(z.Y, z.X)
	gamma = math.Atan2(y.Z, -x.Z)
	return alpha, beta, gamma
}
