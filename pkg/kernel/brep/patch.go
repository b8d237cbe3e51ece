package brep

import (
	"math"

	"github.com/chazu/elbow/pkg/fault"
	"github.com/chazu/elbow/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// patch is the parametric form of a face over the unit square.
type patch interface {
	eval(u, v float64) r3.Vec
	// divisions returns the grid size that keeps the chordal error of
	// every curved direction within deflection.
	divisions(deflection float64, maxSegments int) (nu, nv int, err error)
}

// revolvePatch sweeps a generatrix curve segment about an axis.
// u runs along the sweep angle, v along the generatrix.
type revolvePatch struct {
	axis   kernel.Axis
	gen    kernel.Curve
	t0, t1 float64
	angle  float64
	// rmax is the largest distance of the generatrix from the axis.
	rmax float64
	// bend is the radius of curvature of the generatrix, 0 for lines.
	bend float64
}

func (p *revolvePatch) eval(u, v float64) r3.Vec {
	q := p.gen.Value(p.t0 + v*(p.t1-p.t0))
	return p.axis.Rotate(q, u*p.angle)
}

func (p *revolvePatch) divisions(deflection float64, maxSegments int) (int, int, error) {
	nu, err := segments(p.angle, p.rmax, deflection, maxSegments)
	if err != nil {
		return 0, 0, err
	}
	nv := 1
	if p.bend > 0 {
		nv, err = segments(p.t1-p.t0, p.bend, deflection, maxSegments)
		if err != nil {
			return 0, 0, err
		}
	}
	return nu, nv, nil
}

// polarPatch covers the annular sector r0 <= rho <= r1, a0 <= theta <= a1
// of a plane. u runs radially, v angularly, so the parametric normal is
// Normal.
type polarPatch struct {
	center, normal, xdir r3.Vec
	r0, r1               float64
	a0, a1               float64
}

func (p *polarPatch) eval(u, v float64) r3.Vec {
	rho := p.r0 + u*(p.r1-p.r0)
	theta := p.a0 + v*(p.a1-p.a0)
	ydir := r3.Cross(p.normal, p.xdir)
	d := r3.Add(r3.Scale(math.Cos(theta), p.xdir), r3.Scale(math.Sin(theta), ydir))
	return r3.Add(p.center, r3.Scale(rho, d))
}

func (p *polarPatch) divisions(deflection float64, maxSegments int) (int, int, error) {
	nv, err := segments(p.a1-p.a0, p.r1, deflection, maxSegments)
	if err != nil {
		return 0, 0, err
	}
	return 1, nv, nil
}

// segments returns the number of chords needed to approximate an arc of the
// given span and radius within deflection.
func segments(span, radius, deflection float64, maxSegments int) (int, error) {
	if radius <= 0 || span <= 0 {
		return 1, nil
	}
	x := 1 - deflection/radius
	if x < -1 {
		x = -1
	}
	step := 2 * math.Acos(x)
	n := int(math.Ceil(span/step - 1e-9))
	if n < 1 {
		n = 1
	}
	// A closed loop needs at least a triangle.
	if span > math.Pi && n < 3 {
		n = 3
	}
	if n > maxSegments {
		return 0, fault.Newf(fault.KernelFailure, "triangulate",
			"deflection %g needs %d segments over radius %g (limit %d)", deflection, n, radius, maxSegments)
	}
	return n, nil
}

// triangulateGrid samples p on an (nu+1)×(nv+1) grid and splits each cell in
// two. Triangles follow the parametric orientation unless flip is set.
// Zero-area triangles (collapsed at poles or on the axis) are dropped.
func triangulateGrid(p patch, nu, nv int, flip bool) *kernel.FaceMesh {
	fm := &kernel.FaceMesh{Nodes: make([]r3.Vec, 0, (nu+1)*(nv+1))}
	for j := 0; j <= nv; j++ {
		v := float64(j) / float64(nv)
		for i := 0; i <= nu; i++ {
			u := float64(i) / float64(nu)
			fm.Nodes = append(fm.Nodes, p.eval(u, v))
		}
	}

	idx := func(i, j int) int { return j*(nu+1) + i }
	add := func(a, b, c int) {
		if degenerate(fm.Nodes[a], fm.Nodes[b], fm.Nodes[c]) {
			return
		}
		if flip {
			b, c = c, b
		}
		fm.Triangles = append(fm.Triangles, [3]int{a, b, c})
	}
	for j := 0; j < nv; j++ {
		for i := 0; i < nu; i++ {
			a, b, c, d := idx(i, j), idx(i+1, j), idx(i+1, j+1), idx(i, j+1)
			add(a, b, c)
			add(a, c, d)
		}
	}
	return fm
}

func degenerate(a, b, c r3.Vec) bool {
	e1 := r3.Sub(b, a)
	e2 := r3.Sub(c, a)
	return r3.Norm(r3.Cross(e1, e2)) <= 1e-12*r3.Norm(e1)*r3.Norm(e2)
}

// parametricNormal estimates the unnormalized ∂u × ∂v at the center of the
// parameter domain.
func parametricNormal(p patch) r3.Vec {
	const h = 1e-3
	du := r3.Sub(p.eval(0.5+h, 0.5), p.eval(0.5-h, 0.5))
	dv := r3.Sub(p.eval(0.5, 0.5+h), p.eval(0.5, 0.5-h))
	return r3.Cross(du, dv)
}

// patchBounds samples p to approximate its bounding box.
func patchBounds(p patch) r3.Box {
	const n = 16
	b := kernel.EmptyBox()
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			b = kernel.ExpandBox(b, p.eval(float64(i)/n, float64(j)/n))
		}
	}
	return b
}

// naturalNormal returns the direction a surface considers outward at p.
// ok is false for surfaces without an analytic normal.
func naturalNormal(s kernel.Surface, p r3.Vec) (n r3.Vec, ok bool) {
	switch s := s.(type) {
	case kernel.Plane:
		return s.Normal, true
	case kernel.Cylinder:
		return r3.Sub(p, s.Axis.Project(p)), true
	case kernel.Cone:
		return r3.Sub(p, s.Axis.Project(p)), true
	case kernel.Sphere:
		return r3.Sub(p, s.Center), true
	case kernel.Torus:
		foot := s.Axis.Project(p)
		radial := r3.Sub(p, foot)
		if r3.Norm(radial) == 0 {
			return r3.Vec{}, false
		}
		tube := r3.Add(foot, r3.Scale(s.MajorRadius, r3.Unit(radial)))
		return r3.Sub(p, tube), true
	}
	return r3.Vec{}, false
}

// orient fills in reversed and flip for f given the outward direction of the
// face at the patch center.
func orient(f *face, outward r3.Vec) {
	pn := parametricNormal(f.patch)
	center := f.patch.eval(0.5, 0.5)
	natural, ok := naturalNormal(f.surf, center)
	if !ok {
		natural = pn
	}
	f.reversed = r3.Dot(natural, outward) < 0
	f.flip = r3.Dot(pn, natural) < 0
}
