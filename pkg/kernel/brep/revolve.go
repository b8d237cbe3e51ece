package brep

import (
	"math"

	"github.com/chazu/elbow/pkg/fault"
	"github.com/chazu/elbow/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// generatrix is one profile segment prepared for sweeping.
type generatrix struct {
	curve      kernel.Curve
	t0, t1     float64
	start, end r3.Vec
	bend       float64 // arc radius, 0 for lines
	rmax       float64
	onAxis     bool
	samples    []r3.Vec
}

// halfPlane is the plane containing the axis and the profile. rdir points
// from the axis toward the profile and normal = axis × rdir.
type halfPlane struct {
	rdir, normal r3.Vec
}

func (k *Kernel) revolve(op string, p kernel.Profile, axis kernel.Axis, angle float64) (*solid, error) {
	if angle <= 0 || angle > 2*math.Pi+angleTol || math.IsNaN(angle) {
		return nil, fault.Newf(fault.InvalidInput, op, "revolution angle %g outside (0, 2π]", angle)
	}
	if !p.Closed(k.tol) {
		return nil, fault.New(fault.InvalidInput, op, "profile is not closed")
	}
	full := math.Abs(angle-2*math.Pi) <= angleTol
	if full {
		angle = 2 * math.Pi
	}

	gens := make([]generatrix, len(p.Segments))
	for i, seg := range p.Segments {
		g, err := k.prepare(op, seg, axis)
		if err != nil {
			return nil, err
		}
		gens[i] = g
	}
	hp, err := k.profilePlane(op, gens, axis)
	if err != nil {
		return nil, err
	}
	sign := orientation(gens, axis, hp)
	if sign == 0 {
		return nil, fault.New(fault.DegenerateGeometry, op, "profile encloses no area")
	}

	// Shared edges: one swept circle per profile vertex, one generatrix
	// edge per segment at each end of the sweep.
	n := len(gens)
	swept := make([]*edge, n)
	first := make([]*edge, n)
	last := make([]*edge, n)
	for i, g := range gens {
		swept[i] = k.sweptEdge(axis, g.start, angle, full)
		first[i] = newEdge(g.curve, g.t0, g.t1, g.start, g.end)
		if full {
			last[i] = first[i]
		} else {
			last[i] = newEdge(rotateCurve(g.curve, axis, angle), g.t0, g.t1,
				axis.Rotate(g.start, angle), axis.Rotate(g.end, angle))
		}
	}

	var faces []*face
	for i, g := range gens {
		if g.onAxis {
			continue
		}
		pt := &revolvePatch{
			axis:  axis,
			gen:   g.curve,
			t0:    g.t0,
			t1:    g.t1,
			angle: angle,
			rmax:  g.rmax,
			bend:  g.bend,
		}
		f := &face{
			key:   kernel.NewShapeKey(),
			surf:  k.classifyRevolution(g, axis),
			edges: []kernel.Edge{first[i], swept[(i+1)%n], last[i], swept[i]},
			patch: pt,
		}
		f.bounds = patchBounds(pt)
		orient(f, r3.Scale(sign, parametricNormal(pt)))
		faces = append(faces, f)
	}

	if !full {
		rot := r3.NewRotation(angle, axis.Direction)
		startCap := k.capFace(gens, first, hp, r3.Scale(-1, hp.normal), nil)
		endCap := k.capFace(gens, last, hp, rot.Rotate(hp.normal), func(q r3.Vec) r3.Vec {
			return axis.Rotate(q, angle)
		})
		faces = append(faces, startCap, endCap)
	}

	if len(faces) == 0 {
		return nil, fault.New(fault.DegenerateGeometry, op, "revolution produced no faces")
	}
	return newSolid(faces), nil
}

// prepare converts a profile segment into a curve with its parameter range.
func (k *Kernel) prepare(op string, seg kernel.Segment, axis kernel.Axis) (generatrix, error) {
	g := generatrix{start: seg.Start, end: seg.End}
	switch seg.Kind {
	case kernel.SegmentLine:
		d := r3.Sub(seg.End, seg.Start)
		length := r3.Norm(d)
		if length <= k.tol {
			return g, fault.New(fault.DegenerateGeometry, op, "zero-length profile segment")
		}
		g.curve = kernel.Line{Origin: seg.Start, Direction: r3.Scale(1/length, d)}
		g.t0, g.t1 = 0, length
		g.samples = []r3.Vec{seg.Start}
		g.rmax = math.Max(axis.Distance(seg.Start), axis.Distance(seg.End))
		g.onAxis = axis.Distance(seg.Start) <= k.tol && axis.Distance(seg.End) <= k.tol
	case kernel.SegmentArc:
		c, sweep, ok := kernel.ArcCircle(seg.Start, seg.Mid, seg.End)
		if !ok {
			return g, fault.New(fault.InvalidInput, op, "arc points are collinear")
		}
		g.curve = c
		g.t0, g.t1 = 0, sweep
		g.bend = c.Radius
		g.rmax = axis.Distance(c.Center) + c.Radius
		const n = 8
		for j := 0; j < n; j++ {
			g.samples = append(g.samples, c.Value(sweep*float64(j)/n))
		}
	default:
		return g, fault.Newf(fault.InvalidInput, op, "unknown segment kind %d", seg.Kind)
	}
	return g, nil
}

// profilePlane checks that the profile lies in one half-plane bounded by
// the axis and returns that half-plane.
func (k *Kernel) profilePlane(op string, gens []generatrix, axis kernel.Axis) (halfPlane, error) {
	var hp halfPlane
	found := false
	for _, g := range gens {
		for _, q := range g.samples {
			if axis.Distance(q) > k.tol {
				hp.rdir = r3.Unit(r3.Sub(q, axis.Project(q)))
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	if !found {
		return hp, fault.New(fault.DegenerateGeometry, op, "profile lies on the axis")
	}
	hp.normal = r3.Cross(axis.Direction, hp.rdir)

	for _, g := range gens {
		pts := append([]r3.Vec{g.end}, g.samples...)
		for _, q := range pts {
			d := r3.Sub(q, axis.Location)
			if math.Abs(r3.Dot(d, hp.normal)) > k.tol {
				return hp, fault.New(fault.InvalidInput, op, "profile plane does not contain the axis")
			}
			if r3.Dot(d, hp.rdir) < -k.tol {
				return hp, fault.New(fault.InvalidInput, op, "profile crosses the axis")
			}
		}
	}
	return hp, nil
}

// orientation returns +1 when the profile runs counterclockwise in the
// (radius, height) half-plane, -1 when clockwise and 0 when it has no area.
// A counterclockwise profile sweeps into faces whose parametric normals
// point out of the solid.
func orientation(gens []generatrix, axis kernel.Axis, hp halfPlane) float64 {
	var area float64
	var poly [][2]float64
	for _, g := range gens {
		for _, q := range g.samples {
			d := r3.Sub(q, axis.Location)
			poly = append(poly, [2]float64{r3.Dot(d, hp.rdir), r3.Dot(d, axis.Direction)})
		}
	}
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		area += a[0]*b[1] - b[0]*a[1]
	}
	switch {
	case area > 1e-18:
		return 1
	case area < -1e-18:
		return -1
	}
	return 0
}

// sweptEdge is the circle traced by a profile vertex. Vertices on the axis
// trace nothing and get an edge without a curve.
func (k *Kernel) sweptEdge(axis kernel.Axis, v r3.Vec, angle float64, full bool) *edge {
	end := v
	if !full {
		end = axis.Rotate(v, angle)
	}
	foot := axis.Project(v)
	r := r3.Norm(r3.Sub(v, foot))
	if r <= k.tol {
		return newEdge(nil, 0, angle, v, end)
	}
	c := kernel.Circle{
		Center: foot,
		Normal: axis.Direction,
		XDir:   r3.Scale(1/r, r3.Sub(v, foot)),
		Radius: r,
	}
	return newEdge(c, 0, angle, v, end)
}

func rotateCurve(c kernel.Curve, axis kernel.Axis, angle float64) kernel.Curve {
	rot := r3.NewRotation(angle, axis.Direction)
	switch c := c.(type) {
	case kernel.Line:
		return kernel.Line{Origin: axis.Rotate(c.Origin, angle), Direction: rot.Rotate(c.Direction)}
	case kernel.Circle:
		return kernel.Circle{
			Center: axis.Rotate(c.Center, angle),
			Normal: rot.Rotate(c.Normal),
			XDir:   rot.Rotate(c.XDir),
			Radius: c.Radius,
		}
	}
	return c
}

// classifyRevolution names the surface swept by g: lines give cylinders,
// planes or cones; arcs coplanar with the axis give tori or spheres.
func (k *Kernel) classifyRevolution(g generatrix, axis kernel.Axis) kernel.Surface {
	d := axis.Direction
	switch c := g.curve.(type) {
	case kernel.Line:
		cos := r3.Dot(c.Direction, d)
		switch {
		case math.Abs(cos) >= 1-angleTol:
			return kernel.Cylinder{Axis: axis, Radius: axis.Distance(g.start)}
		case math.Abs(cos) <= angleTol:
			foot := axis.Project(g.start)
			xdir := kernel.PerpendicularTo(d)
			if r := r3.Sub(g.start, foot); r3.Norm(r) > k.tol {
				xdir = r3.Unit(r)
			}
			return kernel.Plane{Origin: foot, Normal: d, XDir: xdir}
		default:
			hs := r3.Dot(r3.Sub(g.start, axis.Location), d)
			he := r3.Dot(r3.Sub(g.end, axis.Location), d)
			rs, re := axis.Distance(g.start), axis.Distance(g.end)
			slope := (re - rs) / (he - hs)
			return kernel.Cone{Axis: axis, Radius: rs - hs*slope, SemiAngle: math.Atan(slope)}
		}
	case kernel.Circle:
		coplanar := math.Abs(r3.Dot(c.Normal, d)) <= angleTol &&
			math.Abs(r3.Dot(r3.Sub(axis.Location, c.Center), c.Normal)) <= k.tol
		if !coplanar {
			return kernel.RevolutionSurface{Axis: axis, Generatrix: c}
		}
		foot := axis.Project(c.Center)
		major := r3.Norm(r3.Sub(c.Center, foot))
		if major <= k.tol {
			return kernel.Sphere{Center: foot, Radius: c.Radius}
		}
		return kernel.Torus{
			Axis:        kernel.Axis{Location: foot, Direction: d},
			MajorRadius: major,
			MinorRadius: c.Radius,
		}
	}
	return kernel.RevolutionSurface{Axis: axis, Generatrix: g.curve}
}

// capFace closes one end of a partial revolution. move maps profile points
// to the cap's position (nil for the start cap). Only annular-sector
// profiles get a triangulable patch.
func (k *Kernel) capFace(gens []generatrix, edges []*edge, hp halfPlane, outward r3.Vec, move func(r3.Vec) r3.Vec) *face {
	if move == nil {
		move = func(q r3.Vec) r3.Vec { return q }
	}
	f := &face{key: kernel.NewShapeKey()}
	for _, e := range edges {
		f.edges = append(f.edges, e)
	}

	if pp := k.annularSector(gens); pp != nil {
		o := move(r3.Vec{})
		pp.center = move(pp.center)
		pp.normal = r3.Sub(move(pp.normal), o)
		pp.xdir = r3.Sub(move(pp.xdir), o)
		f.surf = kernel.Plane{Origin: pp.center, Normal: pp.normal, XDir: pp.xdir}
		f.patch = pp
		f.bounds = patchBounds(pp)
		orient(f, outward)
		return f
	}

	b := kernel.EmptyBox()
	for _, g := range gens {
		for _, q := range g.samples {
			b = kernel.ExpandBox(b, move(q))
		}
	}
	f.surf = kernel.Plane{
		Origin: move(gens[0].start),
		Normal: outward,
		XDir:   r3.Sub(move(hp.rdir), move(r3.Vec{})),
	}
	f.bounds = b
	return f
}

// annularSector recognises a profile made of two concentric arcs joined by
// two radial lines and returns its polar patch, or nil.
func (k *Kernel) annularSector(gens []generatrix) *polarPatch {
	if len(gens) != 4 {
		return nil
	}
	var arcs []kernel.Circle
	var sweeps []float64
	for _, g := range gens {
		c, ok := g.curve.(kernel.Circle)
		if !ok {
			continue
		}
		arcs = append(arcs, c)
		sweeps = append(sweeps, g.t1-g.t0)
	}
	if len(arcs) != 2 {
		return nil
	}
	outer, inner := arcs[0], arcs[1]
	sweep := sweeps[0]
	if inner.Radius > outer.Radius {
		outer, inner = inner, outer
		sweep = sweeps[1]
	}
	if r3.Norm(r3.Sub(outer.Center, inner.Center)) > k.tol ||
		math.Abs(math.Abs(r3.Dot(outer.Normal, inner.Normal))-1) > angleTol ||
		outer.Radius-inner.Radius <= k.tol {
		return nil
	}
	// Both inner endpoints must sit on the radial lines bounding the outer arc.
	for _, q := range []r3.Vec{inner.Value(0), inner.Value(sweeps[0] + sweeps[1] - sweep)} {
		a := outer.Angle(q)
		if math.Abs(a) > 1e-6 && math.Abs(a-sweep) > 1e-6 && math.Abs(a-2*math.Pi) > 1e-6 {
			return nil
		}
	}
	return &polarPatch{
		center: outer.Center,
		normal: outer.Normal,
		xdir:   outer.XDir,
		r0:     inner.Radius,
		r1:     outer.Radius,
		a0:     0,
		a1:     sweep,
	}
}
