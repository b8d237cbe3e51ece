package kernel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// SegmentKind distinguishes straight and circular profile segments.
type SegmentKind int

const (
	SegmentLine SegmentKind = iota
	SegmentArc
)

// Segment is one piece of a closed planar profile. Mid is only used by arcs,
// which pass through Start, Mid and End in that order.
type Segment struct {
	Kind  SegmentKind
	Start r3.Vec
	Mid   r3.Vec
	End   r3.Vec
}

// Profile is a closed wire of line and arc segments, used as the cross
// section of a revolution.
type Profile struct {
	Segments []Segment
}

// Vertices returns the start point of every segment.
func (p Profile) Vertices() []r3.Vec {
	vs := make([]r3.Vec, len(p.Segments))
	for i, s := range p.Segments {
		vs[i] = s.Start
	}
	return vs
}

// Closed reports whether consecutive segments connect within tol and the
// last segment returns to the first.
func (p Profile) Closed(tol float64) bool {
	n := len(p.Segments)
	if n < 2 {
		return false
	}
	for i, s := range p.Segments {
		next := p.Segments[(i+1)%n]
		if r3.Norm(r3.Sub(s.End, next.Start)) > tol {
			return false
		}
	}
	return true
}

// ProfileBuilder assembles a Profile segment by segment.
type ProfileBuilder struct {
	start r3.Vec
	cur   r3.Vec
	segs  []Segment
}

// StartProfile begins a profile at p.
func StartProfile(p r3.Vec) *ProfileBuilder {
	return &ProfileBuilder{start: p, cur: p}
}

// LineTo appends a straight segment to p.
func (b *ProfileBuilder) LineTo(p r3.Vec) *ProfileBuilder {
	b.segs = append(b.segs, Segment{Kind: SegmentLine, Start: b.cur, End: p})
	b.cur = p
	return b
}

// ArcThrough appends a circular arc through mid ending at end.
func (b *ProfileBuilder) ArcThrough(mid, end r3.Vec) *ProfileBuilder {
	b.segs = append(b.segs, Segment{Kind: SegmentArc, Start: b.cur, Mid: mid, End: end})
	b.cur = end
	return b
}

// Close appends a line back to the start point when the wire is still open
// and returns the profile.
func (b *ProfileBuilder) Close() Profile {
	if r3.Norm(r3.Sub(b.cur, b.start)) > 0 {
		b.LineTo(b.start)
	}
	return Profile{Segments: b.segs}
}

// ArcCircle returns the circle through the three points of an arc segment
// and the swept angle from start to end. XDir points at the start point and
// the normal orients the sweep start→mid→end counterclockwise. ok is false
// for collinear points.
func ArcCircle(start, mid, end r3.Vec) (c Circle, sweep float64, ok bool) {
	u := r3.Sub(mid, start)
	w := r3.Sub(end, start)
	n := r3.Cross(u, w)
	n2 := r3.Norm2(n)
	if n2 < 1e-24 {
		return Circle{}, 0, false
	}
	// Circumcenter relative to start.
	t1 := r3.Scale(r3.Norm2(w), r3.Cross(n, u))
	t2 := r3.Scale(r3.Norm2(u), r3.Cross(w, n))
	center := r3.Add(start, r3.Scale(1/(2*n2), r3.Add(t1, t2)))

	c = Circle{
		Center: center,
		Normal: r3.Unit(n),
		XDir:   r3.Unit(r3.Sub(start, center)),
		Radius: r3.Norm(r3.Sub(start, center)),
	}
	sweep = c.Angle(end)
	if sweep < 1e-12 {
		sweep = 2 * math.Pi
	}
	return c, sweep, true
}

// Polyline returns the profile as a closed polyline: every segment start
// plus arcSteps-1 interior points per arc. The closing point is omitted.
func (p Profile) Polyline(arcSteps int) []r3.Vec {
	if arcSteps < 1 {
		arcSteps = 1
	}
	var pts []r3.Vec
	for _, s := range p.Segments {
		pts = append(pts, s.Start)
		if s.Kind != SegmentArc {
			continue
		}
		c, sweep, ok := ArcCircle(s.Start, s.Mid, s.End)
		if !ok {
			continue
		}
		for i := 1; i < arcSteps; i++ {
			pts = append(pts, c.Value(sweep*float64(i)/float64(arcSteps)))
		}
	}
	return pts
}
