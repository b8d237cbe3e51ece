// Package centerline derives the analytic axis curves of a tube shell: the
// axis line of every cylindrical face and the spine circle of every
// toroidal face.
package centerline

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/chazu/elbow/internal/logging"
	"github.com/chazu/elbow/pkg/kernel"
	"github.com/chazu/elbow/pkg/surface"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultHalfLength bounds cylinder axes to [-500, 500] around the axis
// location. Consumers need a finite curve; the length only has to exceed
// the model.
const DefaultHalfLength = 500.0

// Segment is one centerline curve and the face it was derived from.
type Segment struct {
	Face kernel.Face
	Edge kernel.Edge
}

// Centerline collects the curves of one extraction.
type Centerline struct {
	Curves []Segment
	// Dropped counts qualifying faces whose curve could not be built.
	Dropped int
}

// Len returns the number of curves.
func (c *Centerline) Len() int { return len(c.Curves) }

// Empty reports whether no curve was produced.
func (c *Centerline) Empty() bool { return len(c.Curves) == 0 }

// Edges returns the curve edges in face order.
func (c *Centerline) Edges() []kernel.Edge {
	out := make([]kernel.Edge, len(c.Curves))
	for i, s := range c.Curves {
		out[i] = s.Edge
	}
	return out
}

// Option configures Extract.
type Option func(*options)

type options struct {
	halfLength float64
	logger     *slog.Logger
}

// WithHalfLength sets how far cylinder axes extend on each side of the
// axis location.
func WithHalfLength(h float64) Option {
	return func(o *options) {
		if h > 0 {
			o.halfLength = h
		}
	}
}

// WithLogger sets the logger for skipped and dropped faces.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Extract builds a centerline curve for every cylindrical and toroidal face
// of s. Each face is handled on its own: a face whose edge cannot be built,
// or whose edge carries no 3D curve, is logged and counted in Dropped
// without affecting the others.
func Extract(b kernel.EdgeBuilder, s kernel.Solid, opts ...Option) *Centerline {
	o := options{halfLength: DefaultHalfLength}
	for _, fn := range opts {
		fn(&o)
	}
	log := logging.OrDiscard(o.logger)

	cl := &Centerline{}
	if s == nil {
		return cl
	}
	for i, f := range s.Faces() {
		t := surface.Classify(f)
		if t != surface.Cylindrical && t != surface.Toroidal {
			continue
		}
		e, err := o.curve(b, f)
		if err == nil && (e == nil || e.Curve() == nil) {
			err = errors.New("edge has no 3D curve")
		}
		if err != nil {
			cl.Dropped++
			log.Warn("centerline dropped", "face", i, "type", t.String(), "err", err)
			continue
		}
		cl.Curves = append(cl.Curves, Segment{Face: f, Edge: e})
		log.Debug("centerline built", "face", i, "type", t.String())
	}
	log.Debug("centerlines extracted", "curves", len(cl.Curves), "dropped", cl.Dropped)
	return cl
}

// curve materializes the centerline of one face. A panic inside the edge
// builder is turned into an error so it only costs this face.
func (o options) curve(b kernel.EdgeBuilder, f kernel.Face) (e kernel.Edge, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, err = nil, fmt.Errorf("edge builder panicked: %v", r)
		}
	}()
	switch s := f.Surface().(type) {
	case kernel.Cylinder:
		dir, ok := unit(s.Axis.Direction)
		if !ok {
			return nil, errors.New("cylinder axis has no direction")
		}
		line := kernel.Line{Origin: s.Axis.Location, Direction: dir}
		return b.MakeEdge(line, -o.halfLength, o.halfLength)
	case kernel.Torus:
		n, ok := unit(s.Axis.Direction)
		if !ok {
			return nil, errors.New("torus axis has no direction")
		}
		c := kernel.Circle{
			Center: s.Axis.Location,
			Normal: n,
			XDir:   kernel.PerpendicularTo(n),
			Radius: s.MajorRadius,
		}
		return b.MakeEdge(c, 0, 2*math.Pi)
	default:
		return nil, fmt.Errorf("surface %T carries no axis", f.Surface())
	}
}

func unit(v r3.Vec) (r3.Vec, bool) {
	n := r3.Norm(v)
	if n == 0 || math.IsNaN(n) {
		return r3.Vec{}, false
	}
	return r3.Scale(1/n, v), true
}
