// Package patch grows a picked face into the connected region of faces
// whose surface types are allowed, walking shared edges breadth first.
package patch

import (
	"log/slog"

	"github.com/chazu/elbow/internal/logging"
	"github.com/chazu/elbow/pkg/fault"
	"github.com/chazu/elbow/pkg/kernel"
	"github.com/chazu/elbow/pkg/surface"
	"github.com/chazu/elbow/pkg/topology"
)

// Patch is a connected set of faces grown from a seed.
type Patch struct {
	Seed kernel.Face
	// Faces holds the faces in discovery order, seed first.
	Faces []kernel.Face
	// Shape groups Faces into one handle sharing the source topology.
	Shape *kernel.Compound
}

// Len returns the number of faces in the patch.
func (p *Patch) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Faces)
}

// Contains reports whether f is one of the patch faces.
func (p *Patch) Contains(f kernel.Face) bool {
	if p == nil || f == nil {
		return false
	}
	for _, pf := range p.Faces {
		if pf.Key() == f.Key() {
			return true
		}
	}
	return false
}

// Extractor runs the breadth-first search over a fixed adjacency.
type Extractor struct {
	// Allowed is the set of types the patch may contain, seed included.
	// The zero value means surface.Curved.
	Allowed   surface.Set
	Adjacency topology.Adjacency
	Logger    *slog.Logger
}

// Extract returns the patch grown from seed. A seed whose type is not
// allowed yields a nil patch and a nil error.
func (x Extractor) Extract(seed kernel.Face) (*Patch, error) {
	if seed == nil {
		return nil, fault.New(fault.InvalidInput, "patch", "nil seed face")
	}
	if x.Adjacency == nil {
		return nil, fault.New(fault.InvalidInput, "patch", "no adjacency")
	}
	allowed := x.Allowed
	if allowed == 0 {
		allowed = surface.Curved
	}
	log := logging.OrDiscard(x.Logger)

	if t := surface.Classify(seed); !allowed.Has(t) {
		log.Debug("no extraction", "seed", seed.Key(), "type", t.String(), "allowed", allowed.String())
		return nil, nil
	}

	visited := map[kernel.ShapeKey]bool{seed.Key(): true}
	queue := []kernel.Face{seed}
	var faces []kernel.Face
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		faces = append(faces, f)
		for _, e := range f.Edges() {
			for _, nb := range x.Adjacency.FacesSharing(e) {
				if visited[nb.Key()] {
					continue
				}
				if !allowed.Has(surface.Classify(nb)) {
					continue
				}
				visited[nb.Key()] = true
				queue = append(queue, nb)
			}
		}
	}

	log.Debug("patch extracted", "seed", seed.Key(), "faces", len(faces))
	return &Patch{
		Seed:  seed,
		Faces: faces,
		Shape: kernel.NewCompound(faces...),
	}, nil
}

// Option configures Extract.
type Option func(*options)

type options struct {
	allowed surface.Set
	index   *topology.Index
	scan    bool
	tol     float64
	logger  *slog.Logger
}

// WithAllowed restricts the patch to the given types.
func WithAllowed(types ...surface.Type) Option {
	return func(o *options) { o.allowed = surface.NewSet(types...) }
}

// WithIndex reuses a prebuilt adjacency index. It must have been built from
// the same solid snapshot passed to Extract.
func WithIndex(idx *topology.Index) Option {
	return func(o *options) { o.index = idx }
}

// WithScan finds neighbours by scanning the solid on every query instead
// of building an index.
func WithScan() Option {
	return func(o *options) { o.scan = true }
}

// WithTolerance sets the edge coincidence distance for a freshly built
// index or scanner.
func WithTolerance(tol float64) Option {
	return func(o *options) { o.tol = tol }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Extract grows the connected patch of s that contains seed. Faces of s
// whose type is outside the allowed set (default surface.Curved) stop the
// growth. It returns nil, nil when the seed itself is not allowed.
func Extract(s kernel.Solid, seed kernel.Face, opts ...Option) (*Patch, error) {
	o := options{tol: topology.DefaultTolerance}
	for _, fn := range opts {
		fn(&o)
	}
	if s == nil {
		return nil, fault.New(fault.InvalidInput, "patch", "nil solid")
	}
	if seed == nil {
		return nil, fault.New(fault.InvalidInput, "patch", "nil seed face")
	}
	if !owns(s, seed) {
		return nil, fault.Newf(fault.InvalidInput, "patch", "seed face %d is not a face of solid %s", seed.Key(), s.ID())
	}

	var adj topology.Adjacency
	switch {
	case o.index != nil:
		if !o.index.Valid(s) {
			return nil, fault.Newf(fault.InvalidInput, "patch",
				"adjacency index built for solid %s, not %s", o.index.SolidID(), s.ID())
		}
		adj = o.index
	case o.scan:
		adj = topology.Scanner{Solid: s, Tolerance: o.tol}
	default:
		adj = topology.Build(s, topology.WithTolerance(o.tol), topology.WithLogger(o.logger))
	}
	return Extractor{Allowed: o.allowed, Adjacency: adj, Logger: o.logger}.Extract(seed)
}

func owns(s kernel.Solid, f kernel.Face) bool {
	for _, sf := range s.Faces() {
		if sf.Key() == f.Key() {
			return true
		}
	}
	return false
}
