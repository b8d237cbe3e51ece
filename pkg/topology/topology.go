// Package topology answers "which faces own this edge" over a solid. Edges
// are matched geometrically, not by identity: two edges are the same when
// their curves have the same type and their endpoints coincide within a
// tolerance in either order. The Index precomputes the answer for every
// edge of one solid snapshot; the Scanner recomputes it on every query.
package topology

import (
	"log/slog"
	"math"
	"sort"

	"github.com/chazu/elbow/internal/logging"
	"github.com/chazu/elbow/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultTolerance is the linear coincidence distance for edge endpoints,
// on the order of a geometry kernel's confusion tolerance.
const DefaultTolerance = 1e-7

// Adjacency finds the faces that own an edge geometrically equal to e.
type Adjacency interface {
	FacesSharing(e kernel.Edge) []kernel.Face
}

// Compile-time interface checks.
var (
	_ Adjacency = (*Index)(nil)
	_ Adjacency = Scanner{}
)

// EdgesEqual reports whether e1 and e2 describe the same boundary curve:
// both carry a 3D curve, the curve kinds match, and the endpoints coincide
// within tol directly or reversed.
func EdgesEqual(e1, e2 kernel.Edge, tol float64) bool {
	if e1 == nil || e2 == nil {
		return false
	}
	c1, c2 := e1.Curve(), e2.Curve()
	if c1 == nil || c2 == nil {
		return false
	}
	if c1.Kind() != c2.Kind() {
		return false
	}
	s1, t1 := e1.Endpoints()
	s2, t2 := e2.Endpoints()
	if near(s1, s2, tol) && near(t1, t2, tol) {
		return true
	}
	return near(s1, t2, tol) && near(t1, s2, tol)
}

func near(a, b r3.Vec, tol float64) bool {
	return r3.Norm(r3.Sub(a, b)) <= tol
}

// FacesSharingEdge scans every face of s for an edge equal to e. Each face
// is reported at most once, in exploration order.
func FacesSharingEdge(s kernel.Solid, e kernel.Edge, tol float64) []kernel.Face {
	var out []kernel.Face
	seen := make(map[kernel.ShapeKey]bool)
	for _, f := range s.Faces() {
		if seen[f.Key()] {
			continue
		}
		for _, fe := range f.Edges() {
			if EdgesEqual(e, fe, tol) {
				seen[f.Key()] = true
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// Scanner is the unindexed Adjacency: every query walks the whole solid.
type Scanner struct {
	Solid     kernel.Solid
	Tolerance float64
}

// FacesSharing implements Adjacency.
func (sc Scanner) FacesSharing(e kernel.Edge) []kernel.Face {
	tol := sc.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	return FacesSharingEdge(sc.Solid, e, tol)
}

// Option configures Build.
type Option func(*config)

type config struct {
	tol    float64
	logger *slog.Logger
}

// WithTolerance sets the endpoint coincidence distance.
func WithTolerance(tol float64) Option {
	return func(c *config) {
		if tol > 0 {
			c.tol = tol
		}
	}
}

// WithLogger sets the logger used for build diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// bucketKey groups edges by curve kind and by the cell holding the sum of
// their endpoints. The sum does not depend on traversal direction, so an
// edge and its reverse land in the same cell.
type bucketKey struct {
	kind    kernel.CurveKind
	x, y, z int64
}

type entry struct {
	edge  kernel.Edge
	face  kernel.Face
	order int // position of face in the solid's exploration order
}

// Index maps edges of one solid snapshot to the faces that own them.
// It is immutable after Build and safe for concurrent queries.
type Index struct {
	solid   kernel.SolidID
	tol     float64
	cell    float64
	buckets map[bucketKey][]entry
	edges   int
	skipped int
}

// Build indexes every edge of every face of s. Edges without a 3D curve
// cannot be matched and are counted in Skipped instead.
func Build(s kernel.Solid, opts ...Option) *Index {
	cfg := config{tol: DefaultTolerance, logger: logging.Discard()}
	for _, o := range opts {
		o(&cfg)
	}
	idx := &Index{
		solid:   s.ID(),
		tol:     cfg.tol,
		cell:    2 * cfg.tol,
		buckets: make(map[bucketKey][]entry),
	}
	faces := s.Faces()
	for i, f := range faces {
		for _, e := range f.Edges() {
			c := e.Curve()
			if c == nil {
				idx.skipped++
				continue
			}
			k := idx.key(c.Kind(), e)
			idx.buckets[k] = append(idx.buckets[k], entry{edge: e, face: f, order: i})
			idx.edges++
		}
	}
	cfg.logger.Debug("adjacency index built",
		"solid", idx.solid.String(),
		"faces", len(faces),
		"edges", idx.edges,
		"skipped", idx.skipped,
		"buckets", len(idx.buckets))
	return idx
}

func (idx *Index) cellOf(v float64) int64 {
	return int64(math.Floor(v / idx.cell))
}

func (idx *Index) key(kind kernel.CurveKind, e kernel.Edge) bucketKey {
	s, t := e.Endpoints()
	sum := r3.Add(s, t)
	return bucketKey{kind: kind, x: idx.cellOf(sum.X), y: idx.cellOf(sum.Y), z: idx.cellOf(sum.Z)}
}

// FacesSharing returns the faces owning an edge equal to e, in the solid's
// exploration order, each face once. An edge without a curve has none.
func (idx *Index) FacesSharing(e kernel.Edge) []kernel.Face {
	if e == nil || e.Curve() == nil {
		return nil
	}
	center := idx.key(e.Curve().Kind(), e)
	seen := make(map[kernel.ShapeKey]bool)
	var hits []entry
	// Endpoint sums of equal edges differ by at most 2·tol per axis, which
	// is one cell, so the 27 surrounding cells cover every candidate.
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				k := bucketKey{kind: center.kind, x: center.x + dx, y: center.y + dy, z: center.z + dz}
				for _, en := range idx.buckets[k] {
					if seen[en.face.Key()] || !EdgesEqual(e, en.edge, idx.tol) {
						continue
					}
					seen[en.face.Key()] = true
					hits = append(hits, en)
				}
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].order < hits[j].order })
	out := make([]kernel.Face, len(hits))
	for i, h := range hits {
		out[i] = h.face
	}
	return out
}

// Valid reports whether the index was built from this snapshot of s.
func (idx *Index) Valid(s kernel.Solid) bool {
	return s != nil && s.ID() == idx.solid
}

// SolidID returns the snapshot the index was built from.
func (idx *Index) SolidID() kernel.SolidID { return idx.solid }

// Tolerance returns the endpoint coincidence distance.
func (idx *Index) Tolerance() float64 { return idx.tol }

// Len returns the number of indexed (edge, face) pairs.
func (idx *Index) Len() int { return idx.edges }

// Skipped returns the number of edges left out for lacking a 3D curve.
func (idx *Index) Skipped() int { return idx.skipped }
