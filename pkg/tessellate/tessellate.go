// Package tessellate triangulates every face of a solid into one display
// mesh and records which face each triangle came from. Faces are
// triangulated in parallel; vertex and triangle offsets are assigned
// afterwards in face order, so the mesh and its pick map do not depend on
// scheduling.
package tessellate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"github.com/chazu/elbow/internal/logging"
	"github.com/chazu/elbow/pkg/fault"
	"github.com/chazu/elbow/pkg/kernel"
	"golang.org/x/sync/errgroup"
)

// Result is the mesh of a solid and its triangle to face map.
type Result struct {
	Mesh  *kernel.Mesh
	Picks *PickMap
	// Untriangulated counts faces that produced no triangles.
	Untriangulated int
}

// Option configures Tessellate.
type Option func(*options)

type options struct {
	workers int
	name    string
	logger  *slog.Logger
}

// WithWorkers bounds the number of faces triangulated at once. Values
// below one select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithName sets the PartName of the produced mesh.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Tessellate triangulates every face of s at the given linear deflection.
//
// A deflection that is not a positive number is rejected before the kernel
// is called. A face without a triangulation contributes no vertices and no
// pick entry. Any triangulation error fails the whole call and no partial
// result is returned.
func Tessellate(t kernel.Triangulator, s kernel.Solid, deflection float64, opts ...Option) (*Result, error) {
	if !(deflection > 0) || math.IsInf(deflection, 0) {
		return nil, fault.Newf(fault.InvalidInput, "tessellate", "linear deflection must be positive, got %g", deflection)
	}
	if t == nil || s == nil {
		return nil, fault.New(fault.InvalidInput, "tessellate", "nil triangulator or solid")
	}
	o := options{workers: runtime.GOMAXPROCS(0)}
	for _, fn := range opts {
		fn(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	log := logging.OrDiscard(o.logger)

	faces := s.Faces()
	meshes := make([]*kernel.FaceMesh, len(faces))

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(o.workers)
	for i, f := range faces {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fm, err := t.Triangulate(f, deflection)
			if err != nil {
				return fmt.Errorf("face %d: %w", i, err)
			}
			if err := check(fm); err != nil {
				return fmt.Errorf("face %d: %w", i, err)
			}
			meshes[i] = fm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fault.Wrap(fault.KernelFailure, "tessellate", err)
	}

	res := assemble(faces, meshes, s.ID())
	res.Mesh.PartName = o.name
	if res.Untriangulated > 0 {
		log.Warn("faces without triangulation", "solid", s.ID().String(), "count", res.Untriangulated)
	}
	log.Debug("tessellated",
		"solid", s.ID().String(),
		"faces", len(faces),
		"vertices", res.Mesh.VertexCount(),
		"triangles", res.Mesh.TriangleCount(),
		"deflection", deflection)
	return res, nil
}

// check rejects face meshes whose triangles reference missing nodes.
func check(fm *kernel.FaceMesh) error {
	if fm == nil {
		return nil
	}
	n := len(fm.Nodes)
	for ti, tri := range fm.Triangles {
		for _, idx := range tri {
			if idx < 0 || idx >= n {
				return fmt.Errorf("triangle %d references node %d of %d", ti, idx, n)
			}
		}
	}
	return nil
}

// assemble concatenates the face meshes in face order. Offsets are prefix
// sums over the preceding faces.
func assemble(faces []kernel.Face, meshes []*kernel.FaceMesh, id kernel.SolidID) *Result {
	var nodes, tris int
	for _, fm := range meshes {
		if fm != nil && len(fm.Triangles) > 0 {
			nodes += len(fm.Nodes)
			tris += len(fm.Triangles)
		}
	}

	mesh := &kernel.Mesh{
		Vertices: make([]float32, 0, nodes*3),
		Indices:  make([]uint32, 0, tris*3),
	}
	picks := &PickMap{solid: id}
	res := &Result{Mesh: mesh, Picks: picks}

	var vertexOffset, triOffset int
	for i, fm := range meshes {
		if fm == nil || len(fm.Triangles) == 0 {
			res.Untriangulated++
			continue
		}
		for _, p := range fm.Nodes {
			mesh.Vertices = append(mesh.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
		}
		rev := faces[i].Reversed()
		for _, tri := range fm.Triangles {
			a, b, c := tri[0], tri[1], tri[2]
			if rev {
				b, c = c, b
			}
			mesh.Indices = append(mesh.Indices,
				uint32(vertexOffset+a), uint32(vertexOffset+b), uint32(vertexOffset+c))
		}
		picks.ranges = append(picks.ranges, PickRange{Face: faces[i], First: triOffset, Count: len(fm.Triangles)})
		vertexOffset += len(fm.Nodes)
		triOffset += len(fm.Triangles)
	}
	picks.total = triOffset
	mesh.Normals = kernel.FlatNormals(mesh.Vertices, mesh.Indices)
	return res
}
