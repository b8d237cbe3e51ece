// Package session holds the current solid of an editing session together
// with the artifacts derived from it: the adjacency index, the display
// mesh and its pick map, and the last picked patch. Replacing the solid
// rebuilds the index and drops everything else.
package session

import (
	"io"
	"log/slog"
	"sync"

	"github.com/chazu/elbow/internal/logging"
	"github.com/chazu/elbow/pkg/assembly"
	"github.com/chazu/elbow/pkg/centerline"
	"github.com/chazu/elbow/pkg/export"
	"github.com/chazu/elbow/pkg/fault"
	"github.com/chazu/elbow/pkg/frames"
	"github.com/chazu/elbow/pkg/kernel"
	"github.com/chazu/elbow/pkg/patch"
	"github.com/chazu/elbow/pkg/surface"
	"github.com/chazu/elbow/pkg/tessellate"
	"github.com/chazu/elbow/pkg/topology"
)

// DefaultDeflection is the linear deflection used by ExportSTL.
const DefaultDeflection = 0.5

// Session is safe for concurrent use; every method holds the session lock
// for its whole duration.
type Session struct {
	mu     sync.Mutex
	kernel kernel.Kernel
	opts   options

	asm       *assembly.Assembly
	solid     kernel.Solid
	index     *topology.Index
	display   *tessellate.Result
	selection *patch.Patch
}

// Option configures a Session.
type Option func(*options)

type options struct {
	tolerance  float64
	clearance  float64
	deflection float64
	workers    int
	halfLength float64
	allowed    surface.Set
	logger     *slog.Logger
}

// WithTolerance sets the edge matching tolerance of the adjacency index.
func WithTolerance(tol float64) Option {
	return func(o *options) { o.tolerance = tol }
}

// WithClearance sets the radial clearance between assembly parts.
func WithClearance(c float64) Option {
	return func(o *options) { o.clearance = c }
}

// WithDeflection sets the deflection ExportSTL tessellates at.
func WithDeflection(d float64) Option {
	return func(o *options) { o.deflection = d }
}

// WithWorkers bounds parallel face triangulation.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithHalfLength sets the half length of synthesized straight centerlines.
func WithHalfLength(h float64) Option {
	return func(o *options) { o.halfLength = h }
}

// WithAllowed sets the surface types a pick may grow into.
func WithAllowed(s surface.Set) Option {
	return func(o *options) { o.allowed = s }
}

// WithLogger sets the session logger. It is passed down to every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New returns an empty session over k.
func New(k kernel.Kernel, opts ...Option) *Session {
	o := options{
		tolerance:  topology.DefaultTolerance,
		clearance:  assembly.Clearance,
		deflection: DefaultDeflection,
		halfLength: centerline.DefaultHalfLength,
		allowed:    surface.Curved,
	}
	for _, fn := range opts {
		fn(&o)
	}
	o.logger = logging.OrDiscard(o.logger)
	return &Session{kernel: k, opts: o}
}

// BuildAssembly validates p, builds the four-part assembly and makes its
// compound the current solid. On any error the session is unchanged.
func (s *Session) BuildAssembly(p assembly.Parameters) (*assembly.Assembly, error) {
	warnings, err := assembly.Check(p, assembly.WithClearance(s.opts.clearance))
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		s.opts.logger.Warn("assembly parameter", "field", w.Field, "message", w.Message)
	}
	asm, err := assembly.Build(s.kernel, p,
		assembly.WithClearance(s.opts.clearance),
		assembly.WithLogger(s.opts.logger))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(asm.Compound())
	s.asm = asm
	return asm, nil
}

// Load makes solid the current solid. Frames are unavailable until the
// next BuildAssembly.
func (s *Session) Load(solid kernel.Solid) error {
	if solid == nil {
		return fault.New(fault.InvalidInput, "session", "nil solid")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(solid)
	s.asm = nil
	return nil
}

// replace swaps the current solid and rebuilds what depends on it.
// The caller holds s.mu.
func (s *Session) replace(solid kernel.Solid) {
	s.solid = solid
	s.index = topology.Build(solid,
		topology.WithTolerance(s.opts.tolerance),
		topology.WithLogger(s.opts.logger))
	s.display = nil
	s.selection = nil
	s.opts.logger.Info("solid replaced",
		"solid", solid.ID().String(),
		"faces", len(solid.Faces()),
		"skipped_edges", s.index.Skipped())
}

// Solid returns the current solid, or nil.
func (s *Session) Solid() kernel.Solid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.solid
}

// Assembly returns the assembly behind the current solid, or nil when the
// solid was loaded directly.
func (s *Session) Assembly() *assembly.Assembly {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asm
}

// Selection returns the patch of the last successful pick, or nil.
func (s *Session) Selection() *patch.Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

func (s *Session) current(op string) (kernel.Solid, error) {
	if s.solid == nil {
		return nil, fault.New(fault.InvalidInput, op, "no current solid")
	}
	return s.solid, nil
}

func (s *Session) tessellate(solid kernel.Solid, deflection float64, name string) (*tessellate.Result, error) {
	return tessellate.Tessellate(s.kernel, solid, deflection,
		tessellate.WithWorkers(s.opts.workers),
		tessellate.WithName(name),
		tessellate.WithLogger(s.opts.logger))
}

// Display tessellates the current solid and keeps the result as the pick
// map for later Pick calls.
func (s *Session) Display(deflection float64) (*tessellate.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	solid, err := s.current("session: display")
	if err != nil {
		return nil, err
	}
	res, err := s.tessellate(solid, deflection, "display")
	if err != nil {
		return nil, err
	}
	s.display = res
	return res, nil
}

// Pick grows the patch around the face that rendered triangle id in the
// last Display. It returns nil, nil when the id maps to no face or the
// face's type is not allowed; the previous selection is kept in that case.
func (s *Session) Pick(triangleID int) (*patch.Patch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	solid, err := s.current("session: pick")
	if err != nil {
		return nil, err
	}
	if s.display == nil || !s.display.Picks.Valid(solid) {
		return nil, fault.New(fault.InvalidInput, "session: pick", "no display for the current solid")
	}
	face, ok := s.display.Picks.Lookup(triangleID)
	if !ok {
		s.opts.logger.Debug("pick missed", "triangle", triangleID, "triangles", s.display.Picks.TriangleCount())
		return nil, nil
	}
	p, err := patch.Extract(solid, face,
		patch.WithIndex(s.index),
		patch.WithAllowed(s.opts.allowed.Types()...),
		patch.WithLogger(s.opts.logger))
	if err != nil || p == nil {
		return nil, err
	}
	s.opts.logger.Info("patch extracted", "triangle", triangleID, "faces", p.Len())
	s.selection = p
	return p, nil
}

// Centerlines synthesizes centerlines for the current selection, or for
// the whole solid when nothing is selected.
func (s *Session) Centerlines() (*centerline.Centerline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	solid, err := s.current("session: centerlines")
	if err != nil {
		return nil, err
	}
	if s.selection != nil {
		solid = s.selection.Shape
	}
	return centerline.Extract(s.kernel, solid,
		centerline.WithHalfLength(s.opts.halfLength),
		centerline.WithLogger(s.opts.logger)), nil
}

// Mesh tessellates the current solid at deflection without touching the
// display state: the pick map of the last Display stays in force.
func (s *Session) Mesh(deflection float64) (*kernel.Mesh, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	solid, err := s.current("session: mesh")
	if err != nil {
		return nil, err
	}
	res, err := s.tessellate(solid, deflection, "mesh")
	if err != nil {
		return nil, err
	}
	return res.Mesh, nil
}

// SaveFrames writes the reference frames of the current assembly to path.
func (s *Session) SaveFrames(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asm == nil {
		return fault.New(fault.InvalidInput, "session: frames", "no assembly built")
	}
	if err := frames.Save(path, s.asm.Frames); err != nil {
		return err
	}
	s.opts.logger.Info("frames saved", "path", path)
	return nil
}

// ExportSTL writes the current selection, or the whole solid when nothing
// is selected, as binary STL.
func (s *Session) ExportSTL(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	solid, err := s.current("session: export")
	if err != nil {
		return err
	}
	name := "solid"
	if s.selection != nil {
		solid, name = s.selection.Shape, "selection"
	}
	res, err := s.tessellate(solid, s.opts.deflection, name)
	if err != nil {
		return err
	}
	return export.WriteSTL(w, "elbow "+name, res.Mesh)
}
