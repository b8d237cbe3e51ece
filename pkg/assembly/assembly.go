// Package assembly builds the four-part pipe elbow (tube, arc sector,
// rotary sleeve, fixed sleeve) from a parameter record and derives the
// reference frames consumed by the downstream physics setup.
//
// All positions are measured along +X from the left end of the tube. Every
// sleeve and the arc sector sit one clearance outside the tube wall.
package assembly

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/chazu/elbow/internal/logging"
	"github.com/chazu/elbow/pkg/fault"
	"github.com/chazu/elbow/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Clearance is the default radial gap between the tube and the parts
// fitted over it. It is unrelated to the edge matching tolerance.
const Clearance = 1e-3

// Sleeve is a cylindrical shell slid over the tube. Position is measured
// from the right end of the tube.
type Sleeve struct {
	Thickness float64
	Length    float64
	Position  float64
}

// ArcSection describes the bend: Radius is the distance from the tube axis
// to the revolve axis, Angle the sweep in radians.
type ArcSection struct {
	Radius    float64
	Thickness float64
	Angle     float64
}

// Parameters is the complete input record of an elbow assembly.
type Parameters struct {
	TubeOuterRadius float64
	TubeInnerRadius float64
	TubeLength      float64
	Rotary          Sleeve
	Fixed           Sleeve
	Arc             ArcSection
}

// DefaultParameters returns a 1000 mm tube with both sleeves and a quarter
// bend, matching the stock dimensions of the test rig.
func DefaultParameters() Parameters {
	return Parameters{
		TubeOuterRadius: 50,
		TubeInnerRadius: 40,
		TubeLength:      1000,
		Rotary:          Sleeve{Thickness: 10, Length: 100, Position: 200},
		Fixed:           Sleeve{Thickness: 10, Length: 80, Position: 400},
		Arc:             ArcSection{Radius: 80, Thickness: 15, Angle: math.Pi / 2},
	}
}

// RotaryPositionFromLeft returns where the rotary sleeve starts.
func (p Parameters) RotaryPositionFromLeft() float64 {
	return p.TubeLength - p.Rotary.Position
}

// FixedPositionFromLeft returns where the fixed sleeve starts.
func (p Parameters) FixedPositionFromLeft() float64 {
	return p.TubeLength - p.Fixed.Position
}

// Slot is the position of a part in the assembly. The order is fixed and
// matches the volume numbering of the frames file.
type Slot int

const (
	Tube Slot = iota
	ArcSector
	RotarySleeve
	FixedSleeve
)

// Slots lists every slot in order.
var Slots = [4]Slot{Tube, ArcSector, RotarySleeve, FixedSleeve}

func (s Slot) String() string {
	switch s {
	case Tube:
		return "tube"
	case ArcSector:
		return "arc-sector"
	case RotarySleeve:
		return "rotary-sleeve"
	case FixedSleeve:
		return "fixed-sleeve"
	default:
		return fmt.Sprintf("Slot(%d)", int(s))
	}
}

// Volume returns the persisted name of the slot, "Volume1" for the tube.
func (s Slot) Volume() string {
	return fmt.Sprintf("Volume%d", int(s)+1)
}

// Frame is the reference point and rotation point of one rigid part.
type Frame struct {
	Ref r3.Vec
	Rot r3.Vec
}

// Part is one built sub-solid.
type Part struct {
	Slot  Slot
	Name  string
	Solid kernel.Solid
}

// Assembly holds the four parts and their frames in slot order.
type Assembly struct {
	Params    Parameters
	Clearance float64
	Parts     [4]Part
	Frames    [4]Frame

	compound *kernel.Compound
}

// Solids returns the part solids in slot order.
func (a *Assembly) Solids() []kernel.Solid {
	out := make([]kernel.Solid, len(a.Parts))
	for i, p := range a.Parts {
		out[i] = p.Solid
	}
	return out
}

// Compound groups the faces of every part into a single solid handle.
// Parts from a kernel without boundary faces contribute nothing. The
// compound is made once, so every call returns the same snapshot.
func (a *Assembly) Compound() *kernel.Compound {
	if a.compound == nil {
		var faces []kernel.Face
		for _, p := range a.Parts {
			if p.Solid != nil {
				faces = append(faces, p.Solid.Faces()...)
			}
		}
		a.compound = kernel.NewCompound(faces...)
	}
	return a.compound
}

// Option configures Build and Validate.
type Option func(*options)

type options struct {
	clearance float64
	logger    *slog.Logger
}

// WithClearance overrides the radial clearance.
func WithClearance(c float64) Option {
	return func(o *options) { o.clearance = c }
}

// WithLogger sets the logger for build progress.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func applyOptions(opts []Option) options {
	o := options{clearance: Clearance}
	for _, fn := range opts {
		fn(&o)
	}
	o.logger = logging.OrDiscard(o.logger)
	return o
}

// Build constructs the assembly with m. The parameters are assumed to have
// passed Validate. Any kernel error aborts the build and is reported as a
// kernel failure naming the part.
func Build(m kernel.Modeler, p Parameters, opts ...Option) (*Assembly, error) {
	o := applyOptions(opts)
	c := o.clearance
	a := &Assembly{Params: p, Clearance: c}

	tube, err := shell(m, 0, p.TubeInnerRadius, p.TubeOuterRadius, p.TubeLength)
	if err != nil {
		return nil, partError(Tube, err)
	}
	a.set(Tube, tube, Frame{Ref: r3.Vec{X: p.TubeLength / 2}, Rot: r3.Vec{X: p.TubeLength / 2}})
	o.logger.Debug("part built", "slot", Tube.String(), "length", p.TubeLength)

	rotaryX := p.RotaryPositionFromLeft()
	arcX := rotaryX - c
	arcIn := p.TubeOuterRadius + c
	arcOut := arcIn + p.Arc.Thickness
	arcAxis := kernel.Axis{Location: r3.Vec{X: arcX, Y: -p.Arc.Radius}, Direction: r3.Vec{Z: 1}}
	arc, err := m.Revolve(Section(arcX, arcIn, arcOut), arcAxis, p.Arc.Angle)
	if err != nil {
		return nil, partError(ArcSector, err)
	}
	// The rotary sleeve turns about the same joint as the bend.
	joint := arcAxis.Location
	a.set(ArcSector, arc, Frame{Ref: joint, Rot: joint})
	o.logger.Debug("part built", "slot", ArcSector.String(), "position", arcX, "angle", p.Arc.Angle)

	rotIn := p.TubeOuterRadius + c
	rotary, err := shell(m, rotaryX, rotIn, rotIn+p.Rotary.Thickness, p.Rotary.Length)
	if err != nil {
		return nil, partError(RotarySleeve, err)
	}
	a.set(RotarySleeve, rotary, Frame{Ref: r3.Vec{X: rotaryX + p.Rotary.Length/2}, Rot: joint})
	o.logger.Debug("part built", "slot", RotarySleeve.String(), "position", rotaryX)

	fixedX := p.FixedPositionFromLeft()
	fixIn := p.TubeOuterRadius + c
	fixed, err := shell(m, fixedX, fixIn, fixIn+p.Fixed.Thickness, p.Fixed.Length)
	if err != nil {
		return nil, partError(FixedSleeve, err)
	}
	mid := r3.Vec{X: fixedX + p.Fixed.Length/2}
	a.set(FixedSleeve, fixed, Frame{Ref: mid, Rot: mid})
	o.logger.Debug("part built", "slot", FixedSleeve.String(), "position", fixedX)

	a.Compound()
	return a, nil
}

func (a *Assembly) set(s Slot, solid kernel.Solid, f Frame) {
	a.Parts[s] = Part{Slot: s, Name: s.String(), Solid: solid}
	a.Frames[s] = f
}

func partError(s Slot, err error) error {
	return fault.Wrap(fault.KernelFailure, "assembly: "+s.String(), err)
}

// shell returns the cylindrical shell between radii in and out starting at
// x along the tube axis.
func shell(m kernel.Modeler, x, in, out, length float64) (kernel.Solid, error) {
	axis := kernel.Axis{Location: r3.Vec{X: x}, Direction: r3.Vec{X: 1}}
	outer, err := m.Cylinder(axis, out, length)
	if err != nil {
		return nil, fmt.Errorf("outer cylinder: %w", err)
	}
	inner, err := m.Cylinder(axis, in, length)
	if err != nil {
		return nil, fmt.Errorf("inner cylinder: %w", err)
	}
	s, err := m.Cut(outer, inner)
	if err != nil {
		return nil, fmt.Errorf("cut: %w", err)
	}
	return s, nil
}

// Section returns the bend cross-section in the plane x: the half annulus
// between radii in and out on the -Y side of the tube axis.
func Section(x, in, out float64) kernel.Profile {
	return kernel.StartProfile(r3.Vec{X: x, Z: -out}).
		ArcThrough(r3.Vec{X: x, Y: -out}, r3.Vec{X: x, Z: out}).
		LineTo(r3.Vec{X: x, Z: in}).
		ArcThrough(r3.Vec{X: x, Y: -in}, r3.Vec{X: x, Z: -in}).
		Close()
}
