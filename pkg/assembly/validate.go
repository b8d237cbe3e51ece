package assembly

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/elbow/pkg/fault"
)

// ValidationSeverity indicates whether a finding blocks the build or is
// merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks the build
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Field    string // parameter path, e.g. "rotary.length"
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Field, e.Message)
}

// Validate checks p before it is handed to Build. An empty result means the
// parameters are buildable. Warnings describe layouts that build but are
// probably not intended.
func Validate(p Parameters, opts ...Option) []ValidationError {
	o := applyOptions(opts)
	var errs []ValidationError
	errs = append(errs, validateDimensions(p)...)
	errs = append(errs, validateTube(p)...)
	errs = append(errs, validateArc(p, o.clearance)...)
	errs = append(errs, validatePlacement(p)...)
	return errs
}

// Check runs Validate once and splits the result: warnings are returned
// as they are, blocking findings are folded into one InvalidInput error.
func Check(p Parameters, opts ...Option) ([]ValidationError, error) {
	var (
		warnings []ValidationError
		blocking []error
	)
	for _, e := range Validate(p, opts...) {
		if e.Severity == SeverityError {
			blocking = append(blocking, e)
		} else {
			warnings = append(warnings, e)
		}
	}
	if len(blocking) == 0 {
		return warnings, nil
	}
	return warnings, fault.Wrap(fault.InvalidInput, "assembly", errors.Join(blocking...))
}

func positive(field string, v float64) []ValidationError {
	if v > 0 && !math.IsInf(v, 0) {
		return nil
	}
	return []ValidationError{{
		Field:    field,
		Message:  fmt.Sprintf("is %.4f, must be positive", v),
		Severity: SeverityError,
	}}
}

// validateDimensions checks that every radius, length and thickness is a
// positive finite number.
func validateDimensions(p Parameters) []ValidationError {
	var errs []ValidationError
	errs = append(errs, positive("tube.outer_radius", p.TubeOuterRadius)...)
	errs = append(errs, positive("tube.inner_radius", p.TubeInnerRadius)...)
	errs = append(errs, positive("tube.length", p.TubeLength)...)
	errs = append(errs, positive("rotary.thickness", p.Rotary.Thickness)...)
	errs = append(errs, positive("rotary.length", p.Rotary.Length)...)
	errs = append(errs, positive("fixed.thickness", p.Fixed.Thickness)...)
	errs = append(errs, positive("fixed.length", p.Fixed.Length)...)
	errs = append(errs, positive("arc.radius", p.Arc.Radius)...)
	errs = append(errs, positive("arc.thickness", p.Arc.Thickness)...)
	errs = append(errs, positive("arc.angle", p.Arc.Angle)...)
	return errs
}

func validateTube(p Parameters) []ValidationError {
	if p.TubeInnerRadius > 0 && p.TubeInnerRadius >= p.TubeOuterRadius {
		return []ValidationError{{
			Field:    "tube.inner_radius",
			Message:  fmt.Sprintf("%.4f is not smaller than outer radius %.4f", p.TubeInnerRadius, p.TubeOuterRadius),
			Severity: SeverityError,
		}}
	}
	return nil
}

// validateArc checks that the bend sweep is at most one turn and that the
// revolve axis lies outside the cross-section.
func validateArc(p Parameters, clearance float64) []ValidationError {
	var errs []ValidationError
	if p.Arc.Angle > 2*math.Pi {
		errs = append(errs, ValidationError{
			Field:    "arc.angle",
			Message:  fmt.Sprintf("%.4f rad exceeds a full turn", p.Arc.Angle),
			Severity: SeverityError,
		})
	}
	outer := p.TubeOuterRadius + clearance + p.Arc.Thickness
	if p.Arc.Radius > 0 && p.Arc.Thickness > 0 && p.Arc.Radius <= outer {
		errs = append(errs, ValidationError{
			Field:    "arc.radius",
			Message:  fmt.Sprintf("%.4f must exceed the arc outer radius %.4f", p.Arc.Radius, outer),
			Severity: SeverityError,
		})
	}
	return errs
}

// validatePlacement warns about sleeves that hang off the tube or overlap.
func validatePlacement(p Parameters) []ValidationError {
	if p.TubeLength <= 0 {
		return nil
	}
	var warnings []ValidationError
	type span struct {
		field      string
		start, end float64
	}
	spans := []span{
		{"rotary.position", p.RotaryPositionFromLeft(), p.RotaryPositionFromLeft() + p.Rotary.Length},
		{"fixed.position", p.FixedPositionFromLeft(), p.FixedPositionFromLeft() + p.Fixed.Length},
	}
	for _, s := range spans {
		if s.start < 0 || s.end > p.TubeLength {
			warnings = append(warnings, ValidationError{
				Field:    s.field,
				Message:  fmt.Sprintf("sleeve spans [%.4f, %.4f], outside the tube [0, %.4f]", s.start, s.end, p.TubeLength),
				Severity: SeverityWarning,
			})
		}
	}
	if spans[0].start < spans[1].end && spans[1].start < spans[0].end {
		warnings = append(warnings, ValidationError{
			Field:    "fixed.position",
			Message:  "fixed sleeve overlaps the rotary sleeve",
			Severity: SeverityWarning,
		})
	}
	return warnings
}
