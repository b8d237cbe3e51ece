// Package surface labels faces by the type of their underlying surface.
// The labels gate patch extraction (which faces a selection may grow into)
// and centerline synthesis (which faces have an analytic axis).
package surface

import (
	"strings"

	"github.com/chazu/elbow/pkg/kernel"
)

// Type is the classification of a face's surface.
type Type int

const (
	Other Type = iota
	Planar
	Cylindrical
	Toroidal
	FreeformSpline
)

func (t Type) String() string {
	switch t {
	case Planar:
		return "planar"
	case Cylindrical:
		return "cylindrical"
	case Toroidal:
		return "toroidal"
	case FreeformSpline:
		return "freeform-spline"
	default:
		return "other"
	}
}

// ParseType maps a name produced by Type.String back to its Type.
func ParseType(s string) (Type, bool) {
	for _, t := range []Type{Other, Planar, Cylindrical, Toroidal, FreeformSpline} {
		if strings.EqualFold(s, t.String()) {
			return t, true
		}
	}
	return Other, false
}

// Classify returns the type of f's surface. Faces without a surface and
// every surface kind not listed map to Other.
func Classify(f kernel.Face) Type {
	if f == nil {
		return Other
	}
	s := f.Surface()
	if s == nil {
		return Other
	}
	switch s.Kind() {
	case kernel.PlaneSurface:
		return Planar
	case kernel.CylinderSurface:
		return Cylindrical
	case kernel.TorusSurface:
		return Toroidal
	case kernel.BSplineSurfaceKind:
		return FreeformSpline
	}
	return Other
}

// Set is a set of surface types.
type Set uint8

// Curved is the default set a selection may grow into: the outer skin of
// tubes and bends, without planar end caps and ports.
const Curved = Set(1<<Cylindrical | 1<<Toroidal | 1<<FreeformSpline)

// NewSet returns the set holding types.
func NewSet(types ...Type) Set {
	var s Set
	for _, t := range types {
		s |= 1 << t
	}
	return s
}

// Has reports whether t is in s.
func (s Set) Has(t Type) bool {
	return s&(1<<t) != 0
}

// Types returns the members of s in declaration order.
func (s Set) Types() []Type {
	var out []Type
	for _, t := range []Type{Other, Planar, Cylindrical, Toroidal, FreeformSpline} {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s Set) String() string {
	names := make([]string, 0, 5)
	for _, t := range s.Types() {
		names = append(names, t.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}
