package surface

import (
	"testing"

	"github.com/chazu/elbow/pkg/kernel"
	"github.com/chazu/elbow/pkg/kernel/kerneltest"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		surf kernel.Surface
		want Type
	}{
		{"plane", kernel.Plane{}, Planar},
		{"cylinder", kernel.Cylinder{Radius: 1}, Cylindrical},
		{"torus", kernel.Torus{MajorRadius: 2, MinorRadius: 1}, Toroidal},
		{"bspline", kernel.BSplineSurface{}, FreeformSpline},
		{"cone", kernel.Cone{}, Other},
		{"sphere", kernel.Sphere{}, Other},
		{"bezier", kerneltest.Kind(kernel.BezierSurface), Other},
		{"revolution", kernel.RevolutionSurface{}, Other},
		{"offset", kerneltest.Kind(kernel.OffsetSurface), Other},
		{"unknown kind", kerneltest.Kind(99), Other},
		{"nil surface", nil, Other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := kerneltest.NewFace(tt.surf)
			if got := Classify(f); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyNilFace(t *testing.T) {
	if got := Classify(nil); got != Other {
		t.Errorf("Classify(nil) = %v, want other", got)
	}
}

func TestSet(t *testing.T) {
	if Curved.Has(Planar) || Curved.Has(Other) {
		t.Error("Curved contains a flat type")
	}
	for _, ty := range []Type{Cylindrical, Toroidal, FreeformSpline} {
		if !Curved.Has(ty) {
			t.Errorf("Curved lacks %v", ty)
		}
	}
	if NewSet(Cylindrical, Toroidal, FreeformSpline) != Curved {
		t.Error("NewSet does not reproduce Curved")
	}
	if got := NewSet(Planar, Toroidal).String(); got != "{planar,toroidal}" {
		t.Errorf("String() = %q", got)
	}
	if NewSet().Has(Other) {
		t.Error("empty set has a member")
	}
}

func TestParseType(t *testing.T) {
	for _, ty := range []Type{Other, Planar, Cylindrical, Toroidal, FreeformSpline} {
		got, ok := ParseType(ty.String())
		if !ok || got != ty {
			t.Errorf("ParseType(%q) = %v, %v", ty.String(), got, ok)
		}
	}
	if _, ok := ParseType("conical"); ok {
		t.Error("ParseType accepted an unknown name")
	}
}
