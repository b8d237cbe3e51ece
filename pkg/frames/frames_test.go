package frames

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/elbow/pkg/assembly"
	"github.com/chazu/elbow/pkg/fault"
	"gonum.org/v1/gonum/spatial/r3"
)

func sample() [4]assembly.Frame {
	joint := r3.Vec{X: 799.999, Y: -80}
	return [4]assembly.Frame{
		{Ref: r3.Vec{X: 500}, Rot: r3.Vec{X: 500}},
		{Ref: joint, Rot: joint},
		{Ref: r3.Vec{X: 850}, Rot: joint},
		{Ref: r3.Vec{X: 640}, Rot: r3.Vec{X: 640}},
	}
}

func TestWriteFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sample()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "---\n") {
		t.Errorf("missing document marker: %q", out)
	}
	for _, want := range []string{
		"Volume1:\n",
		"Volume3:\n  ref: (850.00000000,0.00000000,0.00000000)\n  rot: (799.99900000,-80.00000000,0.00000000)\n",
		"Volume4:\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Volume1") > strings.Index(out, "Volume2") {
		t.Error("volumes out of slot order")
	}
}

func TestReadWrite(t *testing.T) {
	var buf bytes.Buffer
	want := sample()
	if err := Write(&buf, want); err != nil {
		t.Fatal(err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != want {
		t.Errorf("Read() = %+v, want %+v", got, want)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing volume", "---\nVolume1:\n  ref: (0,0,0)\n  rot: (0,0,0)\n"},
		{"bad point", "Volume1:\n  ref: '1,2,3'\n  rot: (0,0,0)\nVolume2:\n  ref: (0,0,0)\n  rot: (0,0,0)\nVolume3:\n  ref: (0,0,0)\n  rot: (0,0,0)\nVolume4:\n  ref: (0,0,0)\n  rot: (0,0,0)\n"},
		{"not yaml", "Volume1: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tt.doc)); err == nil {
				t.Error("Read() accepted a broken document")
			}
		})
	}
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in      string
		want    r3.Vec
		wantErr bool
	}{
		{"(1,2,3)", r3.Vec{X: 1, Y: 2, Z: 3}, false},
		{" ( -1.5 , 0 , 2e3 ) ", r3.Vec{X: -1.5, Z: 2000}, false},
		{"(1,2)", r3.Vec{}, true},
		{"1,2,3", r3.Vec{}, true},
		{"(a,2,3)", r3.Vec{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePoint(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePoint(%q) error = %v", tt.in, err)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParsePoint(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Profile", DefaultFileName)
	if err := Save(path, sample()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != sample() {
		t.Errorf("Load() = %+v", got)
	}
	if err := Save("", sample()); !fault.Is(err, fault.InvalidInput) {
		t.Errorf("Save(\"\") = %v, want InvalidInput", err)
	}
	if _, err := Load(""); !fault.Is(err, fault.InvalidInput) {
		t.Errorf("Load(\"\") = %v, want InvalidInput", err)
	}
}
