// Package frames persists the reference frames of an assembly in the
// rigid-body file read by the physics setup: one YAML document holding a
// Volume<n> entry per slot, each with a ref and a rot point written as
// "(x,y,z)" with eight decimals.
package frames

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chazu/elbow/pkg/assembly"
	"github.com/chazu/elbow/pkg/fault"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the name the physics setup looks for.
const DefaultFileName = "rigidbody.info"

type entry struct {
	Ref string `yaml:"ref"`
	Rot string `yaml:"rot"`
}

// FormatPoint renders p as "(x,y,z)" with eight decimals.
func FormatPoint(p r3.Vec) string {
	return fmt.Sprintf("(%.8f,%.8f,%.8f)", p.X, p.Y, p.Z)
}

// ParsePoint parses the "(x,y,z)" form written by FormatPoint.
func ParsePoint(s string) (r3.Vec, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return r3.Vec{}, fmt.Errorf("frames: point %q is not parenthesized", s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 3 {
		return r3.Vec{}, fmt.Errorf("frames: point %q has %d coordinates, want 3", s, len(parts))
	}
	var c [3]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("frames: point %q: %w", s, err)
		}
		c[i] = v
	}
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

// Write encodes the four frames in slot order.
func Write(w io.Writer, frames [4]assembly.Frame) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range assembly.Slots {
		body := &yaml.Node{Kind: yaml.MappingNode}
		for _, kv := range [][2]string{
			{"ref", FormatPoint(frames[s].Ref)},
			{"rot", FormatPoint(frames[s].Rot)},
		} {
			body.Content = append(body.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: kv[0]},
				&yaml.Node{Kind: yaml.ScalarNode, Value: kv[1]})
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: s.Volume()}, body)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("frames: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("frames: encode: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Read decodes a frames document. Every volume must be present.
func Read(r io.Reader) ([4]assembly.Frame, error) {
	var out [4]assembly.Frame
	var doc map[string]entry
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return out, fmt.Errorf("frames: decode: %w", err)
	}
	for _, s := range assembly.Slots {
		e, ok := doc[s.Volume()]
		if !ok {
			return out, fmt.Errorf("frames: %s missing", s.Volume())
		}
		ref, err := ParsePoint(e.Ref)
		if err != nil {
			return out, fmt.Errorf("frames: %s ref: %w", s.Volume(), err)
		}
		rot, err := ParsePoint(e.Rot)
		if err != nil {
			return out, fmt.Errorf("frames: %s rot: %w", s.Volume(), err)
		}
		out[s] = assembly.Frame{Ref: ref, Rot: rot}
	}
	return out, nil
}

// Save writes the frames to path, creating its directory when needed.
func Save(path string, frames [4]assembly.Frame) error {
	if path == "" {
		return fault.New(fault.InvalidInput, "frames", "empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("frames: %w", err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, frames); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("frames: %w", err)
	}
	return nil
}

// Load reads the frames stored at path.
func Load(path string) ([4]assembly.Frame, error) {
	if path == "" {
		return [4]assembly.Frame{}, fault.New(fault.InvalidInput, "frames", "empty path")
	}
	f, err := os.Open(path)
	if err != nil {
		return [4]assembly.Frame{}, fmt.Errorf("frames: %w", err)
	}
	defer f.Close()
	return Read(f)
}
