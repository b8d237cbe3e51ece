package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/chazu/elbow/pkg/kernel"
	"github.com/chazu/elbow/pkg/surface"
	"github.com/spf13/cobra"
)

func newExtractCmd(g *globals) *cobra.Command {
	var (
		triangle   int
		partName   string
		faceIndex  int
		deflection float64
		outPath    string
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Grow a picked face into its connected shell",
		Long: `Display the assembly, pick a triangle and grow the face that rendered it into
the connected shell of allowed surface types. The seed is either a triangle id
of the display mesh or a face of one part.

Examples:
  elbow extract --triangle 120
  elbow extract --part arc-sector --face 0 --out shell.stl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("deflection") {
				deflection = g.cfg.Deflection
			}
			s, asm, err := g.build()
			if err != nil {
				return err
			}
			res, err := s.Display(deflection)
			if err != nil {
				return err
			}

			id := triangle
			if partName != "" {
				slot, err := parseSlot(partName)
				if err != nil {
					return err
				}
				faces := asm.Parts[slot].Solid.Faces()
				if faceIndex < 0 || faceIndex >= len(faces) {
					return fmt.Errorf("%s has %d faces, no face %d", partName, len(faces), faceIndex)
				}
				r, ok := res.Picks.Range(faces[faceIndex])
				if !ok || r.Count == 0 {
					return fmt.Errorf("%s face %d was not rendered", partName, faceIndex)
				}
				id = r.First
			}

			out := cmd.OutOrStdout()
			p, err := s.Pick(id)
			if err != nil {
				return err
			}
			if p == nil {
				fmt.Fprintf(out, "triangle %d: no shell\n", id)
				return nil
			}
			fmt.Fprintf(out, "triangle %d: %d faces\n", id, p.Len())
			for i, f := range p.Faces {
				fmt.Fprintf(out, "  %2d %-15s face %d\n", i, surface.Classify(f), f.Key())
			}

			cl, err := s.Centerlines()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "centerlines: %d (%d dropped)\n", cl.Len(), cl.Dropped)
			for _, seg := range cl.Curves {
				fmt.Fprintf(out, "  face %d: %s\n", seg.Face.Key(), describe(seg.Edge))
			}

			if outPath == "" {
				return nil
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			err = s.ExportSTL(f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return errors.Join(err, os.Remove(outPath))
			}
			fmt.Fprintf(out, "shell written to %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().IntVar(&triangle, "triangle", 0, "triangle id of the display mesh")
	cmd.Flags().StringVar(&partName, "part", "", "seed part: tube, arc-sector, rotary-sleeve, fixed-sleeve")
	cmd.Flags().IntVar(&faceIndex, "face", 0, "seed face index within --part")
	cmd.Flags().Float64Var(&deflection, "deflection", 0, "display deflection (default from config)")
	cmd.Flags().StringVar(&outPath, "out", "", "write the shell as binary STL")
	cmd.MarkFlagsMutuallyExclusive("triangle", "part")
	return cmd
}

func describe(e kernel.Edge) string {
	switch c := e.Curve().(type) {
	case kernel.Line:
		a, b := e.Endpoints()
		return fmt.Sprintf("line %.3f,%.3f,%.3f -> %.3f,%.3f,%.3f", a.X, a.Y, a.Z, b.X, b.Y, b.Z)
	case kernel.Circle:
		return fmt.Sprintf("circle center %.3f,%.3f,%.3f radius %.3f", c.Center.X, c.Center.Y, c.Center.Z, c.Radius)
	default:
		return "curve"
	}
}
