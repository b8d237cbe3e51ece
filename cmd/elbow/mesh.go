package main

import (
	"fmt"
	"os"

	"github.com/chazu/elbow/pkg/assembly"
	"github.com/chazu/elbow/pkg/export"
	"github.com/chazu/elbow/pkg/kernel"
	"github.com/chazu/elbow/pkg/kernel/sdfx"
	"github.com/spf13/cobra"
)

func newMeshCmd(g *globals) *cobra.Command {
	var (
		deflection float64
		outPath    string
		preview    bool
		cells      int
	)
	cmd := &cobra.Command{
		Use:   "mesh",
		Short: "Tessellate the whole assembly",
		Long: `Tessellate every face of the assembly at the given linear deflection and
optionally write the result as binary STL.

With --preview the parts are built as signed distance fields and meshed by
marching cubes instead. The preview has no faces to select and ignores
--deflection; --cells sets its resolution.

Examples:
  elbow mesh --deflection 0.1
  elbow mesh --deflection 0.05 --out elbow.stl
  elbow mesh --preview --cells 120 --out preview.stl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var (
				m   *kernel.Mesh
				err error
			)
			if preview {
				m, err = g.preview(cells)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "preview %d cells: %d vertices, %d triangles\n", cells, m.VertexCount(), m.TriangleCount())
			} else {
				if !cmd.Flags().Changed("deflection") {
					deflection = g.cfg.Deflection
				}
				s, _, err := g.build()
				if err != nil {
					return err
				}
				m, err = s.Mesh(deflection)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "deflection %g: %d vertices, %d triangles\n", deflection, m.VertexCount(), m.TriangleCount())
			}
			if outPath == "" {
				return nil
			}

			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := export.WriteSTL(f, "elbow assembly", m); err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(out, "mesh written to %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().Float64Var(&deflection, "deflection", 0, "linear deflection (default from config)")
	cmd.Flags().StringVar(&outPath, "out", "", "write the mesh as binary STL")
	cmd.Flags().BoolVar(&preview, "preview", false, "mesh signed distance previews of the parts")
	cmd.Flags().IntVar(&cells, "cells", 100, "marching cubes cells along the longest side of each part (with --preview)")
	return cmd
}

// preview builds the assembly with the sdfx kernel and merges the marching
// cubes mesh of every part.
func (g *globals) preview(cells int) (*kernel.Mesh, error) {
	if cells <= 0 {
		return nil, fmt.Errorf("cells must be positive, got %d", cells)
	}
	p, err := g.params()
	if err != nil {
		return nil, err
	}
	opts := []assembly.Option{assembly.WithClearance(g.cfg.Clearance), assembly.WithLogger(g.logger)}
	warnings, err := assembly.Check(p, opts...)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		g.logger.Warn("assembly parameter", "field", w.Field, "message", w.Message)
	}
	k := sdfx.New(sdfx.WithMeshCells(cells))
	asm, err := assembly.Build(k, p, opts...)
	if err != nil {
		return nil, err
	}
	meshes := make([]*kernel.Mesh, 0, len(asm.Parts))
	for _, part := range asm.Parts {
		m, err := k.ToMesh(part.Solid)
		if err != nil {
			return nil, fmt.Errorf("preview %s: %w", part.Slot, err)
		}
		g.logger.Debug("preview meshed", "slot", part.Slot.String(), "triangles", m.TriangleCount())
		meshes = append(meshes, m)
	}
	return kernel.Merge(meshes...), nil
}
