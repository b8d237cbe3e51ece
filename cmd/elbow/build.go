package main

import (
	"fmt"

	"github.com/chazu/elbow/pkg/frames"
	"github.com/spf13/cobra"
)

func newBuildCmd(g *globals) *cobra.Command {
	var (
		framesPath string
		noFrames   bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the assembly and write its reference frames",
		Long: `Build the four-part assembly and write the reference and rotation point of
every part to the frames file.

Examples:
  elbow build
  elbow build --script elbow.lisp --frames out/rigidbody.info
  elbow build --no-frames`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, asm, err := g.build()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, part := range asm.Parts {
				f := asm.Frames[part.Slot]
				fmt.Fprintf(out, "%s %-13s faces=%-2d ref=%s rot=%s\n",
					part.Slot.Volume(), part.Name, len(part.Solid.Faces()),
					frames.FormatPoint(f.Ref), frames.FormatPoint(f.Rot))
			}
			if noFrames {
				return nil
			}
			if framesPath == "" {
				framesPath = g.cfg.FramesPath
			}
			if err := s.SaveFrames(framesPath); err != nil {
				return err
			}
			fmt.Fprintf(out, "frames written to %s\n", framesPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&framesPath, "frames", "", "frames file (default from config)")
	cmd.Flags().BoolVar(&noFrames, "no-frames", false, "do not write the frames file")
	return cmd
}
