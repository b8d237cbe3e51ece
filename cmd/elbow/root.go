package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/chazu/elbow/internal/config"
	"github.com/chazu/elbow/pkg/assembly"
	"github.com/chazu/elbow/pkg/engine"
	"github.com/chazu/elbow/pkg/kernel/brep"
	"github.com/chazu/elbow/pkg/session"
	"github.com/spf13/cobra"
)

// globals holds the persistent flag values and what PersistentPreRunE
// derives from them.
type globals struct {
	configPath string
	scriptPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "elbow",
		Short: "Build a pipe elbow assembly, select shells and tessellate",
		Long: `elbow builds the four-part pipe elbow assembly (tube, arc sector, rotary and
fixed sleeve) from configuration or a parameter script, grows picked faces into
connected curved shells, derives their centerlines and writes meshes as STL.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if g.logLevel != "" {
				cfg.Logging.Level = g.logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			g.cfg = cfg
			g.logger = cfg.Logger(cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default ./elbow.yaml)")
	root.PersistentFlags().StringVar(&g.scriptPath, "script", "", "parameter script overriding configured assembly parameters")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newBuildCmd(g), newExtractCmd(g), newMeshCmd(g))
	return root
}

// params returns the configured assembly parameters, overridden by the
// script when one is given.
func (g *globals) params() (assembly.Parameters, error) {
	base := g.cfg.Assembly.Parameters()
	if g.scriptPath == "" {
		return base, nil
	}
	src, err := os.ReadFile(g.scriptPath)
	if err != nil {
		return assembly.Parameters{}, fmt.Errorf("read script: %w", err)
	}
	eng := engine.NewEngine(engine.WithBase(base), engine.WithLogger(g.logger))
	p, evalErrs, err := eng.Evaluate(string(src))
	if err != nil {
		return assembly.Parameters{}, fmt.Errorf("%s: %w", g.scriptPath, err)
	}
	if len(evalErrs) > 0 {
		return assembly.Parameters{}, fmt.Errorf("%s: %w", g.scriptPath, evalErrs[0])
	}
	return *p, nil
}

func (g *globals) session() (*session.Session, error) {
	allowed, err := g.cfg.AllowedSet()
	if err != nil {
		return nil, err
	}
	k := brep.New(brep.WithTolerance(g.cfg.KernelTolerance))
	return session.New(k,
		session.WithTolerance(g.cfg.Tolerance),
		session.WithClearance(g.cfg.Clearance),
		session.WithDeflection(g.cfg.Deflection),
		session.WithWorkers(g.cfg.Workers),
		session.WithHalfLength(g.cfg.HalfLength),
		session.WithAllowed(allowed),
		session.WithLogger(g.logger),
	), nil
}

// build opens a session holding the assembly described by config and
// script.
func (g *globals) build() (*session.Session, *assembly.Assembly, error) {
	p, err := g.params()
	if err != nil {
		return nil, nil, err
	}
	s, err := g.session()
	if err != nil {
		return nil, nil, err
	}
	asm, err := s.BuildAssembly(p)
	if err != nil {
		return nil, nil, err
	}
	return s, asm, nil
}

func parseSlot(name string) (assembly.Slot, error) {
	for _, s := range assembly.Slots {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown part %q", name)
}
