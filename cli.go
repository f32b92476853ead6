package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/chazu/orient/pkg/config"
	"github.com/chazu/orient/pkg/geom"
	"github.com/chazu/orient/pkg/orient"
	"github.com/spf13/cobra"
)

// errFailedTargets is returned by run when any target or job failed, so the
// process exits non-zero after the report is printed.
var errFailedTargets = errors.New("some targets failed")

type cfgKey struct{}

func withConfig(ctx context.Context, cfg config.Config) context.Context {
	return context.WithValue(ctx, cfgKey{}, cfg)
}

func configFromContext(ctx context.Context) config.Config {
	if cfg, ok := ctx.Value(cfgKey{}).(config.Config); ok {
		return cfg
	}
	return config.Default()
}

// newRootCmd builds the command tree. Logging goes to stderr at info level,
// or debug with --verbose.
func newRootCmd() *cobra.Command {
	var (
		verbose bool
		cfgPath string
	)

	root := &cobra.Command{
		Use:           "orient",
		Short:         "Map objects from a reference line onto target lines",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = withLogger(ctx, newLogger(cmd.ErrOrStderr(), level))
			cmd.SetContext(withConfig(ctx, cfg))
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("orient %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to a TOML config file")

	root.AddCommand(newRunCmd())
	root.AddCommand(newSolveCmd())
	root.AddCommand(newVersionCmd())
	return root
}

type runOpts struct {
	json     bool   // print the report as JSON
	meshOut  string // write meshes of the final scene to this file
	produced bool   // limit meshOut to the objects the jobs produced
	copy     bool   // default copy policy, when set on the command line
}

func newRunCmd() *cobra.Command {
	var opts runOpts

	cmd := &cobra.Command{
		Use:   "run SCRIPT",
		Short: "Evaluate an orient script and execute its jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFromContext(ctx)
			if cmd.Flags().Changed("copy") {
				cfg.Copy = opts.copy
			}
			if opts.json {
				cfg.Output.Format = config.FormatJSON
			}
			return runScript(ctx, cmd.OutOrStdout(), args[0], cfg, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "print the report as JSON")
	cmd.Flags().StringVar(&opts.meshOut, "mesh-out", "", "write meshes of the final scene as JSON to `FILE`")
	cmd.Flags().BoolVar(&opts.produced, "produced-only", false, "with --mesh-out, write only the objects the jobs produced")
	cmd.Flags().BoolVar(&opts.copy, "copy", true, "copy objects to every target (false moves them onto the last)")
	return cmd
}

func runScript(ctx context.Context, w io.Writer, path string, cfg config.Config, opts runOpts) error {
	logger := loggerFromContext(ctx)

	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	app, err := NewApp(cfg,
		WithLogger(logger),
		WithMeshes(opts.meshOut != ""),
		WithProducedMeshes(opts.meshOut != "" && opts.produced),
	)
	if err != nil {
		return err
	}
	logger.Debug("running script", "path", path, "copy", cfg.Copy, "kernel", cfg.Kernel)

	result := app.Run(string(source))

	if opts.meshOut != "" && len(result.Errors) == 0 {
		if err := writeJSONFile(opts.meshOut, result.Meshes); err != nil {
			return err
		}
		logger.Info("wrote meshes", "path", opts.meshOut, "count", len(result.Meshes))
	}

	if cfg.Output.Format == config.FormatJSON {
		report := result
		report.Meshes = nil
		if err := writeJSON(w, report); err != nil {
			return err
		}
	} else {
		renderRun(w, result)
	}

	if !result.OK() {
		return errFailedTargets
	}
	return nil
}

func newSolveCmd() *cobra.Command {
	var source, target string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Print the transform mapping one line onto another",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := geom.ParseSegment(source)
			if err != nil {
				return fmt.Errorf("--source: %w", err)
			}
			dst, err := geom.ParseSegment(target)
			if err != nil {
				return fmt.Errorf("--target: %w", err)
			}
			t, err := orient.Solve(src, dst)
			if err != nil {
				return err
			}
			cfg := configFromContext(cmd.Context())
			if asJSON || cfg.Output.Format == config.FormatJSON {
				return writeJSON(cmd.OutOrStdout(), transformData(t))
			}
			renderTransform(cmd.OutOrStdout(), t)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", `reference line as "x,y,z x,y,z"`)
	cmd.Flags().StringVar(&target, "target", "", `target line as "x,y,z x,y,z"`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the transform as JSON")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "orient %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeJSON(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
