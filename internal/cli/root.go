package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/roach88/ruledeploy/internal/config"
	"github.com/roach88/ruledeploy/internal/deploy"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Source     string

	// FS is the filesystem commands operate on. If nil, the OS filesystem.
	FS billy.Filesystem

	// Locate returns the anchors for source resolution (for testing).
	// If nil, defaults to deploy.EngineLocations.
	Locate func() deploy.Locations

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs deploy.RunIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ruledeploy CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command around opts, letting
// tests inject a filesystem, resolver anchors, and run ids.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	installOpts := &InstallOptions{RootOptions: opts}

	cmd := &cobra.Command{
		Use:   "ruledeploy [target]",
		Short: "Install a curated rule tree into a project",
		Long: `Install the four rule categories (always, auto-attached, agent-requested,
manual) from a rules distribution into <target>/.cursor/rules.

The source tree is the first of these that exists:
  --source (or "source" in .ruledeploy.yaml)
  <binary dir>/../.cursor/rules
  <binary dir>/.cursor/rules
  <cwd>/.cursor/rules
  <binary dir>/../../.cursor/rules
  ~/.universal-rules/.cursor/rules

Installing again is safe: rule files are refreshed and the project template
manual/project-context.mdc is never overwritten.

Example:
  ruledeploy ~/code/my-app
  ruledeploy --dry-run --format json .`,
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return WrapExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(installOpts, args, cmd)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default <target>/"+config.FileName+")")
	cmd.PersistentFlags().StringVar(&opts.Source, "source", "", "rule tree root to install from (overrides discovery)")

	addInstallFlags(cmd, installOpts)

	// Add subcommands
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewSourcesCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	if !isReported(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return GetExitCode(err)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// usageArgs turns argument validation failures into command errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}

func (o *RootOptions) filesystem() billy.Filesystem {
	if o.FS == nil {
		o.FS = osfs.New("/")
	}
	return o.FS
}

func (o *RootOptions) locations() deploy.Locations {
	if o.Locate != nil {
		return o.Locate()
	}
	return deploy.EngineLocations()
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// logger builds the structured logger commands hand to the engine.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// resolveTarget returns the absolute install target, defaulting to the
// working directory.
func resolveTarget(args []string) (string, error) {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	return filepath.Abs(target)
}

// validateTarget rejects an unusable install target before the config or
// the engine look inside it.
func (o *RootOptions) validateTarget(formatter *OutputFormatter, target string) error {
	if err := deploy.ValidateTarget(o.filesystem(), target); err != nil {
		return outputDeployError(formatter, err)
	}
	return nil
}

// loadConfig loads the config for target and reports failures as command
// errors.
func (o *RootOptions) loadConfig(formatter *OutputFormatter, target string) (*config.Config, error) {
	cfg, err := config.Load(o.filesystem(), o.ConfigPath, target)
	if err != nil {
		return nil, outputError(formatter, ExitCommandError, &CLIError{
			Code:    ErrCodeConfig,
			Message: err.Error(),
			Hint:    "fix or remove the config file, or pass --config <file>",
		})
	}
	if cfg.Path() != "" {
		formatter.VerboseLog("Using config %s", cfg.Path())
	}
	return cfg, nil
}

// sourceLocations merges the explicit source (flag over config) into the
// resolver anchors.
func (o *RootOptions) sourceLocations(cfg *config.Config) (deploy.Locations, error) {
	loc := o.locations()
	explicit := o.Source
	if explicit == "" {
		explicit = cfg.Source
	}
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return loc, err
		}
		loc.Explicit = abs
	}
	return loc, nil
}
