package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ruledeploy/internal/deploy"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	InstallOptions
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{InstallOptions: InstallOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "watch [target]",
		Short: "Re-install whenever the source rule tree changes",
		Long: `Install once, then watch the resolved source rule tree and re-install into
the target each time it changes. Bursts of changes are debounced.

Runs until interrupted.

Example:
  ruledeploy watch ~/code/my-app --source ~/rules/.cursor/rules`,
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoGitignore, "no-gitignore", false, "leave .gitignore untouched")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 0, "quiet period before re-installing (default from config, 500ms)")

	return cmd
}

func runWatch(opts *WatchOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	target, err := resolveTarget(args)
	if err != nil {
		return outputError(formatter, ExitFailure, &CLIError{Code: ErrCodeTargetInvalid, Message: err.Error()})
	}
	if err := opts.validateTarget(formatter, target); err != nil {
		return err
	}
	cfg, err := opts.loadConfig(formatter, target)
	if err != nil {
		return err
	}
	inst, deployOpts, err := opts.installer(cmd, cfg, target)
	if err != nil {
		return outputError(formatter, ExitCommandError, &CLIError{Code: ErrCodeUsage, Message: err.Error()})
	}

	report, err := inst.Install(deployOpts)
	if err != nil {
		return outputDeployError(formatter, err)
	}
	_ = outputReport(formatter, report)

	debounce := opts.Debounce
	if debounce == 0 {
		debounce = cfg.Watch.Debounce
	}
	logger := opts.logger(cmd.ErrOrStderr())
	w, err := deploy.NewWatcher(report.Source, debounce, logger)
	if err != nil {
		return outputError(formatter, ExitFailure, &CLIError{
			Code:    ErrCodeGeneric,
			Message: fmt.Sprintf("cannot watch %s: %v", report.Source, err),
		})
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil {
			logger.Error("error closing watcher", "error", closeErr)
		}
	}()

	// Use command's context if available (for testing), otherwise create one
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger.Info("watching source", "source", report.Source, "target", target, "debounce", debounce)
	err = w.Run(ctx, func() error {
		report, err := inst.Install(deployOpts)
		if err != nil {
			return err
		}
		if err := outputReport(formatter, report); err != nil {
			return fmt.Errorf("install %s: %w", report.RunID, err)
		}
		return nil
	})
	if err != nil {
		return WrapExitError(ExitFailure, "watch error", err)
	}

	logger.Info("watch stopped")
	return nil
}
