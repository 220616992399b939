package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/ruledeploy/internal/config"
	"github.com/roach88/ruledeploy/internal/deploy"
)

// InstallOptions holds flags for the install (root) command.
type InstallOptions struct {
	*RootOptions
	DryRun      bool
	NoGitignore bool
}

func addInstallFlags(cmd *cobra.Command, opts *InstallOptions) {
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show what would change without writing")
	cmd.Flags().BoolVar(&opts.NoGitignore, "no-gitignore", false, "leave .gitignore untouched")
}

func runInstall(opts *InstallOptions, args []string, cmd *cobra.Command) error {
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
	return outputReport(formatter, report)
}

// installer builds the Installer and its Options from flags and config.
func (opts *InstallOptions) installer(cmd *cobra.Command, cfg *config.Config, target string) (*deploy.Installer, deploy.Options, error) {
	loc, err := opts.sourceLocations(cfg)
	if err != nil {
		return nil, deploy.Options{}, err
	}

	inst := deploy.NewInstaller(opts.filesystem(),
		deploy.WithLogger(opts.logger(cmd.ErrOrStderr())),
		deploy.WithRunIDGenerator(opts.RunIDs),
	)
	return inst, deploy.Options{
		Target:       target,
		Locations:    loc,
		Exclude:      cfg.Exclude,
		CountPattern: cfg.CountPattern,
		Gitignore:    cfg.Gitignore && !opts.NoGitignore,
		DryRun:       opts.DryRun,
	}, nil
}

// outputReport prints an install report and maps its status to an exit code.
func outputReport(formatter *OutputFormatter, report *deploy.Report) error {
	if formatter.Format == "json" {
		if err := formatter.SuccessWithRunID(report, report.RunID); err != nil {
			return err
		}
	} else if err := report.WriteText(formatter.Writer); err != nil {
		return err
	}

	if report.ExitCode() != ExitSuccess {
		return &ExitError{
			Code:     report.ExitCode(),
			Message:  ErrCodeInstallFailed + ": no rule category was installed",
			reported: true,
		}
	}
	return nil
}

// outputDeployError reports an engine validation error.
func outputDeployError(formatter *OutputFormatter, err error) error {
	var de *deploy.Error
	if !errors.As(err, &de) {
		return outputError(formatter, ExitFailure, &CLIError{Code: ErrCodeGeneric, Message: err.Error()})
	}

	e := &CLIError{
		Code:    deployErrorCode(de.Code),
		Message: de.Error(),
		Hint:    de.Hint,
	}
	if len(de.Candidates) > 0 {
		e.Details = map[string][]string{"candidates": de.Candidates}
		if formatter.Format != "json" {
			// Candidates are the actionable part, so text output lists
			// them even without --verbose.
			e.Message += "\n  tried:"
			for _, c := range de.Candidates {
				e.Message += "\n    " + c
			}
		}
	} else if de.Path != "" {
		e.Details = map[string]string{"path": de.Path}
	}
	return outputError(formatter, ExitFailure, e)
}

// deployErrorCode maps engine error codes onto CLI error codes.
func deployErrorCode(code deploy.ErrorCode) string {
	switch code {
	case deploy.CodeSourceNotFound:
		return ErrCodeSourceNotFound
	case deploy.CodeTargetInvalid:
		return ErrCodeTargetInvalid
	case deploy.CodeWriteFailed:
		return ErrCodeWriteFailed
	default:
		return ErrCodeGeneric
	}
}
