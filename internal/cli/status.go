package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ruledeploy/internal/deploy"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [target]",
		Short: "Show the rules installed in a project",
		Long: `Count the installed rule files per category under <target>/.cursor/rules
and report whether the project template exists. Nothing is written.`,
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, args, cmd)
		},
	}
}

func runStatus(opts *RootOptions, args []string, cmd *cobra.Command) error {
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

	state, err := deploy.ReadState(opts.filesystem(), target, cfg.CountPattern)
	if err != nil {
		return outputDeployError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(state)
	}

	fmt.Fprintf(formatter.Writer, "Rules in %s\n", deploy.RulesRoot(state.Target))
	for _, c := range deploy.Categories {
		fmt.Fprintf(formatter.Writer, "  %-16s %3d file(s)\n", c, state.Counts[c])
	}
	fmt.Fprintf(formatter.Writer, "  %-16s %3d file(s)\n", "total", state.Total)

	template := "missing"
	if state.Template {
		template = "present"
	}
	fmt.Fprintf(formatter.Writer, "\nTemplate: %s (%s)\n", template, state.TemplatePath)
	return nil
}
