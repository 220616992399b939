package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ruledeploy/internal/deploy"
)

// SourcesResult lists the resolver candidates and the one an install would use.
type SourcesResult struct {
	Candidates []deploy.CandidateStatus `json:"candidates"`
	Selected   string                   `json:"selected,omitempty"`
}

// NewSourcesCommand creates the sources command.
func NewSourcesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sources [target]",
		Short: "List candidate rule tree locations",
		Long: `List, in resolution order, every location searched for the source rule
tree and mark the one an install would use. Nothing is written.

Exits 1 when no candidate is a valid rule tree.`,
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSources(rootOpts, args, cmd)
		},
	}
}

func runSources(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	target, err := resolveTarget(args)
	if err != nil {
		return outputError(formatter, ExitFailure, &CLIError{Code: ErrCodeTargetInvalid, Message: err.Error()})
	}
	cfg, err := opts.loadConfig(formatter, target)
	if err != nil {
		return err
	}
	loc, err := opts.sourceLocations(cfg)
	if err != nil {
		return outputError(formatter, ExitCommandError, &CLIError{Code: ErrCodeUsage, Message: err.Error()})
	}

	candidates := deploy.Candidates(loc)
	result := SourcesResult{Candidates: deploy.Inspect(opts.filesystem(), candidates)}
	// The target's own rules root is never selected as a source.
	result.Selected, _ = deploy.ResolveFor(opts.filesystem(), candidates, target)

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "Rule tree candidates (in resolution order):")
		for _, c := range result.Candidates {
			marker, note := " ", "missing"
			switch {
			case c.Path == result.Selected:
				marker, note = "*", "selected"
			case c.Valid && deploy.IsOwnTree(opts.filesystem(), c.Path, target):
				note = "target's own rules"
			case c.Valid:
				note = "valid"
			}
			fmt.Fprintf(formatter.Writer, "  %s %s  (%s)\n", marker, c.Path, note)
		}
	}

	if result.Selected == "" {
		return &ExitError{
			Code:     ExitFailure,
			Message:  ErrCodeSourceNotFound + ": no rule tree found",
			reported: true,
		}
	}
	return nil
}
