package deploy

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Status is the terminal state of an install.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailure Status = "failure"
)

// CategorySummary condenses one category for the report.
type CategorySummary struct {
	Category      Category `json:"category"`
	SourcePresent bool     `json:"source_present"`
	Copied        int      `json:"copied"`
	Overwritten   []string `json:"overwritten,omitempty"`
	Excluded      []string `json:"excluded,omitempty"`
	Installed     int      `json:"installed"`
	Errors        []string `json:"errors,omitempty"`
}

// Report is the structured summary of an install.
type Report struct {
	RunID               string            `json:"run_id"`
	Source              string            `json:"source"`
	Target              string            `json:"target"`
	DryRun              bool              `json:"dry_run,omitempty"`
	Categories          []CategorySummary `json:"categories"`
	TotalInstalled      int               `json:"total_installed"`
	ReferencesRewritten int               `json:"references_rewritten"`
	FilesRewritten      int               `json:"files_rewritten"`
	Template            TemplateOutcome   `json:"template"`
	TemplatePath        string            `json:"template_path"`
	Gitignore           GitignoreOutcome  `json:"gitignore"`
	Warnings            []string          `json:"warnings,omitempty"`
	Status              Status            `json:"status"`
}

// ReportInput gathers the stage outputs BuildReport summarizes.
type ReportInput struct {
	RunID        string
	Source       string
	Target       string
	DryRun       bool
	Categories   []CategoryResult
	Rewrites     []RewriteResult
	Template     TemplateOutcome
	TemplateErr  error
	Gitignore    GitignoreOutcome
	GitignoreErr error
	Counts       map[Category]int
	CountErr     error
}

// BuildReport derives the summary and overall status from stage outputs.
//
// A category fails when its sync, any of its rewrites, or (for manual) the
// template failed. Status is success with no failure, partial when at least
// one category still succeeded, and failure otherwise. Gitignore and count
// problems are warnings only.
func BuildReport(in ReportInput) *Report {
	r := &Report{
		RunID:        in.RunID,
		Source:       in.Source,
		Target:       in.Target,
		DryRun:       in.DryRun,
		Template:     in.Template,
		TemplatePath: TemplatePath(in.Target),
		Gitignore:    in.Gitignore,
	}

	failed := make(map[Category][]error)
	for _, c := range in.Categories {
		failed[c.Category] = append(failed[c.Category], c.Errors...)
		// A template copied from the source by the sync stage is new to the
		// target even though the provisioner then found it in place.
		if c.TemplateSeeded && r.Template == TemplatePreserved {
			r.Template = TemplateCreated
		}
	}
	for _, rw := range in.Rewrites {
		if rw.Err != nil {
			failed[rw.Category] = append(failed[rw.Category], rw.Err)
			continue
		}
		if rw.References > 0 {
			r.FilesRewritten++
			r.ReferencesRewritten += rw.References
		}
	}
	if in.TemplateErr != nil {
		failed[CategoryManual] = append(failed[CategoryManual], in.TemplateErr)
	}

	anyFailed, anySucceeded := false, false
	for _, c := range in.Categories {
		sum := CategorySummary{
			Category:      c.Category,
			SourcePresent: c.SourcePresent,
			Copied:        len(c.Copied),
			Overwritten:   c.Overwritten,
			Excluded:      c.Excluded,
			Installed:     in.Counts[c.Category],
		}
		for _, err := range failed[c.Category] {
			sum.Errors = append(sum.Errors, err.Error())
			r.Warnings = append(r.Warnings, err.Error())
		}
		for _, p := range c.Overwritten {
			r.Warnings = append(r.Warnings, "overwrote modified file "+p)
		}
		if len(sum.Errors) > 0 {
			anyFailed = true
		} else {
			anySucceeded = true
		}
		r.TotalInstalled += sum.Installed
		r.Categories = append(r.Categories, sum)
	}
	if in.GitignoreErr != nil {
		r.Warnings = append(r.Warnings, in.GitignoreErr.Error())
	}
	if in.CountErr != nil {
		r.Warnings = append(r.Warnings, in.CountErr.Error())
	}

	switch {
	case !anyFailed:
		r.Status = StatusSuccess
	case anySucceeded:
		r.Status = StatusPartial
	default:
		r.Status = StatusFailure
	}
	return r
}

// ExitCode maps the status to a process exit code.
func (r *Report) ExitCode() int {
	if r.Status == StatusFailure {
		return 1
	}
	return 0
}

// CountFiles counts, per category, the files under target's rules root whose
// path relative to that root matches pattern (a doublestar pattern).
// A missing rules root counts as empty.
func CountFiles(fs billy.Filesystem, target, pattern string) (map[Category]int, error) {
	if pattern == "" {
		pattern = DefaultCountPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid count pattern %q", pattern)
	}

	root := RulesRoot(target)
	counts := make(map[Category]int, len(Categories))
	err := util.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root && errors.Is(err, os.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if ok, _ := doublestar.Match(pattern, rel); !ok {
			return nil
		}
		category, _, _ := strings.Cut(rel, "/")
		counts[Category(category)]++
		return nil
	})
	if err != nil {
		return counts, fmt.Errorf("counting installed rules: %w", err)
	}
	return counts, nil
}

// WriteText renders the report for humans.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder

	verb := "Installed"
	if r.DryRun {
		verb = "Would install"
	}
	fmt.Fprintf(&b, "%s rules into %s\n", verb, RulesRoot(r.Target))
	fmt.Fprintf(&b, "  source: %s\n", r.Source)
	fmt.Fprintf(&b, "  run:    %s\n", r.RunID)
	b.WriteString("\nCategories:\n")
	for _, c := range r.Categories {
		var note string
		switch {
		case len(c.Errors) > 0:
			note = fmt.Sprintf("%d error(s)", len(c.Errors))
		case !c.SourcePresent:
			note = "not in source"
		default:
			note = fmt.Sprintf("copied %d", c.Copied)
		}
		fmt.Fprintf(&b, "  %-16s %3d file(s)  (%s)\n", c.Category, c.Installed, note)
	}
	fmt.Fprintf(&b, "  %-16s %3d file(s)\n", "total", r.TotalInstalled)

	fmt.Fprintf(&b, "\nReferences rewritten: %d in %d file(s)\n", r.ReferencesRewritten, r.FilesRewritten)
	fmt.Fprintf(&b, "Template: %s (%s)\n", r.Template, r.TemplatePath)
	fmt.Fprintf(&b, ".gitignore: %s\n", r.Gitignore)

	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, warn := range r.Warnings {
			fmt.Fprintf(&b, "  - %s\n", warn)
		}
	}

	fmt.Fprintf(&b, "\nStatus: %s\n", r.Status)
	_, err := io.WriteString(w, b.String())
	return err
}
