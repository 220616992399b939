package deploy

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
)

// Options configures a single install.
type Options struct {
	// Target is the existing project directory to install into.
	Target string

	// Locations anchors source resolution.
	Locations Locations

	// Exclude holds doublestar patterns for source file names to skip.
	Exclude []string

	// CountPattern selects the files the report counts. Empty means
	// DefaultCountPattern.
	CountPattern string

	// Gitignore enables the optional .gitignore update.
	Gitignore bool

	// DryRun reports what would change without writing.
	DryRun bool
}

// Installer runs the deployment pipeline against a filesystem.
type Installer struct {
	fs     billy.Filesystem
	logger *slog.Logger
	runIDs RunIDGenerator
}

// Option customizes an Installer.
type Option func(*Installer)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(i *Installer) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithRunIDGenerator overrides run id generation (for deterministic tests).
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(i *Installer) {
		if g != nil {
			i.runIDs = g
		}
	}
}

// NewInstaller creates an Installer over fs.
func NewInstaller(fs billy.Filesystem, opts ...Option) *Installer {
	i := &Installer{
		fs:     fs,
		logger: slog.Default(),
		runIDs: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install deploys the resolved rule tree into opts.Target.
//
// A non-nil error means validation failed (target invalid or source not
// found) and nothing was written. Otherwise the returned Report carries the
// per-category outcome and overall status, including partial failures.
func (i *Installer) Install(opts Options) (*Report, error) {
	target := filepath.Clean(opts.Target)
	if err := ValidateTarget(i.fs, target); err != nil {
		return nil, err
	}

	if explicit := opts.Locations.Explicit; explicit != "" && IsOwnTree(i.fs, explicit, target) {
		return nil, NewTargetInvalidError(target, "target already hosts the source rule tree", nil)
	}
	candidates := Candidates(opts.Locations)
	source, err := ResolveFor(i.fs, candidates, target)
	if err != nil {
		i.logger.Debug("source resolution failed", "candidates", candidates)
		return nil, err
	}

	runID := i.runIDs.Generate()
	logger := i.logger.With("run", runID)
	logger.Info("installing rules", "source", source, "target", target, "dry_run", opts.DryRun)

	categories := SyncCategories(i.fs, source, target, SyncOptions{
		Exclude: opts.Exclude,
		DryRun:  opts.DryRun,
	}, logger)

	var copied []FileCopy
	for _, c := range categories {
		copied = append(copied, c.Copied...)
	}
	rewrites := RewriteFiles(i.fs, copied, opts.DryRun)
	for _, rw := range rewrites {
		switch {
		case rw.Err != nil:
			logger.Warn("rewrite failed", "error", rw.Err)
		case rw.Skipped:
			logger.Debug("rewrite skipped: no references", "path", rw.Path)
		default:
			logger.Debug("references rewritten", "path", rw.Path, "count", rw.References)
		}
	}

	tmpl, tmplErr := ProvisionTemplate(i.fs, target, opts.DryRun)
	if tmplErr != nil {
		logger.Warn("template not provisioned", "error", tmplErr)
	} else {
		logger.Debug("template", "outcome", tmpl)
	}

	gitignore, gitErr := GitignoreDisabled, error(nil)
	if opts.Gitignore {
		gitignore, gitErr = UpdateGitignore(i.fs, target, opts.DryRun)
		if gitErr != nil {
			logger.Warn(".gitignore not updated", "error", gitErr)
		}
	}

	counts, countErr := CountFiles(i.fs, target, opts.CountPattern)

	report := BuildReport(ReportInput{
		RunID:        runID,
		Source:       source,
		Target:       target,
		DryRun:       opts.DryRun,
		Categories:   categories,
		Rewrites:     rewrites,
		Template:     tmpl,
		TemplateErr:  tmplErr,
		Gitignore:    gitignore,
		GitignoreErr: gitErr,
		Counts:       counts,
		CountErr:     countErr,
	})
	logger.Info("install finished", "status", report.Status, "installed", report.TotalInstalled)
	return report, nil
}

// ValidateTarget checks that target exists and is a directory.
func ValidateTarget(fs billy.Filesystem, target string) error {
	info, err := fs.Stat(target)
	if errors.Is(err, os.ErrNotExist) {
		return NewTargetInvalidError(target, "target directory does not exist", err)
	}
	if err != nil {
		return NewTargetInvalidError(target, "cannot access target directory", err)
	}
	if !info.IsDir() {
		return NewTargetInvalidError(target, "target is not a directory", nil)
	}
	return nil
}

// InstallState summarizes an existing install.
type InstallState struct {
	Target       string           `json:"target"`
	Counts       map[Category]int `json:"counts"`
	Total        int              `json:"total"`
	Template     bool             `json:"template_present"`
	TemplatePath string           `json:"template_path"`
}

// ReadState inspects target without writing anything.
func ReadState(fs billy.Filesystem, target, pattern string) (*InstallState, error) {
	target = filepath.Clean(target)
	if err := ValidateTarget(fs, target); err != nil {
		return nil, err
	}
	counts, err := CountFiles(fs, target, pattern)
	if err != nil {
		return nil, err
	}
	st := &InstallState{
		Target:       target,
		Counts:       make(map[Category]int, len(Categories)),
		TemplatePath: TemplatePath(target),
	}
	for _, c := range Categories {
		st.Counts[c] = counts[c]
		st.Total += counts[c]
	}
	if _, err := fs.Stat(st.TemplatePath); err == nil {
		st.Template = true
	}
	return st, nil
}
