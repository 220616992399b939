package deploy

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// SyncOptions tunes the category synchronizer.
type SyncOptions struct {
	// Exclude holds doublestar patterns matched against file names.
	Exclude []string

	// DryRun computes the copy list without writing anything.
	DryRun bool
}

// FileCopy is one document copied from the source tree to the target.
type FileCopy struct {
	Category Category
	Source   string
	Target   string
}

// CategoryResult is the outcome of synchronizing one category.
type CategoryResult struct {
	Category Category

	// SourcePresent is false when the source tree lacks this category.
	SourcePresent bool

	Copied []FileCopy

	// Overwritten lists target files whose previous content differed from
	// what the install put there.
	Overwritten []string

	Excluded []string

	// TemplateSeeded is set when the source's own project template was
	// copied into a target that had none.
	TemplateSeeded bool

	Errors []error
}

// Succeeded reports whether the category synchronized without error.
func (r CategoryResult) Succeeded() bool {
	return len(r.Errors) == 0
}

// SyncCategories replicates every category of the source rule tree into the
// target project's rules root.
//
// Each target category directory is created even when the source lacks the
// category. Files are copied flat (subdirectories are ignored) and same-named
// files are overwritten, except an existing project template in manual/.
// Errors are recorded per file and per category;
// processing always continues with the next item.
func SyncCategories(fs billy.Filesystem, source, target string, opts SyncOptions, logger *slog.Logger) []CategoryResult {
	if logger == nil {
		logger = slog.Default()
	}
	rulesRoot := RulesRoot(target)

	results := make([]CategoryResult, 0, len(Categories))
	for _, c := range Categories {
		res := syncCategory(fs, c, CategoryDir(source, c), CategoryDir(rulesRoot, c), opts, logger)
		logger.Debug("category synced",
			"category", c,
			"source_present", res.SourcePresent,
			"copied", len(res.Copied),
			"errors", len(res.Errors))
		results = append(results, res)
	}
	return results
}

func syncCategory(fs billy.Filesystem, c Category, srcDir, dstDir string, opts SyncOptions, logger *slog.Logger) CategoryResult {
	res := CategoryResult{Category: c}

	if !opts.DryRun {
		if err := fs.MkdirAll(dstDir, 0o755); err != nil {
			werr := NewWriteFailedError(dstDir, "create category directory", err)
			logger.Warn("category skipped", "category", c, "error", werr)
			res.Errors = append(res.Errors, werr)
			return res
		}
	}

	entries, err := fs.ReadDir(srcDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res
		}
		werr := NewWriteFailedError(srcDir, "read source category", err)
		logger.Warn("category skipped", "category", c, "error", werr)
		res.Errors = append(res.Errors, werr)
		return res
	}
	res.SourcePresent = true

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if isExcluded(opts.Exclude, name) {
			logger.Debug("file excluded", "category", c, "file", name)
			res.Excluded = append(res.Excluded, name)
			continue
		}

		fc := FileCopy{
			Category: c,
			Source:   filepath.Join(srcDir, name),
			Target:   filepath.Join(dstDir, name),
		}
		if c == CategoryManual && name == TemplateName && exists(fs, fc.Target) {
			logger.Debug("project template kept", "path", fc.Target)
			continue
		}
		data, err := util.ReadFile(fs, fc.Source)
		if err != nil {
			werr := NewWriteFailedError(fc.Source, "read document", err)
			logger.Warn("document not copied", "error", werr)
			res.Errors = append(res.Errors, werr)
			continue
		}

		if clobbers(fs, fc.Target, data) {
			logger.Warn("overwriting modified file", "path", fc.Target)
			res.Overwritten = append(res.Overwritten, fc.Target)
		}

		if !opts.DryRun {
			if err := util.WriteFile(fs, fc.Target, data, 0o644); err != nil {
				werr := NewWriteFailedError(fc.Target, "write document", err)
				logger.Warn("document not copied", "error", werr)
				res.Errors = append(res.Errors, werr)
				continue
			}
		}
		res.Copied = append(res.Copied, fc)
		if c == CategoryManual && name == TemplateName {
			res.TemplateSeeded = true
		}
	}
	return res
}

// clobbers reports whether writing data to path replaces content that is
// neither the incoming document nor its installed (rewritten) form.
func clobbers(fs billy.Filesystem, path string, data []byte) bool {
	existing, err := util.ReadFile(fs, path)
	if err != nil {
		return false
	}
	if bytes.Equal(existing, data) {
		return false
	}
	installed, _ := StripReferences(data)
	return !bytes.Equal(existing, installed)
}

func exists(fs billy.Filesystem, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

func isExcluded(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
