package deploy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
)

// Locations are the anchors the resolver derives candidate paths from.
// Empty fields contribute no candidates.
type Locations struct {
	// Explicit is a rule tree root supplied by the user (--source or config).
	Explicit string

	// EngineDir is the directory holding the running binary.
	EngineDir string

	// WorkDir is the current working directory.
	WorkDir string

	// HomeDir is the invoking user's home directory.
	HomeDir string
}

// EngineLocations derives Locations from the running process.
// Lookups that fail leave their field empty.
func EngineLocations() Locations {
	var loc Locations
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		loc.EngineDir = filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		loc.WorkDir = wd
	}
	if home, err := os.UserHomeDir(); err == nil {
		loc.HomeDir = home
	}
	return loc
}

// Candidates returns the ordered list of rule tree roots to try.
//
// Order:
//  1. Explicit, when set
//  2. <engine>/../.cursor/rules (primary: binary inside its own distribution)
//  3. <engine>/.cursor/rules
//  4. <cwd>/.cursor/rules
//  5. <engine>/../../.cursor/rules
//  6. ~/.universal-rules/.cursor/rules
//
// Duplicates are dropped, keeping the first occurrence.
func Candidates(loc Locations) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		p = filepath.Clean(p)
		if seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}

	if loc.Explicit != "" {
		add(loc.Explicit)
	}
	if loc.EngineDir != "" {
		add(RulesRoot(filepath.Join(loc.EngineDir, "..")))
		add(RulesRoot(loc.EngineDir))
	}
	if loc.WorkDir != "" {
		add(RulesRoot(loc.WorkDir))
	}
	if loc.EngineDir != "" {
		add(RulesRoot(filepath.Join(loc.EngineDir, "..", "..")))
	}
	if loc.HomeDir != "" {
		add(RulesRoot(filepath.Join(loc.HomeDir, homeTreeDir)))
	}
	return out
}

// Resolve returns the first candidate that is an existing directory.
// If none is, it returns a source-not-found Error listing all candidates.
func Resolve(fs billy.Filesystem, candidates []string) (string, error) {
	for _, c := range candidates {
		if isDir(fs, c) {
			return c, nil
		}
	}
	return "", NewSourceNotFoundError(candidates)
}

// ResolveFor is Resolve for an install into target. A candidate that is the
// target's own rules root (after following symlinks) is passed over, so a
// project that already received the rules never becomes its own source.
func ResolveFor(fs billy.Filesystem, candidates []string, target string) (string, error) {
	for _, c := range candidates {
		if !isDir(fs, c) || IsOwnTree(fs, c, target) {
			continue
		}
		return c, nil
	}
	return "", NewSourceNotFoundError(candidates)
}

// IsOwnTree reports whether tree is target's rules root once symlinks in
// either path are resolved.
func IsOwnTree(fs billy.Filesystem, tree, target string) bool {
	return realPath(fs, tree) == realPath(fs, RulesRoot(target))
}

// maxLinkHops bounds symlink resolution so link cycles terminate.
const maxLinkHops = 40

// realPath resolves symlinks in path through fs. Components that do not
// exist are kept as written.
func realPath(fs billy.Filesystem, path string) string {
	hops := 0
	resolved, err := resolveLinks(fs, filepath.Clean(path), &hops)
	if err != nil {
		return filepath.Clean(path)
	}
	return resolved
}

var errLinkLoop = errors.New("too many levels of symbolic links")

func resolveLinks(fs billy.Filesystem, path string, hops *int) (string, error) {
	vol := filepath.VolumeName(path)
	rest := strings.TrimPrefix(path[len(vol):], string(filepath.Separator))
	resolved := vol + string(filepath.Separator)
	if !filepath.IsAbs(path) {
		resolved = vol
		rest = path[len(vol):]
	}

	parts := strings.Split(rest, string(filepath.Separator))
	for i, part := range parts {
		if part == "" || part == "." {
			continue
		}
		next := filepath.Join(resolved, part)
		info, err := fs.Lstat(next)
		if err != nil {
			// Nothing below a missing component can be a link.
			return filepath.Join(append([]string{resolved}, parts[i:]...)...), nil
		}
		if info.Mode()&os.ModeSymlink == 0 {
			resolved = next
			continue
		}

		*hops++
		if *hops > maxLinkHops {
			return "", errLinkLoop
		}
		link, err := fs.Readlink(next)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(link) {
			link = filepath.Join(resolved, link)
		}
		if resolved, err = resolveLinks(fs, filepath.Clean(link), hops); err != nil {
			return "", err
		}
	}
	return resolved, nil
}

// CandidateStatus pairs a candidate with whether it is a valid rule tree.
type CandidateStatus struct {
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
}

// Inspect reports the validity of every candidate without stopping at the
// first valid one.
func Inspect(fs billy.Filesystem, candidates []string) []CandidateStatus {
	out := make([]CandidateStatus, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, CandidateStatus{Path: c, Valid: isDir(fs, c)})
	}
	return out
}

func isDir(fs billy.Filesystem, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.IsDir()
}
