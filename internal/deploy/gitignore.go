package deploy

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// GitignoreEntry is the path the installer suggests ignoring.
const GitignoreEntry = ".cursor/rules/"

const gitignoreBlock = "# Cursor rules installed by ruledeploy. Uncomment to keep them out of git.\n# " + GitignoreEntry + "\n"

// GitignoreOutcome records what happened to the target's .gitignore.
type GitignoreOutcome string

const (
	GitignoreUpdated     GitignoreOutcome = "updated"
	GitignoreWouldUpdate GitignoreOutcome = "would-update"
	GitignorePresent     GitignoreOutcome = "present"
	GitignoreAbsent      GitignoreOutcome = "absent"
	GitignoreDisabled    GitignoreOutcome = "disabled"
	GitignoreFailed      GitignoreOutcome = "failed"
)

// UpdateGitignore appends a commented-out ignore entry for the rules
// directory to target/.gitignore.
//
// It never creates .gitignore, and leaves it alone when the entry is already
// there, commented or not.
func UpdateGitignore(fs billy.Filesystem, target string, dryRun bool) (GitignoreOutcome, error) {
	path := filepath.Join(target, ".gitignore")

	data, err := util.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return GitignoreAbsent, nil
	}
	if err != nil {
		return GitignoreFailed, NewWriteFailedError(path, "read .gitignore", err)
	}
	if hasGitignoreEntry(data) {
		return GitignorePresent, nil
	}
	if dryRun {
		return GitignoreWouldUpdate, nil
	}

	var buf bytes.Buffer
	buf.Write(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		buf.WriteByte('\n')
	}
	if len(data) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteString(gitignoreBlock)

	if err := util.WriteFile(fs, path, buf.Bytes(), 0o644); err != nil {
		return GitignoreFailed, NewWriteFailedError(path, "update .gitignore", err)
	}
	return GitignoreUpdated, nil
}

func hasGitignoreEntry(data []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		line = strings.TrimSpace(strings.TrimPrefix(line, "#"))
		line = strings.TrimPrefix(line, "/")
		if line == GitignoreEntry || line == strings.TrimSuffix(GitignoreEntry, "/") {
			return true
		}
	}
	return false
}
