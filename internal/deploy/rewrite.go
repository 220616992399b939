package deploy

import (
	"bytes"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

var referenceToken = []byte(ReferencePrefix)

// StripReferences removes every reference prefix from data and returns the
// result with the number of prefixes removed.
//
// A prefix counts as a reference only when it is followed by a path fragment
// and is not glued to a preceding path character, '/' or '@'. Path characters
// are ASCII letters, digits, "._-" and every non-ASCII byte. Runs of repeated
// prefixes collapse entirely. When nothing matches, data is returned as is.
//
// The pass is idempotent: StripReferences(StripReferences(x)) removes nothing.
func StripReferences(data []byte) ([]byte, int) {
	if !bytes.Contains(data, referenceToken) {
		return data, 0
	}

	out := make([]byte, 0, len(data))
	removed := 0
	for i := 0; i < len(data); {
		if bytes.HasPrefix(data[i:], referenceToken) && isReference(out, data[i+len(referenceToken):]) {
			i += len(referenceToken)
			removed++
			continue
		}
		out = append(out, data[i])
		i++
	}
	if removed == 0 {
		return data, 0
	}
	return out, removed
}

// isReference decides whether a prefix between before and after is a link.
func isReference(before, after []byte) bool {
	for bytes.HasPrefix(after, referenceToken) {
		after = after[len(referenceToken):]
	}
	if len(after) == 0 || !isPathByte(after[0]) {
		return false
	}
	if len(before) == 0 {
		return true
	}
	prev := before[len(before)-1]
	return !isPathByte(prev) && prev != '/' && prev != '@'
}

func isPathByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '.', b == '_', b == '-':
		return true
	case b >= 0x80:
		// Any byte of a multi-byte UTF-8 sequence.
		return true
	}
	return false
}

// RewriteResult is the outcome of rewriting one copied document.
type RewriteResult struct {
	Category   Category
	Path       string
	References int

	// Skipped is set when the document held no reference and was left untouched.
	Skipped bool

	Err error
}

// RewriteFiles strips reference prefixes from every copied document in place.
//
// Files without references are not rewritten, so their bytes (line endings,
// encoding) stay exactly as copied. In dry-run mode the source bytes are
// scanned instead and nothing is written. A failure on one file does not stop
// the others.
func RewriteFiles(fs billy.Filesystem, files []FileCopy, dryRun bool) []RewriteResult {
	results := make([]RewriteResult, 0, len(files))
	for _, f := range files {
		results = append(results, rewriteFile(fs, f, dryRun))
	}
	return results
}

func rewriteFile(fs billy.Filesystem, f FileCopy, dryRun bool) RewriteResult {
	res := RewriteResult{Category: f.Category, Path: f.Target}

	readFrom := f.Target
	if dryRun {
		readFrom = f.Source
	}
	data, err := util.ReadFile(fs, readFrom)
	if err != nil {
		res.Err = NewWriteFailedError(readFrom, "read document", err)
		return res
	}

	stripped, n := StripReferences(data)
	if n == 0 {
		res.Skipped = true
		return res
	}
	res.References = n
	if dryRun {
		return res
	}

	if err := util.WriteFile(fs, f.Target, stripped, 0o644); err != nil {
		res.Err = NewWriteFailedError(f.Target, "rewrite document", err)
	}
	return res
}
