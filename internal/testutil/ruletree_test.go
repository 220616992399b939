package testutil

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
)

func TestWriteTreeReadTree_RoundTrip(t *testing.T) {
	fs := memfs.New()
	files := map[string]string{
		"always/a.mdc":     "alpha",
		"manual/deep/b.md": "beta",
	}

	WriteTree(t, fs, "/root", files)

	assert.Equal(t, files, ReadTree(t, fs, "/root"))
}

func TestReadTree_MissingRoot(t *testing.T) {
	fs := memfs.New()

	assert.Empty(t, ReadTree(t, fs, "/nowhere"))
}

func TestListDirs(t *testing.T) {
	fs := memfs.New()
	WriteTree(t, fs, "/root", map[string]string{"always/a.mdc": "x"})
	assert.NoError(t, fs.MkdirAll("/root/manual", 0o755))

	assert.ElementsMatch(t, []string{"always", "manual"}, ListDirs(t, fs, "/root"))
}
