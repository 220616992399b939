package testutil

import (
	"os"
	"path/filepath"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// WriteTree writes files under root on fs.
//
// Keys are slash-separated paths relative to root; parent directories are
// created as needed:
//
//	testutil.WriteTree(t, fs, "/dist/.cursor/rules", map[string]string{
//		"always/a.mdc": "see @universal-rules/b.mdc",
//	})
func WriteTree(t testing.TB, fs billy.Filesystem, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
		}
		if err := util.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

// ReadTree returns every regular file under root keyed by slash-separated
// path relative to root. A missing root yields an empty map.
func ReadTree(t testing.TB, fs billy.Filesystem, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := util.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root && os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		data, err := util.ReadFile(fs, path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("read tree %s: %v", root, err)
	}
	return out
}

// ListDirs returns every directory under root (root excluded) as
// slash-separated relative paths.
func ListDirs(t testing.TB, fs billy.Filesystem, root string) []string {
	t.Helper()
	var dirs []string
	err := util.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && path != root {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			dirs = append(dirs, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("list dirs %s: %v", root, err)
	}
	return dirs
}
