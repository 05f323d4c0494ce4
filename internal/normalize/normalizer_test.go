package normalize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/cpgimage/internal/batch"
)

// Test Plan for Normalizer:
// - NormalizeFile overwrites the file with comment-free, canonicalized lines
// - NormalizeDir walks all regular files recursively regardless of extension
// - A canonicalizer failure on one file does not stop the rest
// - NormalizeDir rejects a missing input directory

type upperCanonicalizer struct{}

func (upperCanonicalizer) Canonicalize(lines []string) ([]string, error) {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.ToUpper(l)
	}
	return out, nil
}

type failingCanonicalizer struct{ badLine string }

func (f failingCanonicalizer) Canonicalize(lines []string) ([]string, error) {
	for _, l := range lines {
		if l == f.badLine {
			return nil, errors.New("cannot canonicalize")
		}
	}
	return lines, nil
}

func newTestNormalizer(canon Canonicalizer) *Normalizer {
	logger, _ := logtest.NewNullLogger()
	coord := batch.NewCoordinator(batch.WithWorkers(2), batch.WithLogger(logger))
	return NewNormalizer(canon, coord, logger)
}

func TestNormalizeFile_WritesInPlace(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "gadget.c")
	require.NoError(t, os.WriteFile(path, []byte("int a; // x\n/* b */int b;\n"), 0644))

	n := newTestNormalizer(upperCanonicalizer{})
	require.NoError(t, n.NormalizeFile(context.Background(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "INT A; \nINT B;", string(data))
}

func TestNormalizeDir_RecursesAndIsolatesFailures(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	files := map[string]string{
		"a.c":          "ok one",
		"notes.txt":    "ok two",
		"sub/bad.c":    "bad",
		"sub/deep/z.h": "ok three // gone",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	n := newTestNormalizer(failingCanonicalizer{badLine: "bad"})
	stats, err := n.NormalizeDir(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)

	data, err := os.ReadFile(filepath.Join(root, "sub/deep/z.h"))
	require.NoError(t, err)
	assert.Equal(t, "ok three", string(data))

	data, err = os.ReadFile(filepath.Join(root, "sub/bad.c"))
	require.NoError(t, err)
	assert.Equal(t, "bad", string(data), "failed file must be left untouched")
}

func TestNormalizeDir_MissingDirectory(t *testing.T) {
	t.Parallel()
	n := newTestNormalizer(nil)

	_, err := n.NormalizeDir(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
