package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStem(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "CWE121_bad", Stem("/data/src/CWE121_bad.c"))
	assert.Equal(t, "graph.merged", Stem("graph.merged.dot"))
	assert.Equal(t, "noext", Stem("noext"))
}

func TestWriteFileAtomic_ReplacesContentAndLeavesNoTemp(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))
	require.NoError(t, WriteFileAtomic(path, []byte("new"), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be renamed away")
}

func TestExists(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	assert.True(t, Exists(dir))
	assert.False(t, Exists(filepath.Join(dir, "missing")))

	// A path under a regular file fails with ENOTDIR, not ENOENT.
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	assert.False(t, Exists(filepath.Join(file, "child")))
}
