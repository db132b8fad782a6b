package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeJoin(t *testing.T) {
	base := t.TempDir()

	joined, err := SafeJoin(base, "gifs/out.gif")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "gifs", "out.gif"), joined)

	joined, err = SafeJoin(base, "a/../b.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "b.png"), joined)

	for _, name := range []string{"", ".", "..", "../escape.gif", "a/../../escape.gif", "/etc/passwd"} {
		_, err := SafeJoin(base, name)
		assert.ErrorIs(t, err, ErrUnsafePath, name)
	}
}

func TestPathExistAndEnsureParentDir(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "nested", "deeper", "file.txt")

	exist, err := PathExist(filepath.Dir(target))
	require.NoError(t, err)
	assert.False(t, exist)

	require.NoError(t, EnsureParentDir(target))
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	exist, err = PathExist(target)
	require.NoError(t, err)
	assert.True(t, exist)
}
