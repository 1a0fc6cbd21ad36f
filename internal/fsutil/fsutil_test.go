package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Actors.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	backup, err := SafeWrite(path, []byte("new"), ".backup")
	require.NoError(t, err)
	assert.Empty(t, backup)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "backup and temp files are cleaned up")
}

func TestSafeWrite_BackupRemovalFailureIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Actors.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	orig := removeFile
	removeFile = func(string) error { return errors.New("permission denied") }
	t.Cleanup(func() { removeFile = orig })

	backup, err := SafeWrite(path, []byte("new"), ".bak")
	require.NoError(t, err)
	assert.Empty(t, backup)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	assert.FileExists(t, path+".bak")
}

func TestSafeWrite_MissingFile(t *testing.T) {
	_, err := SafeWrite(filepath.Join(t.TempDir(), "nope.json"), []byte("x"), ".backup")
	assert.Error(t, err)
}

func TestBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "System.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	dest, err := Backup(path, ".bak")
	require.NoError(t, err)
	assert.Equal(t, path+".bak", dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestWriteAtomic_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translations.rpy")
	require.NoError(t, WriteAtomic(path, []byte("translate None:\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "translate None:\n", string(data))
}
