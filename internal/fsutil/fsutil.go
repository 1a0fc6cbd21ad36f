// Package fsutil writes project files safely: a backup copy first, then an atomic
// replace through a temporary file in the same directory.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const defaultPerm = 0o644

// removeFile is swapped in tests.
var removeFile = os.Remove

// Backup copies path to path+suffix and returns the backup location.
func Backup(path, suffix string) (string, error) {
	dest := path + suffix

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}

	dst, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return "", fmt.Errorf("create backup: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("copy backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close backup: %w", err)
	}
	return dest, nil
}

// WriteAtomic replaces path with data. Readers see either the old or the new content.
func WriteAtomic(path string, data []byte) error {
	perm := os.FileMode(defaultPerm)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, perm)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace file: %w", err)
	}
	_ = syncDir(dir)
	return nil
}

// SafeWrite backs path up, replaces it atomically and removes the backup. On failure
// the backup is kept and its location returned alongside the error. A backup that
// cannot be removed after a successful write is only logged.
func SafeWrite(path string, data []byte, backupSuffix string) (string, error) {
	backup, err := Backup(path, backupSuffix)
	if err != nil {
		return "", err
	}
	if err := WriteAtomic(path, data); err != nil {
		return backup, err
	}
	if err := removeFile(backup); err != nil {
		log.Warn().Err(err).Str("backup", backup).Msg("Failed to remove backup")
	}
	return "", nil
}

// syncDir fsyncs a directory so a rename survives a crash. Best effort.
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
