package store

import (
	"os"
	"path/filepath"

	"github.com/alfred-dev/alfred/internal/alferrors"
)

// writeAtomic writes data to path using the write-to-temp-then-rename
// pattern: a reader in another process either sees the file before the
// write or after it, never a partial one, because rename() is atomic
// within a filesystem.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return alferrors.Fatalf("creating directory %s: %v", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return alferrors.Fatalf("creating temp file in %s: %v", dir, err)
	}
	tmpPath := tmp.Name()
	// Any return path before a successful rename must clean up the temp
	// file; a successful rename makes this Remove a harmless no-op
	// (ENOENT) since the inode has already moved.
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return alferrors.Fatalf("writing temp file %s: %v", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return alferrors.Fatalf("syncing temp file %s: %v", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return alferrors.Fatalf("closing temp file %s: %v", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return alferrors.Fatalf("chmod temp file %s: %v", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return alferrors.Fatalf("renaming %s to %s: %v", tmpPath, path, err)
	}
	return nil
}
