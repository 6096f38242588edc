package store

import (
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/xplr/topicsearch/pkg/errors"
)

const lockName = "LOCK"

// acquireLock takes the exclusive writer lock for the index directory.
// Only one writer handle may hold it; a second concurrent writer fails with
// ErrStoreLocked.
func acquireLock(dir string) (string, error) {
	path := filepath.Join(dir, lockName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", apperrors.Newf(apperrors.ErrStoreLocked, "lock file %s exists", path)
		}
		return "", apperrors.Newf(apperrors.ErrStoreUnavailable, "acquiring lock: %v", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return path, nil
}

func releaseLock(path string) error {
	return os.Remove(path)
}
