package sitetraffic

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// pathLocker Serializes access to a cache file per path. Different cache
// keys never contend. Combined with atomic temp-then-rename writes this
// gives the same no-corrupt-cache guarantee an OS advisory file lock would,
// without depending on lock-file semantics.
type pathLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPathLocker() *pathLocker {
	return &pathLocker{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks the given path and returns the release function
func (pl *pathLocker) Acquire(path string) func() {
	pl.mu.Lock()
	lock, ok := pl.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		pl.locks[path] = lock
	}
	pl.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// writeFileAtomic writes data to a temporary file next to fname and renames
// it into place, so readers never observe a partially written cache file.
func writeFileAtomic(fname string, data []byte) error {
	dir := filepath.Dir(fname)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "Can't create cache directory")
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(fname)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "Can't create temporary cache file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "Can't write temporary cache file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "Can't close temporary cache file")
	}
	if err := os.Rename(tmpName, fname); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "Can't move cache file into place")
	}
	return nil
}
