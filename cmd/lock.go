package cmd

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

var instanceLock *flock.Flock

// AcquireLock takes the single-instance lock in dir. It reports false when
// another installer already holds it.
func AcquireLock(dir string) (bool, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, err
	}
	lock := flock.New(filepath.Join(dir, "cnchi.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return false, err
	}
	if !locked {
		return false, nil
	}
	instanceLock = lock
	return true, nil
}

// ReleaseLock drops the lock taken by AcquireLock.
func ReleaseLock() error {
	if instanceLock == nil {
		return nil
	}
	err := instanceLock.Unlock()
	instanceLock = nil
	return err
}
