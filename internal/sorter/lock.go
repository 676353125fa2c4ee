package sorter

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"mediasort/internal/media"
)

// LockFileName is created in the destination root while a run holds it.
const LockFileName = ".mediasort.lock"

// ErrDestinationBusy means another run holds the destination lock.
var ErrDestinationBusy = errors.New("destination is locked by another run")

type destinationLock struct {
	path string
	lock *flock.Flock
}

// acquireLock takes the advisory lock on the destination root without
// blocking.
func acquireLock(root string) (*destinationLock, error) {
	path := filepath.Join(root, LockFileName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, &media.DirectoryAccessError{
			Role:   "destination",
			Path:   root,
			Reason: "cannot lock",
			Err:    fmt.Errorf("acquire %s: %w", path, err),
		}
	}
	if !ok {
		return nil, &media.DirectoryAccessError{
			Role:   "destination",
			Path:   root,
			Reason: "in use",
			Err:    ErrDestinationBusy,
		}
	}
	return &destinationLock{path: path, lock: lock}, nil
}

func (l *destinationLock) release() error {
	if l == nil {
		return nil
	}
	return l.lock.Unlock()
}
