package media

import (
	"errors"
	"fmt"
)

// ErrDirectoryAccess marks source or destination directories that cannot be used.
var ErrDirectoryAccess = errors.New("directory access error")

// DirectoryAccessError reports a directory that does not exist, is not a
// directory, or cannot be read. It is fatal for a sort run.
type DirectoryAccessError struct {
	Role   string
	Path   string
	Reason string
	Err    error
}

func (e *DirectoryAccessError) Error() string {
	msg := fmt.Sprintf("%s directory %q: %s", e.Role, e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DirectoryAccessError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDirectoryAccess}
	}
	return []error{ErrDirectoryAccess, e.Err}
}
