//go:build !unix

package fileutil

import (
	"errors"
	"syscall"
)

func isCrossDevice(err error) bool {
	// ERROR_NOT_SAME_DEVICE
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == 17
}

func isNameTooLong(err error) bool {
	// ERROR_FILENAME_EXCED_RANGE
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == 206
}
