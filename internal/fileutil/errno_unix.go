//go:build unix

package fileutil

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}

func isNameTooLong(err error) bool {
	return errors.Is(err, unix.ENAMETOOLONG)
}
