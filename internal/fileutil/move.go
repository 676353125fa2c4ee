package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ErrMove marks per-file move failures.
var ErrMove = errors.New("move error")

// Kind classifies a move failure.
type Kind string

const (
	KindPermission        Kind = "permission"
	KindCrossDevice       Kind = "cross_device"
	KindDestinationExists Kind = "destination_exists"
	KindNotFound          Kind = "not_found"
	KindNameTooLong       Kind = "name_too_long"
	KindIO                Kind = "io"
)

// MoveError reports why a file could not be moved. The source is left in
// place whenever a MoveError is returned.
type MoveError struct {
	Kind Kind
	Src  string
	Dst  string
	Err  error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move %q -> %q (%s): %v", e.Src, e.Dst, e.Kind, e.Err)
}

func (e *MoveError) Unwrap() []error { return []error{ErrMove, e.Err} }

// KindOf returns the Kind of a MoveError inside err, or "" if there is none.
func KindOf(err error) Kind {
	var me *MoveError
	if errors.As(err, &me) {
		return me.Kind
	}
	return ""
}

// MoveOptions controls Move.
type MoveOptions struct {
	// CrossDeviceCopy falls back to verified copy + delete when src and dst
	// are on different filesystems. When false such moves fail with
	// KindCrossDevice.
	CrossDeviceCopy bool
}

// renameFunc is swapped in tests to simulate EXDEV and similar failures.
var renameFunc = renameNoReplace

// Move renames src to dst without replacing an existing dst.
func Move(src, dst string, opts MoveOptions) error {
	err := renameFunc(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return classify(src, dst, err)
	}
	if !opts.CrossDeviceCopy {
		return &MoveError{Kind: KindCrossDevice, Src: src, Dst: dst, Err: err}
	}
	if err := copyThenRemove(src, dst); err != nil {
		return classify(src, dst, err)
	}
	return nil
}

func copyThenRemove(src, dst string) error {
	if err := CopyFileVerified(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		// Keep exactly one copy: the untouched source.
		_ = os.Remove(dst)
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

// fallbackRename is the portable no-replace rename: check, then rename. A
// destination created between the two calls is overwritten, which is the
// documented limit of the non-atomic path.
func fallbackRename(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Rename(src, dst)
}

func classify(src, dst string, err error) error {
	kind := KindIO
	switch {
	case errors.Is(err, fs.ErrExist):
		kind = KindDestinationExists
	case errors.Is(err, fs.ErrPermission):
		kind = KindPermission
	case errors.Is(err, fs.ErrNotExist):
		kind = KindNotFound
	case isCrossDevice(err):
		kind = KindCrossDevice
	case isNameTooLong(err):
		kind = KindNameTooLong
	}
	return &MoveError{Kind: kind, Src: src, Dst: dst, Err: err}
}
