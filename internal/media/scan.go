package media

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ScanOptions narrows which entries Scan returns. The zero value accepts
// every regular file.
type ScanOptions struct {
	// Extensions lists lowercase extensions with a leading dot. Empty means all.
	Extensions []string
	SkipHidden bool
}

// Scan returns the regular files directly inside dir, in directory
// enumeration order. Subdirectories, symlinks, and special files are skipped.
func Scan(dir string, opts ScanOptions) ([]File, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, &DirectoryAccessError{Role: "source", Path: dir, Reason: "cannot resolve path", Err: err}
	}
	if err := CheckDirectory("source", root); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, &DirectoryAccessError{Role: "source", Path: root, Reason: "cannot list entries", Err: err}
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		// Type() comes from the directory listing, so symlinks are not followed.
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if opts.SkipHidden && strings.HasPrefix(name, ".") {
			continue
		}
		file := File{Path: filepath.Join(root, name)}
		if len(opts.Extensions) > 0 && !slices.Contains(opts.Extensions, strings.ToLower(file.Ext())) {
			continue
		}
		files = append(files, file)
	}
	return files, nil
}

// CheckDirectory verifies path exists and is a directory.
func CheckDirectory(role, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &DirectoryAccessError{Role: role, Path: path, Reason: "does not exist"}
		}
		return &DirectoryAccessError{Role: role, Path: path, Reason: "cannot stat", Err: err}
	}
	if !info.IsDir() {
		return &DirectoryAccessError{Role: role, Path: path, Reason: "is not a directory"}
	}
	return nil
}
