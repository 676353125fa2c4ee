package media

import (
	"path/filepath"
	"strings"
)

// File is one scanned source entry. Identity is the absolute path.
type File struct {
	Path string
}

// NewFile builds a File from path, making it absolute.
func NewFile(path string) (File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return File{}, err
	}
	return File{Path: abs}, nil
}

// Name returns the base name, e.g. "IMG_0001.JPG".
func (f File) Name() string { return filepath.Base(f.Path) }

// Ext returns the extension with its original case, including the dot.
// Dot-files without a further dot (".bashrc") have no extension.
func (f File) Ext() string {
	name := f.Name()
	ext := filepath.Ext(name)
	if ext == name {
		return ""
	}
	return ext
}

// Stem returns the base name without its extension.
func (f File) Stem() string { return strings.TrimSuffix(f.Name(), f.Ext()) }

// Dir returns the parent directory.
func (f File) Dir() string { return filepath.Dir(f.Path) }
