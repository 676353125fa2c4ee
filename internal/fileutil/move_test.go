package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func stubRename(t *testing.T, fn func(src, dst string) error) {
	t.Helper()
	old := renameFunc
	renameFunc = fn
	t.Cleanup(func() { renameFunc = old })
}

func TestMoveRenamesFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "out", "a.jpg")
	writeFile(t, src, "photo")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := Move(src, dst, MoveOptions{}); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source to be gone, stat err=%v", err)
	}
	if got := readFile(t, dst); got != "photo" {
		t.Fatalf("unexpected destination content %q", got)
	}
}

func TestMoveNeverReplacesDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "b.jpg")
	writeFile(t, src, "new")
	writeFile(t, dst, "existing")

	err := Move(src, dst, MoveOptions{})
	if !errors.Is(err, ErrMove) {
		t.Fatalf("expected ErrMove, got %v", err)
	}
	if KindOf(err) != KindDestinationExists {
		t.Fatalf("expected destination_exists, got %q (%v)", KindOf(err), err)
	}
	if readFile(t, src) != "new" || readFile(t, dst) != "existing" {
		t.Fatal("both files must be untouched")
	}
}

func TestFallbackRenameRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "b.jpg")
	writeFile(t, src, "new")
	writeFile(t, dst, "existing")

	if err := fallbackRename(src, dst); !errors.Is(err, os.ErrExist) {
		t.Fatalf("expected ErrExist, got %v", err)
	}
}

func TestMoveMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := Move(filepath.Join(dir, "gone.jpg"), filepath.Join(dir, "x.jpg"), MoveOptions{})
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected not_found, got %q (%v)", KindOf(err), err)
	}
}

func TestMovePermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for this user")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	writeFile(t, src, "photo")
	locked := filepath.Join(dir, "locked")
	if err := os.Mkdir(locked, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	err := Move(src, filepath.Join(locked, "a.jpg"), MoveOptions{})
	if KindOf(err) != KindPermission {
		t.Fatalf("expected permission kind, got %q (%v)", KindOf(err), err)
	}
	if readFile(t, src) != "photo" {
		t.Fatal("source must stay in place")
	}
}

func exdev(src, dst string) error {
	return &os.LinkError{Op: "rename", Old: src, New: dst, Err: syscall.EXDEV}
}

func TestMoveCrossDeviceWithoutCopyFails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("EXDEV is a unix errno")
	}
	stubRename(t, exdev)
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "b.jpg")
	writeFile(t, src, "photo")

	err := Move(src, dst, MoveOptions{CrossDeviceCopy: false})
	if KindOf(err) != KindCrossDevice {
		t.Fatalf("expected cross_device, got %q (%v)", KindOf(err), err)
	}
	if readFile(t, src) != "photo" {
		t.Fatal("source must stay in place")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatal("no destination may be written")
	}
}

func TestMoveCrossDeviceCopiesAndRemovesSource(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("EXDEV is a unix errno")
	}
	stubRename(t, exdev)
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "b.jpg")
	writeFile(t, src, "photo")

	if err := Move(src, dst, MoveOptions{CrossDeviceCopy: true}); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected source removed after verified copy")
	}
	if readFile(t, dst) != "photo" {
		t.Fatal("expected copied content")
	}
}

func TestMoveCrossDeviceCopyRespectsExistingDestination(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("EXDEV is a unix errno")
	}
	stubRename(t, exdev)
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "b.jpg")
	writeFile(t, src, "photo")
	writeFile(t, dst, "existing")

	err := Move(src, dst, MoveOptions{CrossDeviceCopy: true})
	if KindOf(err) != KindDestinationExists {
		t.Fatalf("expected destination_exists, got %q (%v)", KindOf(err), err)
	}
	if readFile(t, src) != "photo" || readFile(t, dst) != "existing" {
		t.Fatal("both files must be untouched")
	}
}
