package platform

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Backup copies the file at path into dir (the file's directory when
// empty) as "<name>.<timestamp>.bak" and returns the copy's path.
func Backup(path, dir string, now time.Time) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	defer src.Close()

	if dir == "" {
		dir = filepath.Dir(path)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	name := fmt.Sprintf("%s.%s.bak", filepath.Base(path), now.UTC().Format("20060102T150405Z"))
	target := filepath.Join(dir, name)

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return "", fmt.Errorf("backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	return target, nil
}
