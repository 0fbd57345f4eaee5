//go:build !windows

package sysfs

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Quote returns path quoted for a POSIX shell.
func Quote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

// Writable reports whether the current process may write to dir.
func Writable(dir string) bool {
	return unix.Access(dir, unix.W_OK) == nil
}

// RelLink creates linkName as a symlink pointing at target, relative to the
// link's directory.
func RelLink(target, linkName string) error {
	rel, err := filepath.Rel(filepath.Dir(linkName), target)
	if err != nil {
		return err
	}
	if err := os.Remove(linkName); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Symlink(rel, linkName)
}
