//go:build windows

package sysfs

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/windows"
)

// Quote returns path quoted for cmd.exe, with forward slashes folded to
// backslashes.
func Quote(path string) string {
	return `"` + strings.ReplaceAll(path, "/", `\`) + `"`
}

// Writable reports whether the current process may write to dir.
func Writable(dir string) bool {
	probe := filepath.Join(dir, ".dist-write-probe")
	f, err := os.Create(probe)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}

// RelLink creates linkName pointing at target. Symlink creation on Windows
// needs a privilege most users do not hold, so failure falls back to a copy,
// which removal handles identically.
func RelLink(target, linkName string) error {
	rel, err := filepath.Rel(filepath.Dir(linkName), target)
	if err != nil {
		return err
	}
	if err := os.Remove(linkName); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Symlink(rel, linkName); err == nil {
		return nil
	} else if le, ok := err.(*os.LinkError); ok && le.Err == windows.ERROR_PRIVILEGE_NOT_HELD {
		return Copy(target, linkName)
	} else {
		return err
	}
}
