// Package sysfs wraps the host filesystem behind a small portable surface:
// copying, moving, recursive listing, archive handling and symlinks, with
// Windows behavior split off into build-tagged overrides.
package sysfs

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/xerrors"
)

// Exists reports whether path names anything at all.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// IsDir reports whether path names a directory.
func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// IsFile reports whether path names a regular file.
func IsFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// MkDir creates path and any missing parents.
func MkDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// Delete removes path recursively. Deleting a non-existent path is not an
// error.
func Delete(path string) error {
	return os.RemoveAll(path)
}

// copyFile copies one regular file preserving its permission bits.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Copy copies src (a file, symlink or directory tree) to dst. dst is the full
// destination path, not a containing directory.
func Copy(src, dst string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}
	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		if err := os.RemoveAll(dst); err != nil {
			return err
		}
		return os.Symlink(target, dst)
	case fi.IsDir():
		if err := os.MkdirAll(dst, fi.Mode().Perm()); err != nil {
			return err
		}
		entries, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := Copy(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
				return err
			}
		}
		return nil
	case fi.Mode().IsRegular():
		return copyFile(src, dst)
	default:
		return xerrors.Errorf("copy %s: unsupported file type %v", src, fi.Mode())
	}
}

// Move renames src to dst, falling back to copy+delete across filesystems.
func Move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := Copy(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

// ListRecursive returns every path under root as slash-separated paths
// relative to root, directories before their contents, lexically ordered
// among siblings. root itself is not listed.
func ListRecursive(root string) ([]string, error) {
	var paths []string
	err := filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// TopLevel returns the names of root's direct entries, sorted.
func TopLevel(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// TempDir creates a fresh scratch directory under root.
func TempDir(root, prefix string) (string, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", err
	}
	return os.MkdirTemp(root, prefix)
}
