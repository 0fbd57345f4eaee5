package sysfs

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"golang.org/x/xerrors"
)

// HasArchiveSuffix reports whether name looks like a dist archive.
func HasArchiveSuffix(name string) bool {
	return strings.HasSuffix(name, ".zip") || strings.HasSuffix(name, ".dist")
}

// ZipExtract unpacks archive into destDir. Member paths escaping destDir are
// rejected.
func ZipExtract(archive, destDir string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return xerrors.Errorf("opening archive %s: %v", archive, err)
	}
	defer r.Close()
	for _, f := range r.File {
		name := filepath.FromSlash(f.Name)
		dest := filepath.Join(destDir, name)
		if !strings.HasPrefix(dest, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return xerrors.Errorf("archive %s: member %q escapes destination", archive, f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		mode := f.Mode().Perm()
		if mode == 0 {
			mode = 0644
		}
		out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
		if err != nil {
			rc.Close()
			return err
		}
		if _, err := io.Copy(out, rc); err != nil {
			out.Close()
			rc.Close()
			return err
		}
		rc.Close()
		if err := out.Close(); err != nil {
			return err
		}
	}
	return nil
}

// ZipCreate writes root (a directory) into archive so that the archive
// carries a single top-level directory named after root's base name. Entries
// whose base name matches one of the exclude glob patterns are skipped,
// directories wholesale.
func ZipCreate(archive, root string, exclude []string) error {
	out, err := os.Create(archive)
	if err != nil {
		return err
	}
	w := zip.NewWriter(out)
	top := filepath.Base(root)
	err = filepath.Walk(root, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		for _, pat := range exclude {
			if ok, _ := path.Match(pat, fi.Name()); ok {
				if fi.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := top + "/" + filepath.ToSlash(rel)
		if fi.IsDir() {
			_, err := w.Create(name + "/")
			return err
		}
		if !fi.Mode().IsRegular() {
			return nil // symlinks are not portable across zip consumers
		}
		hdr, err := zip.FileInfoHeader(fi)
		if err != nil {
			return err
		}
		hdr.Name = name
		hdr.Method = zip.Deflate
		fw, err := w.CreateHeader(hdr)
		if err != nil {
			return err
		}
		in, err := os.Open(p)
		if err != nil {
			return err
		}
		_, err = io.Copy(fw, in)
		in.Close()
		return err
	})
	if err != nil {
		w.Close()
		out.Close()
		os.Remove(archive)
		return err
	}
	if err := w.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ZipDistInfo probes archive for a top-level <dir>/dist.info member and
// returns its contents. The boolean is false when no such member exists.
func ZipDistInfo(archive string) ([]byte, bool, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return nil, false, xerrors.Errorf("opening archive %s: %v", archive, err)
	}
	defer r.Close()
	for _, f := range r.File {
		parts := strings.Split(path.Clean(f.Name), "/")
		if len(parts) == 2 && parts[1] == "dist.info" {
			rc, err := f.Open()
			if err != nil {
				return nil, false, err
			}
			b, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, false, err
			}
			return b, true, nil
		}
	}
	return nil, false, nil
}
