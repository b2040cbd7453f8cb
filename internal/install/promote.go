package install

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// renameDir is swapped in tests to simulate cross-device moves.
var renameDir = os.Rename

// promote moves the built tree at src to dst. When src and dst are on
// different filesystems the tree is copied to a hidden sibling of dst first,
// so dst only ever appears complete, and src is removed afterwards.
func promote(src, dst string) error {
	err := renameDir(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return err
	}

	tmp, err := os.MkdirTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".promote-")
	if err != nil {
		return fmt.Errorf("cross-device promote: %w", err)
	}
	if err := copyTree(src, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("cross-device promote: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("cross-device promote: %w", err)
	}
	_ = os.RemoveAll(src)
	return nil
}

// copyTree copies the contents of src into the existing directory dst,
// preserving permissions and symlinks.
func copyTree(src, dst string) error {
	rootInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.Chmod(dst, rootInfo.Mode().Perm()); err != nil {
		return err
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil || rel == "." {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		default:
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
