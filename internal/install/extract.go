package install

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// extractTarXz streams an xz-compressed tarball into dest.
func extractTarXz(r io.Reader, dest string) error {
	br := bufio.NewReader(r)
	if _, err := br.Peek(1); errors.Is(err, io.EOF) {
		return &Error{Kind: KindArchiveEmpty}
	} else if err != nil {
		return &Error{Kind: KindDownloadFailed, Err: err}
	}
	xzr, err := xz.NewReader(br)
	if err != nil {
		return &Error{Kind: KindExtractFailed, Err: fmt.Errorf("xz reader: %w", err)}
	}
	return untar(xzr, dest)
}

// untar writes every entry through an os.Root at dest, so no entry can land
// outside dest even by way of symlinks extracted earlier.
func untar(r io.Reader, dest string) error {
	root, err := os.OpenRoot(dest)
	if err != nil {
		return &Error{Kind: KindIo, Err: err}
	}
	defer root.Close()
	realDest, err := filepath.EvalSymlinks(dest)
	if err != nil {
		return &Error{Kind: KindIo, Err: err}
	}

	var links []string
	tr := tar.NewReader(r)
	for {
		h, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &Error{Kind: KindExtractFailed, Err: fmt.Errorf("read tar header: %w", err)}
		}
		name := sanitizeArchivePath(h.Name)
		if name == "" {
			continue
		}
		mode := os.FileMode(h.Mode).Perm()

		switch h.Typeflag {
		case tar.TypeDir:
			if err := mkdirAll(root, name, mode|0o700); err != nil {
				return &Error{Kind: KindExtractFailed, Err: fmt.Errorf("create dir %s: %w", h.Name, err)}
			}
		case tar.TypeReg:
			if err := mkdirParent(root, name); err != nil {
				return &Error{Kind: KindExtractFailed, Err: fmt.Errorf("prepare file %s: %w", h.Name, err)}
			}
			if err := writeFileFromReader(root, name, tr, mode); err != nil {
				return &Error{Kind: KindExtractFailed, Err: fmt.Errorf("write file %s: %w", h.Name, err)}
			}
		case tar.TypeSymlink:
			if err := mkdirParent(root, name); err != nil {
				return &Error{Kind: KindExtractFailed, Err: fmt.Errorf("prepare symlink %s: %w", h.Name, err)}
			}
			parent, err := filepath.EvalSymlinks(filepath.Join(dest, filepath.Dir(name)))
			if err != nil || !linkStaysInside(realDest, parent, h.Linkname) {
				return &Error{Kind: KindExtractFailed, Err: fmt.Errorf("symlink %s -> %s escapes the archive", h.Name, h.Linkname)}
			}
			if err := root.Symlink(h.Linkname, name); err != nil {
				return &Error{Kind: KindExtractFailed, Err: fmt.Errorf("symlink %s: %w", h.Name, err)}
			}
			links = append(links, name)
		case tar.TypeLink:
			src := sanitizeArchivePath(h.Linkname)
			if src == "" {
				return &Error{Kind: KindExtractFailed, Err: fmt.Errorf("hard link %s -> %s escapes the archive", h.Name, h.Linkname)}
			}
			if err := mkdirParent(root, name); err != nil {
				return &Error{Kind: KindExtractFailed, Err: fmt.Errorf("prepare link %s: %w", h.Name, err)}
			}
			if err := root.Link(src, name); err != nil {
				return &Error{Kind: KindExtractFailed, Err: fmt.Errorf("link %s: %w", h.Name, err)}
			}
		default:
			// Ignore other entry types.
		}
	}

	// Later entries can change what an earlier link resolves to.
	for _, name := range links {
		if _, err := root.Stat(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &Error{Kind: KindExtractFailed, Err: fmt.Errorf("symlink %s escapes the archive: %w", name, err)}
		}
	}
	return nil
}

func mkdirParent(root *os.Root, name string) error {
	dir := filepath.Dir(name)
	if dir == "." {
		return nil
	}
	return mkdirAll(root, dir, 0o755)
}

// mkdirAll accepts an existing directory reached through a symlink inside root.
func mkdirAll(root *os.Root, name string, perm os.FileMode) error {
	if fi, err := root.Stat(name); err == nil && fi.IsDir() {
		return nil
	}
	return root.MkdirAll(name, perm)
}

// sanitizeArchivePath rejects absolute paths and traversal sequences in archive entries.
func sanitizeArchivePath(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	if name == "" || strings.HasPrefix(name, "/") {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return ""
		}
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." {
		return ""
	}
	return clean
}

// linkStaysInside reports whether a symlink with content linkname, created
// in the already resolved directory parent, points to a location under root.
func linkStaysInside(root, parent, linkname string) bool {
	if filepath.IsAbs(linkname) || strings.HasPrefix(linkname, "/") {
		return false
	}
	resolved := filepath.Join(parent, filepath.FromSlash(linkname))
	rel, err := filepath.Rel(root, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// writeFileFromReader writes a file inside root by copying from r and setting mode.
func writeFileFromReader(root *os.Root, name string, r io.Reader, mode os.FileMode) error {
	out, err := root.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
