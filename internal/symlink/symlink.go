// Package symlink repoints well-known links without a window in which the
// link is missing.
package symlink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"
)

// SwapError reports a failed link replacement. RemoveErr is only set when
// removing the stale entry also failed to make room for the new link.
type SwapError struct {
	Link      string
	Target    string
	CreateErr error
	RemoveErr error
}

func (e *SwapError) Error() string {
	if e.RemoveErr != nil {
		return fmt.Sprintf("cannot point %s at %s: %v (removing stale link: %v)", e.Link, e.Target, e.CreateErr, e.RemoveErr)
	}
	return fmt.Sprintf("cannot point %s at %s: %v", e.Link, e.Target, e.CreateErr)
}

func (e *SwapError) Unwrap() []error {
	return []error{e.CreateErr, e.RemoveErr}
}

// Switcher performs link swaps. The function fields exist so tests can inject
// failures; New wires them to the os package.
type Switcher struct {
	symlink func(oldname, newname string) error
	rename  func(oldpath, newpath string) error
	remove  func(name string) error
}

// New returns a Switcher backed by the real filesystem.
func New() *Switcher {
	return &Switcher{
		symlink: os.Symlink,
		rename:  os.Rename,
		remove:  os.Remove,
	}
}

var seq atomic.Uint64

// stagingName returns a hidden sibling of link that no other swap will use.
func stagingName(link, tag string) string {
	n := seq.Add(1)
	name := "." + filepath.Base(link) + "." + tag + "-" +
		strconv.Itoa(os.Getpid()) + "-" + strconv.FormatInt(time.Now().UnixNano(), 36) + "-" +
		strconv.FormatUint(n, 10)
	return filepath.Join(filepath.Dir(link), name)
}

// Activate makes link point at target. The new link is created at a staging
// path and renamed over link, so readers see either the old or the new
// target. If the rename is refused because of the existing entry (Windows
// directory links, empty directories), the old entry is moved aside first and
// restored if the new link still cannot be put in place. A real directory
// with contents is never replaced.
func (s *Switcher) Activate(target, link string) error {
	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		return &SwapError{Link: link, Target: target, CreateErr: err}
	}

	staged := stagingName(link, "new")
	if err := s.symlink(target, staged); err != nil {
		return &SwapError{Link: link, Target: target, CreateErr: err}
	}

	renameErr := s.rename(staged, link)
	if renameErr == nil {
		return nil
	}

	if nonEmptyDir(link) {
		_ = s.remove(staged)
		return &SwapError{Link: link, Target: target,
			CreateErr: fmt.Errorf("%s is a directory with contents: %w", link, renameErr)}
	}

	aside := stagingName(link, "old")
	if err := s.rename(link, aside); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_ = s.remove(staged)
			return &SwapError{Link: link, Target: target, CreateErr: renameErr}
		}
		// Cannot move the stale entry out of the way; fall back to deleting it.
		removeErr := s.remove(link)
		if err := s.rename(staged, link); err != nil {
			_ = s.remove(staged)
			return &SwapError{Link: link, Target: target, CreateErr: err, RemoveErr: removeErr}
		}
		return nil
	}

	if err := s.rename(staged, link); err != nil {
		_ = s.rename(aside, link)
		_ = s.remove(staged)
		return &SwapError{Link: link, Target: target, CreateErr: err}
	}
	_ = s.remove(aside)
	return nil
}

func nonEmptyDir(path string) bool {
	info, err := os.Lstat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	names, _ := f.Readdirnames(1)
	return len(names) > 0
}

// Remove deletes link. A link that does not exist is not an error.
func Remove(link string) error {
	info, err := os.Lstat(link)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return fmt.Errorf("%s is not a symlink", link)
	}
	if err := os.Remove(link); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Target returns the resolved absolute destination of link, or "" when link
// does not exist. Relative link contents are resolved against the link's
// directory.
func Target(link string) (string, error) {
	dest, err := os.Readlink(link)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(filepath.Dir(link), dest)
	}
	return filepath.Clean(dest), nil
}

// Exists reports whether link exists and its destination resolves.
func Exists(link string) bool {
	_, err := os.Stat(link)
	return err == nil
}
