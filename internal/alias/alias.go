// Package alias stores named pointers to installed versions as symlinks
// under <base>/aliases. There is no cache: every call reads the directory.
package alias

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kamusis/frum/internal/layout"
	"github.com/kamusis/frum/internal/symlink"
	"github.com/kamusis/frum/internal/version"
)

// Kind classifies alias store failures.
type Kind int

const (
	KindIo Kind = iota
	KindNotFound
	KindTargetNotInstalled
	KindInvalidName
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "alias not found"
	case KindTargetNotInstalled:
		return "alias target not installed"
	case KindInvalidName:
		return "invalid alias name"
	default:
		return "alias i/o"
	}
}

// Error is returned by every Store operation.
type Error struct {
	Kind Kind
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %v", e.Kind, e.Name, e.Err)
	}
	return fmt.Sprintf("%s %q", e.Kind, e.Name)
}

func (e *Error) Unwrap() error { return e.Err }

// Stored is one alias entry as found on disk.
type Stored struct {
	Name string
	// Target is the canonical version string the alias ends up at, e.g. v2.6.4.
	Target string
	// Path is the installation directory the alias resolves to.
	Path string
	// Dangling is set when the installation no longer exists.
	Dangling bool
}

// Store reads and writes alias links.
type Store struct {
	layout   layout.Layout
	switcher *symlink.Switcher
}

// NewStore returns a store over l's aliases directory.
func NewStore(l layout.Layout, sw *symlink.Switcher) *Store {
	if sw == nil {
		sw = symlink.New()
	}
	return &Store{layout: l, switcher: sw}
}

// List returns every non-hidden alias in directory order.
func (s *Store) List() ([]Stored, error) {
	dir := s.layout.AliasesDir()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Kind: KindIo, Name: dir, Err: err}
	}
	var out []Stored
	for _, e := range entries {
		if layout.IsHidden(e.Name()) || e.Type()&os.ModeSymlink == 0 {
			continue
		}
		st, err := s.read(e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Get returns the alias called name.
func (s *Store) Get(name version.Version) (Stored, error) {
	if err := validName(name); err != nil {
		return Stored{}, err
	}
	if _, err := os.Lstat(s.layout.AliasPath(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Stored{}, &Error{Kind: KindNotFound, Name: name.AliasName()}
		}
		return Stored{}, &Error{Kind: KindIo, Name: name.AliasName(), Err: err}
	}
	return s.read(name.AliasName())
}

// Set points alias name at the installation of target, replacing any
// existing alias of that name atomically.
func (s *Store) Set(name, target version.Version) error {
	if err := validName(name); err != nil {
		return err
	}
	if !target.IsExact() {
		return &Error{Kind: KindTargetNotInstalled, Name: name.AliasName(),
			Err: fmt.Errorf("target %s is not an exact version", target)}
	}
	inst := s.layout.InstallationPath(target)
	info, err := os.Stat(inst)
	if err != nil || !info.IsDir() {
		return &Error{Kind: KindTargetNotInstalled, Name: name.AliasName(),
			Err: fmt.Errorf("%s is not installed", target)}
	}

	dest := inst
	if rel, err := filepath.Rel(s.layout.AliasesDir(), inst); err == nil {
		dest = rel
	}
	if err := s.switcher.Activate(dest, s.layout.AliasPath(name)); err != nil {
		return &Error{Kind: KindIo, Name: name.AliasName(), Err: err}
	}
	return nil
}

// Remove deletes alias name.
func (s *Store) Remove(name version.Version) error {
	if err := validName(name); err != nil {
		return err
	}
	p := s.layout.AliasPath(name)
	if _, err := os.Lstat(p); errors.Is(err, os.ErrNotExist) {
		return &Error{Kind: KindNotFound, Name: name.AliasName()}
	}
	if err := symlink.Remove(p); err != nil {
		return &Error{Kind: KindIo, Name: name.AliasName(), Err: err}
	}
	return nil
}

// For returns the aliases that resolve to v.
func (s *Store) For(v version.Version) ([]Stored, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []Stored
	for _, a := range all {
		if a.Target == v.String() {
			out = append(out, a)
		}
	}
	return out, nil
}

// read resolves the alias link called name. Links may chain through other
// links (for example an alias pointing at the default link); the final
// directory name is the version.
func (s *Store) read(name string) (Stored, error) {
	p := filepath.Join(s.layout.AliasesDir(), name)
	dest, err := symlink.Target(p)
	if err != nil {
		return Stored{}, &Error{Kind: KindIo, Name: name, Err: err}
	}
	st := Stored{Name: name, Path: dest, Target: filepath.Base(dest)}
	final, err := filepath.EvalSymlinks(p)
	if err != nil {
		st.Dangling = true
		return st, nil
	}
	st.Path = final
	st.Target = filepath.Base(final)
	return st, nil
}

func validName(name version.Version) error {
	n := name.AliasName()
	if !name.IsAlias() || layout.IsHidden(n) || strings.ContainsAny(n, `/\`) {
		return &Error{Kind: KindInvalidName, Name: name.String()}
	}
	return nil
}
