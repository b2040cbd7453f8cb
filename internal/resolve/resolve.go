// Package resolve decides which version a command acts on when the user did
// not name one: explicit argument first, then the nearest version file.
package resolve

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kamusis/frum/internal/version"
)

// DefaultFileName is the conventional version pin file.
const DefaultFileName = ".ruby-version"

// ErrCantInferVersion is returned when neither an argument nor a version file
// names a version.
var ErrCantInferVersion = errors.New("can't find version in dotfiles, please provide a version manually to the command")

// Source records where a resolved version came from.
type Source int

const (
	SourceExplicit Source = iota
	SourceVersionFile
)

func (s Source) String() string {
	if s == SourceVersionFile {
		return "version file"
	}
	return "argument"
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Version version.Version
	Source  Source
	// File is the version file consulted, when Source is SourceVersionFile.
	File string
}

// Resolver looks for FileName in a directory and its ancestors.
type Resolver struct {
	FileName string
}

// New returns a resolver for fileName, or DefaultFileName when empty.
func New(fileName string) *Resolver {
	if fileName == "" {
		fileName = DefaultFileName
	}
	return &Resolver{FileName: fileName}
}

// Resolve returns explicit when it is non-empty, without touching the
// filesystem. Otherwise it returns the content of the version file nearest to
// cwd. The search stops at the first directory that has one.
func (r *Resolver) Resolve(explicit, cwd string) (Resolution, error) {
	if s := strings.TrimSpace(explicit); s != "" {
		v, err := version.Parse(s)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Version: v, Source: SourceExplicit}, nil
	}

	file, err := r.Find(cwd)
	if err != nil {
		return Resolution{}, err
	}
	if file == "" {
		return Resolution{}, ErrCantInferVersion
	}
	v, err := ReadVersionFile(file)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Version: v, Source: SourceVersionFile, File: file}, nil
}

// Find returns the path of the nearest version file at or above dir, or ""
// when the filesystem root is reached without finding one.
func (r *Resolver) Find(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	for {
		candidate := filepath.Join(abs, r.FileName)
		info, err := os.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			return candidate, nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", nil
		}
		abs = parent
	}
}

// ReadVersionFile parses the first non-blank line of path.
func ReadVersionFile(path string) (version.Version, error) {
	f, err := os.Open(path)
	if err != nil {
		return version.Version{}, fmt.Errorf("cannot read version file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		v, err := version.Parse(line)
		if err != nil {
			return version.Version{}, fmt.Errorf("version file %s: %w", path, err)
		}
		return v, nil
	}
	if err := scanner.Err(); err != nil {
		return version.Version{}, fmt.Errorf("cannot read version file %s: %w", path, err)
	}
	return version.Version{}, fmt.Errorf("version file %s: %w", path, &version.ParseError{Input: "", Err: errors.New("file is empty")})
}
