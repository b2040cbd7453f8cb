package install

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Builder turns an extracted source tree into a runnable installation
// configured for prefix. It must write the installed files under
// StagedPrefix(destDir, prefix), never under prefix itself, the way
// "make install DESTDIR=destDir" does. Its output is not interpreted; only
// the returned error matters.
type Builder interface {
	Build(ctx context.Context, sourceDir, prefix, destDir string) error
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, sourceDir, prefix, destDir string) error

func (f BuilderFunc) Build(ctx context.Context, sourceDir, prefix, destDir string) error {
	return f(ctx, sourceDir, prefix, destDir)
}

// StagedPrefix is where an installation for prefix lands below destDir.
func StagedPrefix(destDir, prefix string) string {
	return filepath.Join(destDir, strings.TrimPrefix(prefix, filepath.VolumeName(prefix)))
}

// BuildError carries the tail of a failed build step's output.
type BuildError struct {
	Step   string
	Output string
	Err    error
}

func (e *BuildError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %v\n%s", e.Step, e.Err, e.Output)
}

func (e *BuildError) Unwrap() error { return e.Err }

// ConfigureMake runs "sh configure", "make" and "make install" inside the
// source tree.
type ConfigureMake struct {
	Jobs          int
	OpenSSLDir    string
	ConfigureOpts []string
	Logger        *log.Logger
}

const outputTail = 4096

func (b ConfigureMake) Build(ctx context.Context, sourceDir, prefix, destDir string) error {
	configure := []string{"configure", "--disable-install-doc", "--prefix=" + prefix}
	if b.OpenSSLDir != "" {
		configure = append(configure, "--with-openssl-dir="+b.OpenSSLDir)
	}
	configure = append(configure, b.ConfigureOpts...)
	if err := b.run(ctx, sourceDir, "sh", configure...); err != nil {
		return err
	}

	jobs := b.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if err := b.run(ctx, sourceDir, "make", "-j", strconv.Itoa(jobs)); err != nil {
		return err
	}
	return b.run(ctx, sourceDir, "make", "install", "DESTDIR="+destDir)
}

func (b ConfigureMake) run(ctx context.Context, dir, name string, args ...string) error {
	logger := b.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	step := name + " " + strings.Join(args, " ")
	logger.Debug("running", "cmd", step, "dir", dir)

	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir
	out, err := c.CombinedOutput()
	if err != nil {
		tail := string(out)
		if len(tail) > outputTail {
			tail = tail[len(tail)-outputTail:]
		}
		return &BuildError{Step: step, Output: strings.TrimSpace(tail), Err: err}
	}
	return nil
}
