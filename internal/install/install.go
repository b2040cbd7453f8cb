// Package install turns a version into a built installation directory:
// download the source archive, extract it into a private staging area, run
// the external build, then rename the result into place.
package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"text/template"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"

	"github.com/kamusis/frum/internal/layout"
	"github.com/kamusis/frum/internal/version"
)

// DefaultArchiveTemplate locates ruby-<version>.tar.xz on the official
// mirror, which groups archives by minor release.
const DefaultArchiveTemplate = "{{.Major}}.{{.Minor}}/ruby-{{.Version}}.tar.xz"

// Pipeline installs one version per Install call. It holds no state between
// calls.
type Pipeline struct {
	Layout  layout.Layout
	Mirror  *url.URL
	Archive *template.Template
	Client  *http.Client
	Builder Builder
	Logger  *log.Logger
	// VerifyChecksum checks archives against the mirror's index.txt when it
	// lists them.
	VerifyChecksum bool
	// OnState, when set, observes every state transition.
	OnState func(version.Version, State)
}

// NewPipeline returns a pipeline downloading from mirror with the archive path
// template tmpl (DefaultArchiveTemplate when empty).
func NewPipeline(l layout.Layout, mirror, tmpl string, b Builder, logger *log.Logger) (*Pipeline, error) {
	u, err := url.Parse(mirror)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid mirror url %q", mirror)
	}
	if tmpl == "" {
		tmpl = DefaultArchiveTemplate
	}
	t, err := template.New("archive").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("invalid archive template %q: %w", tmpl, err)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Pipeline{
		Layout:         l,
		Mirror:         u,
		Archive:        t,
		Client:         &http.Client{},
		Builder:        b,
		Logger:         logger,
		VerifyChecksum: true,
	}, nil
}

// Install runs the pipeline for v, which must be exact, and returns the
// installation directory. A failure never leaves anything at the final
// installation path; work after download lives under the staging directory,
// which is kept on failure and removed on success.
func (p *Pipeline) Install(ctx context.Context, v version.Version) (string, error) {
	if !v.IsExact() {
		return "", &version.ParseError{Input: v.String(), Err: errors.New("an exact version is required")}
	}
	p.enter(v, StateRequested)

	final := p.Layout.InstallationPath(v)
	if _, err := os.Lstat(final); err == nil {
		return "", p.fail(v, &Error{Kind: KindAlreadyInstalled, Version: v.String()})
	}

	staging := p.Layout.DownloadStagingDir()
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return "", p.fail(v, &Error{Kind: KindIo, Version: v.String(), Err: err})
	}

	lock := flock.New(filepath.Join(staging, v.String()+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return "", p.fail(v, &Error{Kind: KindIo, Version: v.String(), Err: fmt.Errorf("cannot acquire install lock: %w", err)})
	}
	if !locked {
		return "", p.fail(v, &Error{Kind: KindInProgress, Version: v.String(), Err: fmt.Errorf("lock: %s", lock.Path())})
	}
	defer func() { _ = lock.Unlock() }()

	p.enter(v, StateDownloading)
	var sum string
	if p.VerifyChecksum {
		sum, _ = p.expectedSHA256(ctx, v)
	}
	body, err := p.download(ctx, v)
	if err != nil {
		return "", p.fail(v, err)
	}
	defer body.Close()
	archive := newDigestReader(body)

	p.enter(v, StateExtracting)
	tmp, err := os.MkdirTemp(staging, v.String()+"-")
	if err != nil {
		return "", p.fail(v, &Error{Kind: KindIo, Version: v.String(), Err: err})
	}
	if err := extractTarXz(archive, tmp); err != nil {
		return "", p.fail(v, withStaging(err, v, tmp))
	}
	if sum != "" {
		if err := archive.verify(sum); err != nil {
			return "", p.fail(v, &Error{Kind: KindDownloadFailed, Version: v.String(), Staging: tmp, Err: err})
		}
		p.Logger.Debug("checksum verified", "version", v.Plain(), "sha256", sum)
	}
	src, err := singleTopLevelDir(tmp)
	if err != nil {
		return "", p.fail(v, withStaging(err, v, tmp))
	}

	p.enter(v, StateBuilding)
	image, err := os.MkdirTemp(tmp, ".image-")
	if err != nil {
		return "", p.fail(v, &Error{Kind: KindIo, Version: v.String(), Staging: tmp, Err: err})
	}
	p.Logger.Debug("building", "version", v.Plain(), "source", src, "prefix", final, "destdir", image)
	if err := p.Builder.Build(ctx, src, final, image); err != nil {
		p.discardStray(final)
		return "", p.fail(v, &Error{Kind: KindBuildFailed, Version: v.String(), Staging: tmp, Err: err})
	}
	if p.discardStray(final) {
		return "", p.fail(v, &Error{Kind: KindBuildFailed, Version: v.String(), Staging: tmp,
			Err: fmt.Errorf("build wrote into %s instead of its destination directory", final)})
	}
	built := StagedPrefix(image, final)
	if fi, err := os.Stat(built); err != nil || !fi.IsDir() {
		return "", p.fail(v, &Error{Kind: KindBuildFailed, Version: v.String(), Staging: tmp,
			Err: fmt.Errorf("build installed nothing under %s", built)})
	}

	p.enter(v, StatePromoting)
	if err := promote(built, final); err != nil {
		return "", p.fail(v, &Error{Kind: KindPromotionFailed, Version: v.String(), Staging: tmp, Err: err})
	}

	if err := removeStaging(tmp); err != nil {
		p.Logger.Warn("cannot remove staging directory", "path", tmp, "err", err)
	}
	p.enter(v, StateInstalled)
	return final, nil
}

// discardStray removes anything a builder created at the final path. Install
// checked that path was absent while holding the version lock, so whatever is
// there now came from the build.
func (p *Pipeline) discardStray(final string) bool {
	if _, err := os.Lstat(final); err != nil {
		return false
	}
	p.Logger.Warn("removing files the build wrote outside its destination", "path", final)
	if err := os.RemoveAll(final); err != nil {
		p.Logger.Warn("cannot remove stray installation", "path", final, "err", err)
	}
	return true
}

func (p *Pipeline) enter(v version.Version, s State) {
	p.Logger.Debug("install", "version", v.String(), "state", s)
	if p.OnState != nil {
		p.OnState(v, s)
	}
}

func (p *Pipeline) fail(v version.Version, err error) error {
	var ie *Error
	if errors.As(err, &ie) && ie.Staging != "" {
		p.Logger.Warn("staging directory kept for inspection", "path", ie.Staging)
	}
	p.enter(v, StateFailed)
	return err
}

func withStaging(err error, v version.Version, tmp string) error {
	var ie *Error
	if errors.As(err, &ie) {
		ie.Version = v.String()
		ie.Staging = tmp
		return ie
	}
	return &Error{Kind: KindExtractFailed, Version: v.String(), Staging: tmp, Err: err}
}

// singleTopLevelDir returns the only directory extracted into dir.
func singleTopLevelDir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", &Error{Kind: KindIo, Err: err}
	}
	switch {
	case len(entries) == 0:
		return "", &Error{Kind: KindArchiveEmpty}
	case len(entries) > 1:
		return "", &Error{Kind: KindArchiveLayoutUnexpected,
			Err: fmt.Errorf("expected a single top-level directory, found %d entries", len(entries))}
	case !entries[0].IsDir():
		return "", &Error{Kind: KindArchiveLayoutUnexpected,
			Err: fmt.Errorf("top-level entry %s is not a directory", entries[0].Name())}
	}
	return filepath.Join(dir, entries[0].Name()), nil
}
