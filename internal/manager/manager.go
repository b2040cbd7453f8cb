// Package manager implements the user operations (install, uninstall, local,
// global, aliases) on top of the layout, alias store, resolver, symlink
// switcher and install pipeline.
package manager

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	"github.com/kamusis/frum/internal/alias"
	"github.com/kamusis/frum/internal/config"
	"github.com/kamusis/frum/internal/install"
	"github.com/kamusis/frum/internal/layout"
	"github.com/kamusis/frum/internal/logging"
	"github.com/kamusis/frum/internal/resolve"
	"github.com/kamusis/frum/internal/symlink"
	"github.com/kamusis/frum/internal/version"
)

// Options customizes New. The zero value builds with ConfigureMake.
type Options struct {
	Builder install.Builder
	Client  *http.Client
	Logger  *log.Logger
}

// InstallOptions apply to a single Install call.
type InstallOptions struct {
	OpenSSLDir string
}

// Manager owns no state beyond its configuration; every call reads the
// filesystem.
type Manager struct {
	cfg      *config.Config
	layout   layout.Layout
	aliases  *alias.Store
	resolver *resolve.Resolver
	switcher *symlink.Switcher
	pipeline *install.Pipeline
	logger   *log.Logger
}

// New wires a Manager for cfg.
func New(cfg *config.Config, opts Options) (*Manager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	builder := opts.Builder
	if builder == nil {
		builder = install.ConfigureMake{Jobs: cfg.BuildJobs, ConfigureOpts: cfg.ConfigureOpts, Logger: logger}
	}
	l := cfg.Layout()
	p, err := install.NewPipeline(l, cfg.Mirror, cfg.ArchiveTemplate, builder, logger)
	if err != nil {
		return nil, err
	}
	if opts.Client != nil {
		p.Client = opts.Client
	}
	sw := symlink.New()
	return &Manager{
		cfg:      cfg,
		layout:   l,
		aliases:  alias.NewStore(l, sw),
		resolver: resolve.New(cfg.VersionFile),
		switcher: sw,
		pipeline: p,
		logger:   logger,
	}, nil
}

// Layout returns the directory layout in use.
func (m *Manager) Layout() layout.Layout { return m.layout }

// ShellLink returns the shell-active link path.
func (m *Manager) ShellLink() string { return m.cfg.ShellLink() }

// Pipeline exposes the install pipeline, mainly so callers can observe state.
func (m *Manager) Pipeline() *install.Pipeline { return m.pipeline }

// Install resolves explicit (or the version file nearest cwd), installs it
// and returns the installed version. The first installed version becomes the
// global default.
func (m *Manager) Install(ctx context.Context, explicit, cwd string, opts InstallOptions) (version.Version, error) {
	res, err := m.resolver.Resolve(explicit, cwd)
	if err != nil {
		return version.Version{}, wrap(explicit, err)
	}
	v := res.Version
	if !v.IsExact() {
		return version.Version{}, &Error{Kind: KindParse, Version: v.String(),
			Err: fmt.Errorf("%s is an alias; install needs an exact version such as 2.6.4", v)}
	}
	if res.Source == resolve.SourceVersionFile {
		m.logger.Info("using version file", "file", res.File, "version", v.String())
	}

	p := m.pipeline
	if cm, ok := p.Builder.(install.ConfigureMake); ok && opts.OpenSSLDir != "" {
		cp := *p
		cm.OpenSSLDir = opts.OpenSSLDir
		cp.Builder = cm
		p = &cp
	}
	if _, err := p.Install(ctx, v); err != nil {
		return version.Version{}, wrap(v.String(), err)
	}

	if _, err := os.Lstat(m.layout.DefaultLink()); errors.Is(err, os.ErrNotExist) {
		if err := m.aliases.Set(version.Alias(layout.DefaultAlias), v); err != nil {
			return v, wrap(v.String(), err)
		}
		m.logger.Info("set as global default", "version", v.String())
	}
	return v, nil
}

// ListRemote returns the versions the mirror offers.
func (m *Manager) ListRemote(ctx context.Context) ([]version.Version, error) {
	vs, err := m.pipeline.ListRemote(ctx)
	return vs, wrap("", err)
}

// Uninstall removes the installation of text, which must be exact, along with
// every alias pointing at it. The global default is refused unless force.
func (m *Manager) Uninstall(text string, force bool) error {
	v, err := version.ParseExact(text)
	if err != nil {
		return wrap(text, err)
	}
	dir := m.layout.InstallationPath(v)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return &Error{Kind: KindVersionNotFound, Version: v.String(),
			Err: fmt.Errorf("%s is not installed", v)}
	}

	if def, ok, _ := m.Default(); ok && def.Equal(v) && !force {
		return &Error{Kind: KindVersionInUse, Version: v.String(),
			Err: fmt.Errorf("%s is the global default; choose another with 'frum global' or pass --force", v)}
	}

	// The shell link may reach v through an alias, so check it first.
	cur, curOK, _ := m.Current()

	pointing, err := m.aliases.For(v)
	if err != nil {
		return wrap(v.String(), err)
	}
	for _, a := range pointing {
		if err := m.aliases.Remove(version.Alias(a.Name)); err != nil {
			return wrap(v.String(), err)
		}
		m.logger.Info("removed alias", "alias", a.Name, "version", v.String())
	}
	if curOK && cur.Equal(v) {
		if err := symlink.Remove(m.ShellLink()); err != nil {
			return wrap(v.String(), err)
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		return &Error{Kind: KindIo, Version: v.String(), Err: err}
	}
	return nil
}

// Installed returns the installed exact versions in ascending order.
func (m *Manager) Installed() ([]version.Version, error) {
	entries, err := os.ReadDir(m.layout.InstallationsDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Kind: KindIo, Err: err}
	}
	var out []version.Version
	for _, e := range entries {
		if layout.IsHidden(e.Name()) || !e.IsDir() {
			continue
		}
		v, err := version.ParseExact(e.Name())
		if err != nil {
			m.logger.Debug("ignoring foreign entry", "path", filepath.Join(m.layout.InstallationsDir(), e.Name()))
			continue
		}
		out = append(out, v)
	}
	version.Sort(out)
	return out, nil
}

// Local points the shell-active link at explicit, or at the version named by
// the version file nearest cwd. When neither names a version the link is
// pointed back at the global default and KindCantInferVersion is returned.
func (m *Manager) Local(explicit, cwd string) (version.Version, error) {
	res, err := m.resolver.Resolve(explicit, cwd)
	if errors.Is(err, resolve.ErrCantInferVersion) {
		if swapErr := m.switcher.Activate(m.layout.DefaultLink(), m.ShellLink()); swapErr != nil {
			return version.Version{}, &Error{Kind: KindSymlinkSwapFailed, Err: errors.Join(err, swapErr)}
		}
		return version.Version{}, &Error{Kind: KindCantInferVersion, Err: err}
	}
	var v version.Version
	if err != nil {
		if v, err = m.matchParseError(err); err != nil {
			return version.Version{}, err
		}
	} else if v, err = m.installed(res.Version); err != nil {
		return version.Version{}, err
	}
	if err := m.switcher.Activate(m.layout.InstallationPath(v), m.ShellLink()); err != nil {
		return version.Version{}, wrap(v.String(), err)
	}
	m.logger.Debug("using version", "version", v.String(), "link", m.ShellLink())
	return v, nil
}

// Global makes text the global default and points the shell-active link at
// it.
func (m *Manager) Global(text string) (version.Version, error) {
	v, err := m.Lookup(text)
	if err != nil {
		return version.Version{}, err
	}
	if err := m.aliases.Set(version.Alias(layout.DefaultAlias), v); err != nil {
		return version.Version{}, wrap(v.String(), err)
	}
	if err := m.switcher.Activate(m.layout.DefaultLink(), m.ShellLink()); err != nil {
		return version.Version{}, wrap(v.String(), err)
	}
	return v, nil
}

// LinkShell points a new shell-active link at the global default. Without a
// default there is nothing to link and no error.
func (m *Manager) LinkShell(link string) error {
	if _, err := os.Lstat(m.layout.DefaultLink()); err != nil {
		return nil
	}
	return wrap("", m.switcher.Activate(m.layout.DefaultLink(), link))
}

// SetAlias points alias name at the installed version text. A version that
// is not installed is KindAliasTargetNotInstalled.
func (m *Manager) SetAlias(name, text string) (version.Version, error) {
	n := version.Alias(name)
	if n.IsZero() {
		return version.Version{}, &Error{Kind: KindParse, Err: errors.New("alias name is empty")}
	}
	if v, err := version.Parse(name); err == nil && v.IsExact() {
		return version.Version{}, &Error{Kind: KindParse, Version: name,
			Err: fmt.Errorf("alias name %q looks like a version", name)}
	}
	v, err := m.Lookup(text)
	if KindOf(err) == KindVersionNotFound {
		return version.Version{}, &Error{Kind: KindAliasTargetNotInstalled, Version: text,
			Err: fmt.Errorf("cannot alias %s: %w", name, err)}
	}
	if err != nil {
		return version.Version{}, err
	}
	if err := m.aliases.Set(n, v); err != nil {
		return version.Version{}, wrap(v.String(), err)
	}
	return v, nil
}

// RemoveAlias deletes alias name.
func (m *Manager) RemoveAlias(name string) error {
	return wrap(name, m.aliases.Remove(version.Alias(name)))
}

// Aliases lists every alias.
func (m *Manager) Aliases() ([]alias.Stored, error) {
	all, err := m.aliases.List()
	return all, wrap("", err)
}

// AliasesFor lists the aliases resolving to v.
func (m *Manager) AliasesFor(v version.Version) ([]alias.Stored, error) {
	all, err := m.aliases.For(v)
	return all, wrap(v.String(), err)
}

// Current returns the version the shell-active link resolves to.
func (m *Manager) Current() (version.Version, bool, error) {
	return m.versionBehind(m.ShellLink())
}

// Default returns the global default version.
func (m *Manager) Default() (version.Version, bool, error) {
	return m.versionBehind(m.layout.DefaultLink())
}

func (m *Manager) versionBehind(link string) (version.Version, bool, error) {
	if _, err := os.Lstat(link); errors.Is(err, os.ErrNotExist) {
		return version.Version{}, false, nil
	}
	final, err := filepath.EvalSymlinks(link)
	if err != nil {
		return version.Version{}, false, nil
	}
	v, err := version.ParseExact(filepath.Base(final))
	if err != nil {
		return version.Version{}, false, nil
	}
	return v, true, nil
}

// Lookup turns user input into an installed exact version. Aliases are
// followed; partial versions such as 2.6 or v2 pick the highest installed
// match.
func (m *Manager) Lookup(text string) (version.Version, error) {
	v, err := version.Parse(text)
	if err != nil {
		return m.matchParseError(err)
	}
	return m.installed(v)
}

// installed checks that v (or the alias v) refers to an installation and
// returns the exact version.
func (m *Manager) installed(v version.Version) (version.Version, error) {
	if v.IsAlias() {
		st, err := m.aliases.Get(v)
		if err != nil {
			return version.Version{}, wrap(v.String(), err)
		}
		if st.Dangling {
			return version.Version{}, &Error{Kind: KindAliasTargetNotInstalled, Version: v.String(),
				Err: fmt.Errorf("alias %s points at %s, which is not installed", v, st.Target)}
		}
		exact, err := version.ParseExact(st.Target)
		if err != nil {
			return version.Version{}, wrap(v.String(), err)
		}
		return exact, nil
	}
	info, err := os.Stat(m.layout.InstallationPath(v))
	if err != nil || !info.IsDir() {
		return version.Version{}, &Error{Kind: KindVersionNotFound, Version: v.String(),
			Err: fmt.Errorf("requested version %s is not currently installed", v)}
	}
	return v, nil
}

// matchParseError retries a failed strict parse as a partial version.
func (m *Manager) matchParseError(err error) (version.Version, error) {
	var pe *version.ParseError
	if !errors.As(err, &pe) || strings.TrimSpace(pe.Input) == "" {
		return version.Version{}, wrap("", err)
	}
	c, cerr := partialConstraint(pe.Input)
	if cerr != nil {
		return version.Version{}, wrap(pe.Input, err)
	}
	all, lerr := m.Installed()
	if lerr != nil {
		return version.Version{}, lerr
	}
	for i := len(all) - 1; i >= 0; i-- {
		if c.Check(all[i].Semver()) {
			return all[i], nil
		}
	}
	return version.Version{}, &Error{Kind: KindVersionNotFound, Version: pe.Input,
		Err: fmt.Errorf("no installed version matches %s", strings.TrimSpace(pe.Input))}
}

// partialConstraint maps 2.6 to ~2.6 and 2 to ^2.
func partialConstraint(text string) (*semver.Constraints, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "v") || strings.HasPrefix(s, "V") {
		s = s[1:]
	}
	if s == "" || strings.ContainsAny(s, " ,|<>=~^*") || strings.Count(s, ".") > 1 {
		return nil, fmt.Errorf("%q is not a partial version", text)
	}
	op := "~"
	if !strings.Contains(s, ".") {
		op = "^"
	}
	return semver.NewConstraint(op + s)
}

// Leftovers lists staging directories kept by failed installs.
func (m *Manager) Leftovers() ([]string, error) {
	entries, err := os.ReadDir(m.layout.DownloadStagingDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(m.layout.DownloadStagingDir(), e.Name()))
		}
	}
	return out, nil
}
