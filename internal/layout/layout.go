// Package layout computes every on-disk location frum uses from a single
// base directory. All functions are pure; nothing here touches the filesystem.
package layout

import (
	"path/filepath"
	"strings"

	"github.com/kamusis/frum/internal/version"
)

const (
	versionsDirName  = "versions"
	aliasesDirName   = "aliases"
	downloadsDirName = ".downloads"
	currentLinkName  = "current"

	// DefaultAlias is the alias that doubles as the global default link.
	DefaultAlias = "default"
)

// Layout is the directory structure rooted at Base.
type Layout struct {
	Base string
}

// New returns the layout rooted at base.
func New(base string) Layout {
	return Layout{Base: filepath.Clean(base)}
}

// InstallationsDir is <base>/versions.
func (l Layout) InstallationsDir() string {
	return filepath.Join(l.Base, versionsDirName)
}

// InstallationPath is <base>/versions/v<semver>. Callers pass exact versions;
// an alias yields "" so it can never alias an installation directory.
func (l Layout) InstallationPath(v version.Version) string {
	if !v.IsExact() {
		return ""
	}
	return filepath.Join(l.InstallationsDir(), v.String())
}

// AliasesDir is <base>/aliases.
func (l Layout) AliasesDir() string {
	return filepath.Join(l.Base, aliasesDirName)
}

// AliasPath is <base>/aliases/<name>. Exact versions yield "".
func (l Layout) AliasPath(v version.Version) string {
	if !v.IsAlias() {
		return ""
	}
	return filepath.Join(l.AliasesDir(), v.AliasName())
}

// DownloadStagingDir is <base>/versions/.downloads. It is hidden so directory
// listings of installations skip it.
func (l Layout) DownloadStagingDir() string {
	return filepath.Join(l.InstallationsDir(), downloadsDirName)
}

// DefaultLink is the global-default link, stored as the "default" alias.
func (l Layout) DefaultLink() string {
	return l.AliasPath(version.Alias(DefaultAlias))
}

// CurrentLink is the fallback shell-active link used when no per-shell path
// is configured.
func (l Layout) CurrentLink() string {
	return filepath.Join(l.Base, currentLinkName)
}

// IsHidden reports whether a directory entry name is a dotfile. Hidden
// entries are never installations or aliases.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
