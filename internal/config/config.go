package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kamusis/frum/internal/install"
	"github.com/kamusis/frum/internal/layout"
)

// Environment keys. Each is looked up in the process environment first and
// then in <base>/.env.
const (
	EnvDir            = "FRUM_DIR"
	EnvMirror         = "FRUM_RUBY_BUILD_MIRROR"
	EnvMultishellPath = "FRUM_MULTISHELL_PATH"
	EnvLogLevel       = "FRUM_LOGLEVEL"
)

const (
	DefaultMirror          = "https://cache.ruby-lang.org/pub/ruby/"
	DefaultArchiveTemplate = install.DefaultArchiveTemplate
	DefaultVersionFile     = ".ruby-version"
	DefaultLogLevel        = "info"
)

// Config is the in-memory representation of <base>/config.yaml merged with
// environment overrides.
type Config struct {
	// BaseDir is the root of every managed path. It is never read from the
	// YAML file.
	BaseDir string `yaml:"-"`
	// MultishellPath is the shell-active link; empty means <base>/current.
	MultishellPath string `yaml:"-"`

	Mirror          string   `yaml:"mirror,omitempty"`
	ArchiveTemplate string   `yaml:"archive_template,omitempty"`
	VersionFile     string   `yaml:"version_file,omitempty"`
	LogLevel        string   `yaml:"log_level,omitempty"`
	BuildJobs       int      `yaml:"build_jobs,omitempty"`
	ConfigureOpts   []string `yaml:"configure_opts,omitempty"`
}

// FrumDir returns the base directory: $FRUM_DIR if set, else ~/.frum.
func FrumDir() (string, error) {
	if v := os.Getenv(EnvDir); v != "" {
		p, err := ExpandPath(v)
		if err != nil {
			return "", err
		}
		return filepath.Abs(p)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".frum"), nil
}

// ConfigPath returns the absolute path to <base>/config.yaml.
func ConfigPath(base string) string {
	return filepath.Join(base, "config.yaml")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig(base string) *Config {
	return &Config{
		BaseDir:         base,
		Mirror:          DefaultMirror,
		ArchiveTemplate: DefaultArchiveTemplate,
		VersionFile:     DefaultVersionFile,
		LogLevel:        DefaultLogLevel,
		BuildJobs:       runtime.NumCPU(),
	}
}

// LoadDefault loads the configuration rooted at FrumDir.
func LoadDefault() (*Config, error) {
	base, err := FrumDir()
	if err != nil {
		return nil, err
	}
	return Load(base)
}

// Load reads <base>/config.yaml, if present, over the defaults and then
// applies environment overrides.
func Load(base string) (*Config, error) {
	cfg := DefaultConfig(base)

	path := ConfigPath(base)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	}
	cfg.BaseDir = base

	overrides := []struct {
		key string
		dst *string
	}{
		{EnvMirror, &cfg.Mirror},
		{EnvMultishellPath, &cfg.MultishellPath},
		{EnvLogLevel, &cfg.LogLevel},
	}
	for _, o := range overrides {
		v, err := GetConfigValue(base, o.key)
		if err != nil {
			return nil, err
		}
		if v != "" {
			*o.dst = v
		}
	}

	// Zero values in the file fall back to defaults.
	def := DefaultConfig(base)
	if cfg.Mirror == "" {
		cfg.Mirror = def.Mirror
	}
	if cfg.ArchiveTemplate == "" {
		cfg.ArchiveTemplate = def.ArchiveTemplate
	}
	if cfg.VersionFile == "" {
		cfg.VersionFile = def.VersionFile
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.BuildJobs <= 0 {
		cfg.BuildJobs = def.BuildJobs
	}
	if cfg.MultishellPath != "" {
		if cfg.MultishellPath, err = ExpandPath(cfg.MultishellPath); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Save marshals cfg and writes it to <base>/config.yaml.
func Save(cfg *Config) error {
	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", cfg.BaseDir, err)
	}
	path := ConfigPath(cfg.BaseDir)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}

// Layout returns the directory layout rooted at BaseDir.
func (c *Config) Layout() layout.Layout {
	return layout.New(c.BaseDir)
}

// ShellLink returns the path of the link the current shell's PATH goes
// through.
func (c *Config) ShellLink() string {
	if c.MultishellPath != "" {
		return c.MultishellPath
	}
	return c.Layout().CurrentLink()
}
