package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
)

// shellEnv is everything an init script exports.
type shellEnv struct {
	base     string
	link     string
	logLevel string
}

// shell renders init scripts for one shell family.
type shell interface {
	setEnv(key, value string) string
	prependPath(dir string) string
	useOnCd() string
}

var initShells = map[string]shell{
	"bash": posixShell{hook: bashHook},
	"zsh":  posixShell{hook: zshHook},
	"fish": fishShell{},
}

func lookupShell(name string) (shell, error) {
	sh, ok := initShells[name]
	if !ok {
		return nil, fmt.Errorf("unsupported shell %q (want bash, zsh or fish)", name)
	}
	return sh, nil
}

func initScript(sh shell, env shellEnv, useOnCd bool) string {
	var b strings.Builder
	b.WriteString(sh.setEnv("FRUM_DIR", env.base))
	b.WriteString(sh.setEnv("FRUM_MULTISHELL_PATH", env.link))
	b.WriteString(sh.setEnv("FRUM_LOGLEVEL", env.logLevel))
	b.WriteString(sh.prependPath(filepath.Join(env.link, "bin")))
	if useOnCd {
		b.WriteString(sh.useOnCd())
	}
	return b.String()
}

const hookCommand = "frum --log-level quiet local --quiet-missing"

const bashHook = `__frum_use_if_file_found() {
  ` + hookCommand + `
}

__frumcd() {
  \cd "$@" || return $?
  __frum_use_if_file_found
}

alias cd=__frumcd
__frum_use_if_file_found
`

const zshHook = `autoload -U add-zsh-hook
_frum_autoload_hook() {
  ` + hookCommand + `
}

add-zsh-hook chpwd _frum_autoload_hook \
  && _frum_autoload_hook
`

type posixShell struct{ hook string }

func (posixShell) setEnv(key, value string) string {
	return fmt.Sprintf("export %s=%s\n", key, posixQuote(value))
}

func (posixShell) prependPath(dir string) string {
	return fmt.Sprintf("export PATH=%s:\"$PATH\"\n", posixQuote(dir))
}

func (s posixShell) useOnCd() string { return s.hook }

type fishShell struct{}

func (fishShell) setEnv(key, value string) string {
	return fmt.Sprintf("set -gx %s %s;\n", key, fishQuote(value))
}

func (fishShell) prependPath(dir string) string {
	return fmt.Sprintf("set -gx PATH %s $PATH;\n", fishQuote(dir))
}

func (fishShell) useOnCd() string {
	return `function _frum_autoload_hook --on-variable PWD --description 'Change Ruby version on directory change'
  status --is-command-substitution; and return
  ` + hookCommand + `
end

_frum_autoload_hook
`
}

func posixQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func fishQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
