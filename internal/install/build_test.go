package install

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamusis/frum/internal/version"
)

func TestConfigureMake_FailureCarriesOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	src := t.TempDir()
	script := "echo \"args: $*\"\necho 'checking for openssl... no' >&2\nexit 3\n"
	require.NoError(t, os.WriteFile(filepath.Join(src, "configure"), []byte(script), 0o755))

	b := ConfigureMake{Jobs: 2, OpenSSLDir: "/opt/openssl", ConfigureOpts: []string{"--enable-shared"}}
	err := b.Build(context.Background(), src, "/prefix/v2.6.4", t.TempDir())

	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.True(t, strings.HasPrefix(be.Step, "sh configure --disable-install-doc --prefix=/prefix/v2.6.4"))
	assert.Contains(t, be.Output, "--with-openssl-dir=/opt/openssl")
	assert.Contains(t, be.Output, "--enable-shared")
	assert.Contains(t, be.Output, "checking for openssl... no")
}

// autotoolsSource is a source tree whose configure writes a Makefile that
// builds ./ruby and installs it into $(DESTDIR)$(prefix)/bin.
func autotoolsSource(t *testing.T, v string) []byte {
	configure := "for a in \"$@\"; do\n" +
		"  case \"$a\" in --prefix=*) echo \"prefix = ${a#--prefix=}\" > Makefile ;; esac\n" +
		"done\n" +
		"cat Makefile.in >> Makefile\n"
	makefile := "all:\n" +
		"\tprintf '#!/bin/sh\\necho ruby\\n' > ruby\n" +
		"\tchmod +x ruby\n" +
		"install:\n" +
		"\tmkdir -p $(DESTDIR)$(prefix)/bin\n" +
		"\tcp ruby $(DESTDIR)$(prefix)/bin/ruby\n"
	return tarXz(t,
		entry{name: "ruby-" + v + "/", dir: true},
		entry{name: "ruby-" + v + "/configure", body: configure},
		entry{name: "ruby-" + v + "/Makefile.in", body: makefile},
	)
}

func requireBuildTools(t *testing.T) {
	t.Helper()
	for _, tool := range []string{"sh", "make"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available", tool)
		}
	}
}

func TestConfigureMake_InstallsUnderDestDir(t *testing.T) {
	requireBuildTools(t)
	dest := t.TempDir()
	src := t.TempDir()
	require.NoError(t, extractTarXz(bytes.NewReader(autotoolsSource(t, "2.6.4")), src))

	prefix := filepath.Join(t.TempDir(), "versions", "v2.6.4")
	b := ConfigureMake{Jobs: 1}
	require.NoError(t, b.Build(context.Background(), filepath.Join(src, "ruby-2.6.4"), prefix, dest))

	assert.FileExists(t, filepath.Join(StagedPrefix(dest, prefix), "bin", "ruby"))
	assert.NoDirExists(t, prefix, "make install must honour DESTDIR")
}

func TestInstall_ConfigureMakeProducesRunnableTree(t *testing.T) {
	requireBuildTools(t)
	srv := serve(t, map[string][]byte{"ruby-2.6.4.tar.xz": autotoolsSource(t, "2.6.4")})
	p, l := newPipeline(t, srv.URL, ConfigureMake{Jobs: 1})
	v := version.MustParse("2.6.4")

	dir, err := p.Install(context.Background(), v)
	require.NoError(t, err)

	assert.Equal(t, l.InstallationPath(v), dir)
	info, err := os.Stat(filepath.Join(dir, "bin", "ruby"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o100, "bin/ruby should be executable")
	assert.NoFileExists(t, filepath.Join(dir, "Makefile"))
	assert.Equal(t, []string{"v2.6.4"}, installations(t, l))
}

func TestStagedPrefix(t *testing.T) {
	prefix := filepath.Join(string(filepath.Separator)+"home", "u", ".frum", "versions", "v2.6.4")
	got := StagedPrefix(filepath.FromSlash("/tmp/image"), prefix)
	assert.Equal(t, filepath.Join(filepath.FromSlash("/tmp/image"), "home", "u", ".frum", "versions", "v2.6.4"), got)
}

func TestBuildError_Message(t *testing.T) {
	e := &BuildError{Step: "make -j 4", Err: os.ErrNotExist}
	assert.Equal(t, "make -j 4: file does not exist", e.Error())
	assert.ErrorIs(t, e, os.ErrNotExist)
}

func TestInstall_ConcurrentInstallRefused(t *testing.T) {
	srv := serve(t, map[string][]byte{"ruby-2.6.4.tar.xz": rubySource(t, "2.6.4")})
	p, l := newPipeline(t, srv.URL, fakeBuild)
	v := version.MustParse("2.6.4")

	require.NoError(t, os.MkdirAll(l.DownloadStagingDir(), 0o755))
	held := flock.New(filepath.Join(l.DownloadStagingDir(), v.String()+".lock"))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	t.Cleanup(func() { _ = held.Unlock() })

	_, err = p.Install(context.Background(), v)
	assert.Equal(t, KindInProgress, kindOf(t, err))
	assert.Empty(t, installations(t, l))

	require.NoError(t, held.Unlock())
	_, err = p.Install(context.Background(), v)
	require.NoError(t, err)
}
