package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamusis/frum/internal/install"
	"github.com/kamusis/frum/internal/manager"
	"github.com/kamusis/frum/internal/version"
)

var installCmd = &cobra.Command{
	Use:   "install [version]",
	Short: "Install a Ruby version",
	Long: `Download, build and install a Ruby version from the configured mirror.

Without an argument the version is read from the nearest .ruby-version file.
Only exact versions are installed. The first version installed becomes the
global default.

The archive is fetched from <mirror>/<major>.<minor>/ruby-<version>.tar.xz,
the layout of cache.ruby-lang.org. Set archive_template in config.yaml to
"ruby-{{.Version}}.tar.xz" for mirrors that keep every archive in one
directory. The source is built with "sh configure", "make" and
"make install DESTDIR=...", then moved into place.

  frum install 3.3.0
  frum install --list`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: cobra.NoFileCompletions,
	RunE:              runInstall,
}

var (
	flagInstallList bool
	flagOpenSSLDir  string
)

func init() {
	installCmd.Flags().BoolVarP(&flagInstallList, "list", "l", false, "List Ruby versions available to install")
	installCmd.Flags().StringVarP(&flagOpenSSLDir, "with-openssl-dir", "w", "", "Build against the OpenSSL installed in DIR")
	_ = installCmd.MarkFlagDirname("with-openssl-dir")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if flagInstallList {
		vs, err := mgr.ListRemote(ctx)
		if err != nil {
			return err
		}
		for _, v := range vs {
			fmt.Fprintln(stdout, v.Plain())
		}
		return nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	mgr.Pipeline().OnState = func(v version.Version, s install.State) {
		switch s {
		case install.StateDownloading:
			printInfo(v.String(), "downloading")
		case install.StateBuilding:
			printInfo(v.String(), "building, this can take several minutes")
		}
	}

	v, err := mgr.Install(ctx, firstArg(args), cwd, manager.InstallOptions{OpenSSLDir: flagOpenSSLDir})
	if err != nil {
		return err
	}
	printOK(v.String(), fmt.Sprintf("installed in %s", mgr.Layout().InstallationPath(v)))
	return nil
}
