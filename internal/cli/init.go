package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize grove configuration and storage",
		Long:  "Write config.yaml if it is missing, then create the storage backend in the data directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.treeConfig()
			if err != nil {
				return err
			}

			written, err := writeConfigIfMissing(a.configDir, configFile{
				Backend:        cfg.Backend,
				Driver:         cfg.Driver,
				DataDir:        a.flags.dataDir,
				Representation: cfg.GetRepresentation(),
				LogLevel:       a.config.GetString(cfgKeyLogLevel),
				ListenAddr:     a.config.GetString(cfgKeyListenAddr),
			})
			if err != nil {
				return systemError{err}
			}

			if _, err := a.open(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if written {
				fmt.Fprintf(out, "Wrote %s/%s\n", a.configDir, configFileExt)
			}
			fmt.Fprintf(out, "Grove initialized (%s/%s) in %s\n", cfg.Backend, cfg.GetRepresentation(), displayDir(cfg.DataDir))
			return nil
		},
	}
}

func displayDir(dir string) string {
	if dir == "" {
		return "memory"
	}
	return dir
}
