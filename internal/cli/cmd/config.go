package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"termreel/internal/config"
	"termreel/internal/dirs"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "config",
		Short:         "Print the effective configuration as TOML",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := config.Load(viper.GetViper())
			if err != nil {
				return exitError(err)
			}
			out, err := config.MarshalTOML(s)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if used := config.UsedFile(); used != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", used)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "init",
		Short:         "Write the default configuration to the config dir",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := dirs.ConfigFile()
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if err := writeDefaultConfig(path); err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
}

// writeDefaultConfig refuses to overwrite an existing file.
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	v := viper.New()
	config.SetDefaults(v)
	s, err := config.Load(v)
	if err != nil {
		return err
	}
	out, err := config.MarshalTOML(s)
	if err != nil {
		return err
	}
	if err := dirs.Ensure(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
