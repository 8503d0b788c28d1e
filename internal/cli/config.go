package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/taskmap/pkg/config"
	taskerr "github.com/matzehuels/taskmap/pkg/errors"
)

// configCommand creates the config command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Encode(cmd.OutOrStdout(), c.cfg)
		},
	}

	cmd.AddCommand(c.configPathCommand())
	cmd.AddCommand(c.configInitCommand())

	return cmd
}

// configPathCommand creates the "config path" subcommand.
func (c *CLI) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.configFile()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// configInitCommand creates the "config init" subcommand.
func (c *CLI) configInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.configFile()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				printWarning("%s already exists", path)
				printDetail("Use --force to overwrite it")
				return nil
			}

			var buf bytes.Buffer
			if err := config.Encode(&buf, config.Default()); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return taskerr.Wrap(taskerr.ErrCodeInvalidConfig, err, "create config dir")
			}
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return taskerr.Wrap(taskerr.ErrCodeInvalidConfig, err, "write %s", path)
			}

			printSuccess("Wrote default config")
			printFile(path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

// configFile is --config, or the default location.
func (c *CLI) configFile() (string, error) {
	if c.configPath != "" {
		return c.configPath, nil
	}
	path, err := config.Path()
	if err != nil {
		return "", taskerr.Wrap(taskerr.ErrCodeInvalidConfig, err, "locate config file")
	}
	return path, nil
}
