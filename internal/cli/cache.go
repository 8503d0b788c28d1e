package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/taskmap/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the layered layout cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cacheInfoCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// openFileCache opens the on-disk layout cache.
func openFileCache() (*cache.FileCache, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, fmt.Errorf("get cache dir: %w", err)
	}
	return cache.NewFileCache(dir)
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var expiredOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached layouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := openFileCache()
			if err != nil {
				return err
			}

			count, err := fc.Clear(expiredOnly)
			if err != nil {
				return err
			}
			if count == 0 {
				printInfo("Nothing to clear")
				return nil
			}

			printSuccess("Cleared %d cached %s", count, plural(count, "layout", "layouts"))
			printDetail("Directory: %s", fc.Dir())
			return nil
		},
	}

	cmd.Flags().BoolVar(&expiredOnly, "expired", false, "only remove expired entries")
	return cmd
}

// cacheInfoCommand creates the "cache info" subcommand.
func (c *CLI) cacheInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show how many layouts are cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := openFileCache()
			if err != nil {
				return err
			}
			st, err := fc.Stats()
			if err != nil {
				return err
			}

			printKeyValue("Directory", fc.Dir())
			printKeyValue("Entries", fmt.Sprint(st.Entries))
			printKeyValue("Expired", fmt.Sprint(st.Expired))
			printKeyValue("Size", humanize.Bytes(uint64(st.Bytes)))
			printKeyValue("TTL", c.cfg.Layered.CacheTTL.Duration.String())
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
