package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/taskmap/pkg/bridge"
	taskerr "github.com/matzehuels/taskmap/pkg/errors"
	"github.com/matzehuels/taskmap/pkg/graph"
	"github.com/matzehuels/taskmap/pkg/storage"
	"github.com/matzehuels/taskmap/pkg/store"
)

// snapshotInfo summarizes one stored snapshot for listing.
type snapshotInfo struct {
	name    string
	title   string
	tasks   int
	pinned  int
	corrupt bool
}

// listCommand creates the "list" command.
func (c *CLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored snapshots",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := c.listSnapshots(cmd.Context())
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				printInfo("No snapshots yet")
				printNextStep("Create one", appName+" new \"My batch\"")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSnapshotTable(infos, c.name))
			return nil
		},
	}
}

func (c *CLI) listSnapshots(ctx context.Context) ([]snapshotInfo, error) {
	b, err := storage.Open(ctx, c.storageURL)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	names, err := b.List(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]snapshotInfo, 0, len(names))
	for _, name := range names {
		info := snapshotInfo{name: name}
		data, err := b.Read(ctx, name)
		if err != nil {
			return nil, err
		}
		snap, err := graph.UnmarshalSnapshot(data)
		if err != nil {
			c.Logger.Debug("unreadable snapshot", "name", name, "err", err)
			info.corrupt = true
		} else {
			info.title = snap.BatchTitle
			info.tasks = len(snap.Nodes)
			info.pinned = len(snap.PinnedNodeIDs)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// renderSnapshotTable draws the listing, marking the current snapshot.
func renderSnapshotTable(infos []snapshotInfo, current string) string {
	rows := make([][]string, len(infos))
	for i, info := range infos {
		marker := " "
		if info.name == current {
			marker = "›"
		}
		if info.corrupt {
			rows[i] = []string{marker, info.name, "(unreadable)", "—", "—"}
			continue
		}
		rows[i] = []string{marker, info.name, info.title, fmt.Sprint(info.tasks), fmt.Sprint(info.pinned)}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Name", "Title", "Tasks", "Pinned").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if row < 0 || row >= len(infos) {
				return base
			}
			switch {
			case infos[row].corrupt:
				return base.Foreground(colorRed)
			case infos[row].name == current:
				return base.Foreground(colorCyan).Bold(true)
			case col >= 3:
				return base.Foreground(colorGray)
			}
			return base
		})

	return t.Render()
}

// deleteCommand creates the "delete" command.
func (c *CLI) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "delete <name>...",
		Short:             "Delete stored snapshots",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: c.completeSnapshotNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := storage.Open(ctx, c.storageURL)
			if err != nil {
				return err
			}
			defer b.Close()

			for _, name := range args {
				if err := b.Delete(ctx, name); err != nil {
					return err
				}
				printSuccess("Deleted snapshot %s", StyleValue.Render(name))
			}
			return nil
		},
	}
}

// pushCommand creates the "push" command.
func (c *CLI) pushCommand() *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "push <storage-url>",
		Short: "Copy the current snapshot to another storage backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst := as
			if dst == "" {
				dst = c.name
			}
			return c.copySnapshot(cmd.Context(), c.storageURL, c.name, args[0], dst)
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "name at the destination (default: --name)")
	return cmd
}

// pullCommand creates the "pull" command.
func (c *CLI) pullCommand() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "pull <storage-url>",
		Short: "Copy a snapshot from another storage backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := from
			if src == "" {
				src = c.name
			}
			return c.copySnapshot(cmd.Context(), args[0], src, c.storageURL, c.name)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "name at the source (default: --name)")
	return cmd
}

// copySnapshot copies one snapshot between backends. The payload is
// checked before it is written so a corrupt source never spreads.
func (c *CLI) copySnapshot(ctx context.Context, srcURL, srcName, dstURL, dstName string) error {
	if err := taskerr.ValidateSnapshotName(dstName); err != nil {
		return err
	}

	src, err := storage.Open(ctx, srcURL)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := storage.Open(ctx, dstURL)
	if err != nil {
		return err
	}
	defer dst.Close()

	data, err := src.Read(ctx, srcName)
	if err != nil {
		return err
	}
	if _, err := graph.UnmarshalSnapshot(data); err != nil {
		return err
	}
	if err := dst.Write(ctx, dstName, data); err != nil {
		return err
	}

	printSuccess("Copied %s", StyleValue.Render(srcName))
	printDetail("%s %s %s/%s", describeURL(srcURL), iconArrow, describeURL(dstURL), dstName)
	return nil
}

func describeURL(url string) string {
	if url == "" {
		return "default"
	}
	return url
}

// importCommand creates the "import" command.
func (c *CLI) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Load a snapshot file into the current snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := c.openSession(ctx, true)
			if err != nil {
				return err
			}
			defer sess.close()

			picked := &bridge.Download{Picked: args[0]}
			if _, err := bridge.Load(ctx, picked, sess.store); err != nil {
				return err
			}
			if err := sess.save(ctx); err != nil {
				return err
			}

			snap := sess.store.Snapshot()
			printSuccess("Imported %s", StyleValue.Render(snap.BatchTitle))
			printStats(len(snap.Nodes), len(snap.Edges), "tree")
			return nil
		},
	}
}

// downloadCommand creates the "download" command.
func (c *CLI) downloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "download [dir]",
		Short: "Write the current snapshot as a JSON file named after its title",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			} else {
				d, err := downloadsDir()
				if err != nil {
					return err
				}
				dir = d
			}

			dl, err := bridge.NewDownload(dir, "")
			if err != nil {
				return err
			}

			var name string
			err = c.view(cmd.Context(), func(s *store.Store) error {
				var err error
				name, err = bridge.Save(cmd.Context(), dl, s)
				return err
			})
			if err != nil {
				return err
			}

			printSuccess("Downloaded")
			printFile(filepath.Join(dir, name+".json"))
			return nil
		},
	}
}
