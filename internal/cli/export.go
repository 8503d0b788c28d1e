package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"
	"github.com/matzehuels/taskmap/pkg/layout/layered"
	"github.com/matzehuels/taskmap/pkg/store"
)

// Export formats.
const (
	formatSVG  = "svg"
	formatDOT  = "dot"
	formatJSON = "json"
)

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		output    string
		format    string
		direction string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the task map as SVG, DOT or JSON",
		Long: `Export the task map.

SVG is drawn by Graphviz from the DOT diagram (same as -f dot). JSON is the
snapshot document itself. The format defaults to the extension of -o, or SVG.
Without -o the result goes to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = formatFromPath(output)
			}
			return c.runExport(cmd.Context(), cmd, output, format, direction)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: svg, dot, json")
	cmd.Flags().StringVarP(&direction, "direction", "d", "", "rank direction: LR or TB (default from config)")
	return cmd
}

func (c *CLI) runExport(ctx context.Context, cmd *cobra.Command, output, format, direction string) error {
	var data []byte
	err := c.view(ctx, func(s *store.Store) error {
		var err error
		data, err = c.exportData(ctx, s, format, direction)
		return err
	})
	if err != nil {
		return err
	}

	if output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return taskerr.Wrap(taskerr.ErrCodeStorage, err, "create %s", dir)
		}
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return taskerr.Wrap(taskerr.ErrCodeStorage, err, "write %s", output)
	}

	printSuccess("Exported %s", strings.ToUpper(format))
	printFile(output)
	return nil
}

// exportData renders the store's snapshot in format.
func (c *CLI) exportData(ctx context.Context, s *store.Store, format, direction string) ([]byte, error) {
	switch format {
	case formatJSON:
		return s.SaveJSON()
	case formatSVG, formatDOT:
	default:
		return nil, taskerr.New(taskerr.ErrCodeInvalidInput, "unknown format %q (want svg, dot or json)", format)
	}

	opts, err := c.layeredOptions(direction)
	if err != nil {
		return nil, err
	}
	defer opts.Cache.Close()

	snap := s.Snapshot()
	if format == formatDOT {
		return []byte(layered.ToDOT(snap.Nodes, snap.Edges, opts)), nil
	}
	if len(snap.Nodes) == 0 {
		return nil, taskerr.New(taskerr.ErrCodeInvalidInput, "nothing to export: %q has no tasks", snap.BatchTitle)
	}
	return layered.RenderSVG(ctx, snap.Nodes, snap.Edges, opts)
}

// formatFromPath picks a format from a file extension, defaulting to SVG.
func formatFromPath(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case formatDOT, "gv":
		return formatDOT
	case formatJSON:
		return formatJSON
	default:
		return formatSVG
	}
}
