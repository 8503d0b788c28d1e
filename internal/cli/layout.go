package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/taskmap/pkg/store"
)

// layoutCommand creates the layout command that repositions every node.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		useLayered bool
		direction  string
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Recompute node positions",
		Long: `Recompute node positions.

By default the tree layout runs: slots are re-read from the current vertical
order and every subtree is placed from scratch. With --layered the map is laid
out by Graphviz instead and the resulting coordinates are printed; results are
cached locally for faster reruns. Loading a snapshot always reapplies the tree
layout, so layered positions last for the current session only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if useLayered {
				return c.runLayeredLayout(cmd.Context(), direction)
			}
			return c.edit(cmd.Context(), func(s *store.Store) error {
				if !s.ApplyAutoLayout() {
					printInfo("Nothing to lay out")
					return nil
				}
				snap := s.Snapshot()
				printSuccess("Layout complete")
				printStats(len(snap.Nodes), len(snap.Edges), "tree")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&useLayered, "layered", false, "use the Graphviz layered layout")
	cmd.Flags().StringVarP(&direction, "direction", "d", "", "layered rank direction: LR or TB (default from config)")
	return cmd
}

// runLayeredLayout applies the Graphviz layout behind a spinner.
func (c *CLI) runLayeredLayout(ctx context.Context, direction string) error {
	opts, err := c.layeredOptions(direction)
	if err != nil {
		return err
	}
	defer opts.Cache.Close()

	return c.edit(ctx, func(s *store.Store) error {
		prog := newProgress(c.Logger)
		spinner := newSpinner(ctx, os.Stderr, "Computing layered layout...")
		spinner.Start()

		if err := <-s.ApplyLayeredLayout(ctx, opts); err != nil {
			spinner.StopWithError("Layout failed")
			return err
		}
		spinner.Stop()
		prog.done("Layered layout computed")

		snap := s.Snapshot()
		printSuccess("Layout complete")
		printStats(len(snap.Nodes), len(snap.Edges), "layered "+string(opts.Direction))
		printNewline()
		fmt.Print(renderTree(snap, true))
		printNewline()
		printNextStep("Export", appName+" export -o map.svg")
		return nil
	})
}
