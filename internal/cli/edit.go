package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/taskmap/pkg/bridge"
	taskerr "github.com/matzehuels/taskmap/pkg/errors"
	"github.com/matzehuels/taskmap/pkg/graph"
	"github.com/matzehuels/taskmap/pkg/storage"
	"github.com/matzehuels/taskmap/pkg/store"
)

// newCommand creates the "new" command that starts an empty snapshot.
func (c *CLI) newCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "new [title]",
		Short: "Start an empty task map",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := c.cfg.BatchTitle
			if len(args) == 1 {
				title = args[0]
			}
			return c.runNew(cmd.Context(), title, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing snapshot")
	return cmd
}

func (c *CLI) runNew(ctx context.Context, title string, force bool) error {
	backend, err := storage.Open(ctx, c.storageURL)
	if err != nil {
		return err
	}
	defer backend.Close()

	if !force {
		_, err := backend.Read(ctx, c.name)
		if err == nil {
			return taskerr.New(taskerr.ErrCodeInvalidInput, "snapshot %q already exists (use --force)", c.name)
		}
		if !taskerr.IsNotFound(err) {
			return err
		}
	}

	s := c.newStore(store.WithBatchTitle(title))
	defer s.Close()
	if _, err := bridge.Save(ctx, bridge.NewShell(bridge.Static{Name: c.name}, backend), s); err != nil {
		return err
	}

	printSuccess("Created %s", StyleValue.Render(s.BatchTitle()))
	printKeyValue("Snapshot", c.name)
	printKeyValue("Storage", describeURL(c.storageURL))
	printNewline()
	printNextStep("Add a task", appName+" add --label \"First task\"")
	return nil
}

// addCommand creates the "add" command.
func (c *CLI) addCommand() *cobra.Command {
	var (
		label string
		level int
	)

	cmd := &cobra.Command{
		Use:   "add [parent]",
		Short: "Add a task, or a child under parent",
		Long: `Add a task. Without a parent a root node is created at --level
(0 task, 1 subtask, 2 todo). With a parent the new node is one level below it;
todos cannot have children.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var parent string
			if len(args) == 1 {
				parent = args[0]
			}
			return c.runAdd(cmd.Context(), parent, level, label)
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "task label (default depends on level)")
	cmd.Flags().IntVar(&level, "level", graph.LevelRoot, "level for a node without parent")
	return cmd
}

func (c *CLI) runAdd(ctx context.Context, parentRef string, level int, label string) error {
	if label != "" {
		if err := taskerr.ValidateLabel(label); err != nil {
			return err
		}
	}

	var id string
	err := c.edit(ctx, func(s *store.Store) error {
		parent := ""
		if parentRef != "" {
			p, err := resolveNode(s.Snapshot(), parentRef)
			if err != nil {
				return err
			}
			parent = p
		}

		id = s.AddNode(parent, level)
		if id == "" {
			return taskerr.New(taskerr.ErrCodeInvalidTopology, "todos cannot have children")
		}
		if label != "" {
			s.UpdateNodeLabel(id, label)
		}
		return nil
	})
	if err != nil {
		return err
	}

	printSuccess("Added %s", StyleHighlight.Render(shortID(id)))
	return nil
}

// renameCommand creates the "rename" command.
func (c *CLI) renameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <task> <label>",
		Short: "Change a task's label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := taskerr.ValidateLabel(args[1]); err != nil {
				return err
			}
			return c.editNode(cmd.Context(), args[0], "Renamed", func(s *store.Store, id string) bool {
				return s.UpdateNodeLabel(id, args[1])
			})
		},
	}
}

// doneCommand creates the "done" command.
func (c *CLI) doneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "done <task>",
		Short: "Toggle a task's completed flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editNode(cmd.Context(), args[0], "Toggled", func(s *store.Store, id string) bool {
				return s.ToggleNodeCompleted(id)
			})
		},
	}
}

// titleCommand creates the "title" command.
func (c *CLI) titleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "title <title>",
		Short: "Set the batch title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var title string
			err := c.edit(cmd.Context(), func(s *store.Store) error {
				s.SetBatchTitle(args[0])
				title = s.BatchTitle()
				return nil
			})
			if err != nil {
				return err
			}
			printSuccess("Title set to %s", StyleValue.Render(title))
			return nil
		},
	}
}

// moveCommand creates the "move" command.
func (c *CLI) moveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move <task> <new-parent>",
		Short: "Reparent a task together with its subtree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd.Context(), func(s *store.Store) error {
				snap := s.Snapshot()
				id, err := resolveNode(snap, args[0])
				if err != nil {
					return err
				}
				target, err := resolveNode(snap, args[1])
				if err != nil {
					return err
				}
				if !s.MoveNode(id, target) {
					return taskerr.New(taskerr.ErrCodeInvalidTopology, "cannot move %s under %s", shortID(id), shortID(target))
				}
				printSuccess("Moved %s under %s", StyleHighlight.Render(shortID(id)), StyleHighlight.Render(shortID(target)))
				return nil
			})
		},
	}
}

// swapCommand creates the "swap" command.
func (c *CLI) swapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "swap <task> <slot>",
		Short: "Swap a task with the sibling holding slot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := strconv.Atoi(args[1])
			if err != nil {
				return taskerr.New(taskerr.ErrCodeInvalidInput, "slot must be a number, got %q", args[1])
			}
			return c.editNode(cmd.Context(), args[0], "Swapped", func(s *store.Store, id string) bool {
				if !s.SwapNodeSlots(id, slot) {
					return false
				}
				s.Reflow()
				return true
			})
		},
	}
}

// rmCommand creates the "rm" command.
func (c *CLI) rmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <task>...",
		Short: "Delete tasks together with their subtrees",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var removed int
			err := c.edit(cmd.Context(), func(s *store.Store) error {
				snap := s.Snapshot()
				ids := make([]string, 0, len(args))
				for _, ref := range args {
					id, err := resolveNode(snap, ref)
					if err != nil {
						return err
					}
					ids = append(ids, id)
				}
				removed = s.DeleteNodes(ids)
				return nil
			})
			if err != nil {
				return err
			}
			printSuccess("Deleted %d %s", removed, plural(removed, "node", "nodes"))
			return nil
		},
	}
}

// editNode resolves ref and applies fn, reporting a no-op as an error.
func (c *CLI) editNode(ctx context.Context, ref, verb string, fn func(*store.Store, string) bool) error {
	return c.edit(ctx, func(s *store.Store) error {
		id, err := resolveNode(s.Snapshot(), ref)
		if err != nil {
			return err
		}
		if !fn(s, id) {
			return taskerr.New(taskerr.ErrCodeInvalidInput, "%s: nothing changed", strings.ToLower(verb))
		}
		printSuccess("%s %s", verb, StyleHighlight.Render(shortID(id)))
		return nil
	})
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
