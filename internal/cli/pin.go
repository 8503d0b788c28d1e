package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"
	"github.com/matzehuels/taskmap/pkg/store"
)

// pinCommand creates the pin management command.
func (c *CLI) pinCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Manage the pinned task list",
	}

	cmd.AddCommand(c.pinAddCommand())
	cmd.AddCommand(c.pinRemoveCommand())
	cmd.AddCommand(c.pinClearCommand())
	cmd.AddCommand(c.pinMoveCommand())
	cmd.AddCommand(c.pinDoneCommand())
	cmd.AddCommand(c.pinListCommand())

	return cmd
}

// pinAddCommand creates the "pin add" subcommand.
func (c *CLI) pinAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <task>",
		Short: "Pin a task that has no children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editNode(cmd.Context(), args[0], "Pinned", func(s *store.Store, id string) bool {
				return s.PinNode(id)
			})
		},
	}
}

// pinRemoveCommand creates the "pin rm" subcommand.
func (c *CLI) pinRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <task>",
		Short: "Unpin a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editNode(cmd.Context(), args[0], "Unpinned", func(s *store.Store, id string) bool {
				return s.UnpinNode(id)
			})
		},
	}
}

// pinClearCommand creates the "pin clear" subcommand.
func (c *CLI) pinClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Unpin every task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cleared bool
			err := c.edit(cmd.Context(), func(s *store.Store) error {
				cleared = s.UnpinAll()
				return nil
			})
			if err != nil {
				return err
			}
			if !cleared {
				printInfo("Nothing pinned")
				return nil
			}
			printSuccess("Cleared pinned tasks")
			return nil
		},
	}
}

// pinMoveCommand creates the "pin mv" subcommand.
func (c *CLI) pinMoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <from> <to>",
		Short: "Reorder the pinned list by position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err1 := strconv.Atoi(args[0])
			to, err2 := strconv.Atoi(args[1])
			if err1 != nil || err2 != nil {
				return taskerr.New(taskerr.ErrCodeInvalidInput, "positions must be numbers")
			}
			return c.edit(cmd.Context(), func(s *store.Store) error {
				if !s.ReorderPinnedNodes(from, to) {
					return taskerr.New(taskerr.ErrCodeInvalidInput, "no pinned task at position %d", from)
				}
				printSuccess("Moved pinned task %d to %d", from, to)
				return nil
			})
		},
	}
}

// pinDoneCommand creates the "pin done" subcommand.
func (c *CLI) pinDoneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "done",
		Short: "Complete every pinned task, or reopen them all if all are done",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd.Context(), func(s *store.Store) error {
				if !s.ToggleAllPinnedCompleted() {
					printInfo("Nothing pinned")
					return nil
				}
				printSuccess("Toggled pinned tasks")
				return nil
			})
		},
	}
}

// pinListCommand creates the "pin ls" subcommand.
func (c *CLI) pinListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List pinned tasks in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.view(cmd.Context(), func(s *store.Store) error {
				snap := s.Snapshot()
				if len(snap.PinnedNodeIDs) == 0 {
					printInfo("Nothing pinned")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderPinned(snap))
				return nil
			})
		},
	}
}
