package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/taskmap/internal/cli"
	taskerr "github.com/matzehuels/taskmap/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := cli.New(os.Stderr, cli.LogInfo).RootCommand()
	root.SilenceErrors = true

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) || taskerr.IsCancelled(err) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		msg := taskerr.UserMessage(err)
		if taskerr.Is(err, taskerr.ErrCodeStorage) {
			msg = taskerr.Detail(err)
		}
		fmt.Fprintln(os.Stderr, "Error:", msg)
		os.Exit(1)
	}
}
