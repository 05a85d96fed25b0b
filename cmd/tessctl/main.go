package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tessctlcmd "github.com/tesserabio/tessera-cli/pkg/cmd"
)

func main() {
	// Interrupts cancel the command context so in-flight work, including a
	// pending browser login, tears down cleanly instead of being killed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	root := tessctlcmd.NewRootCommand(tessctlcmd.DefaultConfig())
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, tessctlcmd.Render(err))
		return 1
	}
	return 0
}
