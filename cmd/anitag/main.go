package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmdCtx := newCommandContext()
	err := newRootCommand(cmdCtx).ExecuteContext(ctx)
	stop()
	if closeErr := cmdCtx.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close log file: %w", closeErr)
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
