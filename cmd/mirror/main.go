package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"slack_line_mirror/internal/cli"
	"slack_line_mirror/internal/model"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", model.Classify(err), err)
		os.Exit(1)
	}
}
