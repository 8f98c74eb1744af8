package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mgpai22/dubline/internal/cli"
)

func main() {
	// cancelling lets the running job remove its scratch and staging files
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cli.Execute(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}
