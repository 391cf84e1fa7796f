// Package main provides the ontogenic machine CLI: survey inspection,
// scoring, placement, and pipeline runs without a server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	omcmd "github.com/louisbranch/ontogenic.space/internal/cmd/om"
	"github.com/louisbranch/ontogenic.space/internal/platform/config"
)

func main() {
	cfg, err := omcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := omcmd.Run(ctx, cfg, os.Stdin, os.Stdout, os.Stderr); err != nil {
		config.Exitf("Error: %v", err)
	}
}
