// Package main provides the rv32sim command line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

// NewApp builds the command line application. Exit codes travel back to the
// caller as cli.ExitCoder errors instead of terminating the process.
func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = "rv32sim"
	app.Usage = "Cycle-level RV32I pipeline simulator"
	app.Description = "Runs RV32I programs on a 3-stage pipeline model with an optional AXI4-Lite data bus"
	app.Commands = []*cli.Command{
		RunCommand,
		BenchCommand,
		ConfigCommand,
	}
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for {
			<-c
			cancel()
			fmt.Println("\r\nExiting...")
		}
	}()

	err := NewApp().RunContext(ctx, os.Args)
	if err == nil {
		return
	}

	var exit cli.ExitCoder
	switch {
	case errors.Is(err, ctx.Err()):
		_, _ = fmt.Fprintln(os.Stderr, "command interrupted")
		os.Exit(130)
	case errors.As(err, &exit):
		if msg := exit.Error(); msg != "" {
			_, _ = fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(exit.ExitCode())
	default:
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
