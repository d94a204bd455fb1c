package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/projectdiscovery/gologger"

	"github.com/dualpath/dualping/internal/runner"
)

func main() {
	options := runner.ParseOptions()

	dualpingRunner, err := runner.NewRunner(options)
	if err != nil {
		gologger.Fatal().Msgf("Could not create runner: %s\n", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		gologger.Info().Msgf("CTRL+C pressed: exiting\n")
		cancel()
	}()

	if err := dualpingRunner.Run(ctx); err != nil {
		gologger.Fatal().Msgf("Could not run sweep: %s\n", err)
	}
	dualpingRunner.Close()
}
