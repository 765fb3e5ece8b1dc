package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"parrot/internal/cli/app"
	"parrot/internal/cli/scheme/colours"
	"parrot/internal/config"
	"parrot/internal/speech/player/speaker"
)

func main() {
	a := app.New()
	a.Speaker = speaker.New()

	// Cancel the run on Ctrl+C; fragment files are cleaned up on the way out
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		colours.Warning.Fprintln(os.Stderr, "\n⏹️  Stopping...")
		a.Cancel()
	}()

	rootCmd, err := a.Command()
	if err != nil {
		colours.Error.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		if errors.Is(err, config.ErrConfig) {
			rootCmd.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}
