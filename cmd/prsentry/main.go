package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roasbeef/prsentry/cmd/prsentry/commands"
	"github.com/roasbeef/prsentry/internal/session"
)

func main() {
	err := commands.Execute()
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "prsentry:", err)

	// Interrupted sessions exit with the conventional SIGINT status so
	// wrapping scripts can tell an operator stop from an agent failure.
	if errors.Is(err, session.ErrInterrupted) {
		os.Exit(130)
	}

	var exitErr *session.ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		os.Exit(exitErr.Code)
	}

	os.Exit(1)
}
