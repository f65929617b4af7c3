package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/nconklindev/sheetdiff/internal/command"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Handle --version flag
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("sheetdiff %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		return 0
	}

	app := command.InitApp(version)
	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, command.ErrMismatchesFound) {
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}
