package main

import (
	"fmt"
	"os"

	"clipsim/commands"
	"clipsim/logging"
	"clipsim/signalhandler"
)

func main() {
	// Set up proper signal handling
	signalhandler.SetupHandler()

	err := commands.Execute()
	logging.CloseLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
