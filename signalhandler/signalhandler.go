package signalhandler

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"clipsim/logging"
)

// SetupHandler configures signal handling for safer interaction with C libraries.
// Inference runs inside OpenCV or ONNX Runtime and cannot be interrupted midway,
// so a signal closes the log file and exits.
func SetupHandler() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logging.LogWarning("received %s, exiting", sig)
		logging.CloseLogger()
		os.Exit(130)
	}()
}

// GetOptimalProcs returns the thread count handed to the inference backend
func GetOptimalProcs() int {
	numCPU := runtime.NumCPU()

	// For CGo-bound inference, leave headroom for the Go runtime
	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
