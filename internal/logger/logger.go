// Package logger provides verbose logging for the pagelens CLI.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr so users can follow the retrieval pipeline:
// capture, chunking, summarisation, retrieval, rerank and composition.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// logf writes one tagged line. Callers must not hold mu.
func logf(tag, format string, onlyVerbose bool, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if onlyVerbose && !verbose {
		return
	}
	fmt.Fprintf(output, tag+" "+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	logf("[DEBUG]", format, true, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	logf("[INFO]", format, true, args...)
}

// Warn prints a warning message. Warnings report degraded behaviour
// (failed summaries, unparseable rerank replies, lost watches) and are
// printed even when verbose mode is off.
func Warn(format string, args ...any) {
	logf("[WARN]", format, false, args...)
}
