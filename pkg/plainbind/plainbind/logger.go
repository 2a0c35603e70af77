package plainbind

import (
	"os"

	"github.com/sambeau/plainbind/pkg/plainbind/logger"
)

// Logger is an alias for logger.Logger for convenience
type Logger = logger.Logger

// BufferedLogger captures log output for later retrieval
type BufferedLogger = logger.BufferedLogger

// StderrLogger returns a logger that writes to stderr (the default)
func StderrLogger() Logger {
	return logger.WriterLogger(os.Stderr)
}

// StdoutLogger returns a logger that writes to stdout
func StdoutLogger() Logger {
	return logger.WriterLogger(os.Stdout)
}

// NewBufferedLogger creates a new buffered logger
func NewBufferedLogger() *BufferedLogger {
	return logger.NewBufferedLogger()
}

// NullLogger returns a logger that discards all output
func NullLogger() Logger {
	return logger.NullLogger()
}
