package goroutine

import (
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"
)

const (
	// StackTraceBufferSize is the buffer size for stack trace collection
	StackTraceBufferSize = 4096
)

// Recover recovers from panics in goroutines and logs them.
// If logger is nil, falls back to stderr to ensure the panic is recorded.
func Recover(name string, logger *zap.SugaredLogger) {
	if r := recover(); r != nil {
		logPanic(name, r, logger)
	}
}

// RecoverWith recovers from a panic, logs it, and hands the recovered value
// to handle so the caller can convert it into a structured finding. Used at
// the per-rule and pipeline boundaries of the validation engine, where a
// fault must become a result code instead of escaping to the caller.
func RecoverWith(name string, logger *zap.SugaredLogger, handle func(v interface{})) {
	if r := recover(); r != nil {
		logPanic(name, r, logger)
		if handle != nil {
			handle(r)
		}
	}
}

func logPanic(name string, r interface{}, logger *zap.SugaredLogger) {
	buf := make([]byte, StackTraceBufferSize)
	n := runtime.Stack(buf, false)

	if logger != nil {
		logger.Errorw("Panic recovered",
			"boundary", name,
			"panic", r,
			"stack", string(buf[:n]))
	} else {
		// Fallback to stderr when logger is nil
		fmt.Fprintf(os.Stderr, "PANIC at %s (no logger): %v\n%s\n", name, r, string(buf[:n]))
	}
}
