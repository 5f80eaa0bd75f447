// Package debug holds process-wide tracing switches for the frame path.
// Structured logs go through internal/log; these are for ad-hoc console
// tracing while tuning.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

var (
	enabled atomic.Bool
	frames  atomic.Bool

	mu     sync.Mutex
	output io.Writer = os.Stderr
)

// Configure sets the switches. Frame tracing implies debug output.
func Configure(debug, frameTrace bool) {
	enabled.Store(debug || frameTrace)
	frames.Store(frameTrace)
}

// Enabled reports whether debug output is on.
func Enabled() bool { return enabled.Load() }

// SetOutput redirects trace output and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := output
	output = w
	return prev
}

// Log prints only when debug output is on.
func Log(format string, args ...interface{}) {
	if enabled.Load() {
		write(format, args...)
	}
}

// FrameLog prints one line per frame, only when frame tracing is on.
func FrameLog(format string, args ...interface{}) {
	if frames.Load() {
		write(format, args...)
	}
}

func write(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(output, format, args...)
}
