// Package source produces NV21 frames for the pipeline: a synthetic test
// pattern, or a camera / video file read through OpenCV.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/teslashibe/go-edgeview/pkg/frame"
)

// ErrExhausted is returned by Next when a finite source has no more frames.
var ErrExhausted = errors.New("source: exhausted")

// Source yields frames. Next blocks until a frame is ready or ctx ends.
type Source interface {
	Next(ctx context.Context) (frame.Frame, error)
	Close() error
}

// Open builds the source named by cfg.Kind.
func Open(cfg Config) (Source, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("source: invalid config: %v", errs)
	}
	switch cfg.Kind {
	case KindSynthetic:
		return NewSynthetic(cfg), nil
	case KindCapture:
		return OpenCapture(cfg)
	default:
		return nil, fmt.Errorf("source: unknown kind %q", cfg.Kind)
	}
}

// ParseSource turns a command-line source string into a kind and device.
// Anything but "synthetic" is handed to OpenCV: a camera index such as
// "0", a file path or a URL.
func ParseSource(s string) (kind, device string) {
	if s == "" || s == KindSynthetic {
		return KindSynthetic, ""
	}
	return KindCapture, s
}
