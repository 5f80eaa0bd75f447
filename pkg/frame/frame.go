// Package frame defines the NV21 camera frame model: sizing rules, the
// borrowed-buffer contract used by the processor, and helpers that pack
// other YUV 4:2:0 layouts into NV21.
package frame

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidDimensions is returned for non-positive or odd sizes.
	ErrInvalidDimensions = errors.New("frame: invalid dimensions")

	// ErrShortBuffer is returned when a buffer is smaller than NV21Size.
	ErrShortBuffer = errors.New("frame: buffer shorter than NV21 size")
)

// Frame is one NV21 image: a width*height luma plane followed by a
// half-height plane of interleaved V/U samples.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Seq       uint64
	Timestamp time.Time

	// Set for frames from Pool.NewFrame.
	pooled *Pooled
}

// NV21Size returns the number of bytes an NV21 frame of w x h occupies.
func NV21Size(w, h int) int {
	return w * h * 3 / 2
}

// Validate checks that w x h is a legal NV21 size and that n bytes hold it.
// Chroma is subsampled 2x2, so both sides must be even.
func Validate(w, h, n int) error {
	if w <= 0 || h <= 0 || w%2 != 0 || h%2 != 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}
	if need := NV21Size(w, h); n < need {
		return fmt.Errorf("%w: have %d, need %d for %dx%d", ErrShortBuffer, n, need, w, h)
	}
	return nil
}

// Validate checks the frame's own data against its dimensions.
func (f Frame) Validate() error {
	return Validate(f.Width, f.Height, len(f.Data))
}

// Y returns the luma plane.
func (f Frame) Y() []byte {
	return f.Data[:f.Width*f.Height]
}

// VU returns the interleaved chroma plane (V first).
func (f Frame) VU() []byte {
	return f.Data[f.Width*f.Height : NV21Size(f.Width, f.Height)]
}

// Buffer returns a borrowable view of the frame's bytes. For pooled
// frames releasing it returns the storage to the pool.
func (f Frame) Buffer() Buffer {
	if f.pooled != nil {
		return f.pooled
	}
	return Bytes(f.Data)
}

// Recycle gives pooled storage back when the frame is dropped without
// being processed. Safe to call on any frame, any number of times.
func (f Frame) Recycle() {
	if f.pooled != nil {
		f.pooled.Recycle()
	}
}
