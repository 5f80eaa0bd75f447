package source

import (
	"context"
	"time"

	"github.com/teslashibe/go-edgeview/pkg/frame"
)

// Luma levels of the synthetic pattern.
const (
	syntheticDark   = 40
	syntheticBright = 200
)

// Synthetic produces a gray frame with a vertical edge that sweeps left
// to right, one step per frame, paced at the configured framerate.
type Synthetic struct {
	width  int
	height int
	step   int
	ticker *time.Ticker
	pool   *frame.Pool
	seq    uint64
}

// NewSynthetic creates a synthetic source from cfg's size and framerate.
func NewSynthetic(cfg Config) *Synthetic {
	step := cfg.Width / 64
	if step < 1 {
		step = 1
	}
	return &Synthetic{
		width:  cfg.Width,
		height: cfg.Height,
		step:   step,
		ticker: time.NewTicker(time.Second / time.Duration(cfg.Framerate)),
		pool:   frame.NewPool(cfg.Width, cfg.Height),
	}
}

// EdgeAt returns the edge column of frame seq (1-based).
func (s *Synthetic) EdgeAt(seq uint64) int {
	return int((seq-1)*uint64(s.step)) % s.width
}

// Next waits for the next tick and renders a frame into pooled storage.
func (s *Synthetic) Next(ctx context.Context) (frame.Frame, error) {
	select {
	case <-ctx.Done():
		return frame.Frame{}, ctx.Err()
	case <-s.ticker.C:
	}

	s.seq++
	f := s.pool.NewFrame()
	frame.FillVerticalEdge(f.Data, s.width, s.height, s.EdgeAt(s.seq), syntheticDark, syntheticBright)
	f.Seq = s.seq
	f.Timestamp = time.Now()
	return f, nil
}

// Close stops the ticker.
func (s *Synthetic) Close() error {
	s.ticker.Stop()
	return nil
}
