package source

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-edgeview/pkg/frame"
)

// Capture reads frames from a camera or video through OpenCV and converts
// them to NV21.
type Capture struct {
	cfg    Config
	cap    *gocv.VideoCapture
	isFile bool
	ticker *time.Ticker
	pool   *frame.Pool

	// Reused between frames.
	bgr    gocv.Mat
	scaled gocv.Mat
	i420   gocv.Mat

	seq uint64
}

// OpenCapture opens cfg.Device: an integer is a camera index, anything
// else a file path or stream URL.
func OpenCapture(cfg Config) (*Capture, error) {
	var (
		vc     *gocv.VideoCapture
		err    error
		isFile bool
	)
	if id, convErr := strconv.Atoi(cfg.Device); convErr == nil {
		vc, err = gocv.OpenVideoCapture(id)
	} else {
		vc, err = gocv.OpenVideoCapture(cfg.Device)
		isFile = true
	}
	if err != nil {
		return nil, fmt.Errorf("source: open %q: %w", cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("source: %q did not open", cfg.Device)
	}

	if !isFile {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}

	return &Capture{
		cfg:    cfg,
		cap:    vc,
		isFile: isFile,
		ticker: time.NewTicker(time.Second / time.Duration(cfg.Framerate)),
		pool:   frame.NewPool(cfg.Width, cfg.Height),
		bgr:    gocv.NewMat(),
		scaled: gocv.NewMat(),
		i420:   gocv.NewMat(),
	}, nil
}

// Next reads one frame, scales it to the configured size and repacks it
// as NV21.
func (c *Capture) Next(ctx context.Context) (frame.Frame, error) {
	select {
	case <-ctx.Done():
		return frame.Frame{}, ctx.Err()
	case <-c.ticker.C:
	}

	if err := c.read(); err != nil {
		return frame.Frame{}, err
	}

	src := c.bgr
	if c.bgr.Cols() != c.cfg.Width || c.bgr.Rows() != c.cfg.Height {
		if err := gocv.Resize(c.bgr, &c.scaled, image.Pt(c.cfg.Width, c.cfg.Height), 0, 0, gocv.InterpolationLinear); err != nil {
			return frame.Frame{}, fmt.Errorf("source: resize: %w", err)
		}
		src = c.scaled
	}

	if err := gocv.CvtColor(src, &c.i420, gocv.ColorBGRToYUVI420); err != nil {
		return frame.Frame{}, fmt.Errorf("source: to i420: %w", err)
	}

	i420, err := c.i420.DataPtrUint8()
	if err != nil {
		return frame.Frame{}, fmt.Errorf("source: i420 data: %w", err)
	}
	f := c.pool.NewFrame()
	if err := frame.I420ToNV21Into(f.Data, i420, c.cfg.Width, c.cfg.Height); err != nil {
		f.Recycle()
		return frame.Frame{}, err
	}
	c.seq++
	f.Seq = c.seq
	f.Timestamp = time.Now()
	return f, nil
}

func (c *Capture) read() error {
	if c.cap.Read(&c.bgr) && !c.bgr.Empty() {
		return nil
	}
	if !c.isFile || !c.cfg.Loop {
		return ErrExhausted
	}
	c.cap.Set(gocv.VideoCapturePosFrames, 0)
	if c.cap.Read(&c.bgr) && !c.bgr.Empty() {
		return nil
	}
	return ErrExhausted
}

// Close releases the capture device and buffers.
func (c *Capture) Close() error {
	c.ticker.Stop()
	c.bgr.Close()
	c.scaled.Close()
	c.i420.Close()
	return c.cap.Close()
}
