// Package processor turns NV21 camera frames into an edge map resident in a
// GPU texture.
//
// The pipeline is fixed: NV21 -> RGBA -> gray -> 5x5 Gaussian blur ->
// Canny (30/100, aperture 3) -> RGBA, then a texture upload. All image
// math is delegated to OpenCV through gocv. The Processor owns its three
// working Mats and reuses them across calls; they are reallocated together
// only when the input size changes.
package processor

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/debug"
	"github.com/teslashibe/go-edgeview/pkg/frame"
	"github.com/teslashibe/go-edgeview/pkg/texture"
)

// Filter parameters.
const (
	BlurKernel     = 5
	BlurSigma      = 1.5
	CannyLow       = 30.0
	CannyHigh      = 100.0
	CannyAperture  = 3 // gocv.Canny always uses OpenCV's default aperture of 3
	DefaultQuality = 80
)

// Config configures a Processor.
type Config struct {
	// Device receives the processed RGBA image. Required.
	Device texture.Device

	// Logger defaults to the "processor" component logger.
	Logger *slog.Logger
}

// Result describes one successful call to Process.
type Result struct {
	Elapsed     time.Duration
	Width       int
	Height      int
	Texture     texture.Handle
	Reallocated bool
	Upload      texture.UploadMode
}

// ElapsedMillis is the elapsed wall time in whole milliseconds.
func (r Result) ElapsedMillis() int64 {
	return r.Elapsed.Milliseconds()
}

// Stats are cumulative counters.
type Stats struct {
	Frames          uint64        `json:"frames"`
	Reallocations   uint64        `json:"reallocations"`
	FullUploads     uint64        `json:"full_uploads"`
	SubUploads      uint64        `json:"sub_uploads"`
	AcquireFailures uint64        `json:"acquire_failures"`
	InputErrors     uint64        `json:"input_errors"`
	StageErrors     uint64        `json:"stage_errors"`
	Width           int           `json:"width"`
	Height          int           `json:"height"`
	LastElapsed     time.Duration `json:"last_elapsed_ns"`
}

// Processor runs the edge pipeline. It is safe for concurrent use; calls
// are serialized on an internal mutex because the working Mats and the
// texture binding are shared state.
type Processor struct {
	device texture.Device
	logger *slog.Logger

	mu     sync.Mutex
	closed bool

	// Working buffers, always width x height.
	rgba  gocv.Mat
	gray  gocv.Mat
	edges gocv.Mat

	width  int
	height int

	// Storage size last allocated per texture, so steady-state frames
	// take the sub-image path.
	uploaded map[texture.Handle]image.Point

	hasOutput bool
	stats     Stats
}

// New creates a Processor. Working buffers are allocated on the first frame.
func New(cfg Config) (*Processor, error) {
	if cfg.Device == nil {
		return nil, fmt.Errorf("processor: texture device is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Component("processor")
	}
	return &Processor{
		device:   cfg.Device,
		logger:   logger,
		rgba:     gocv.NewMat(),
		gray:     gocv.NewMat(),
		edges:    gocv.NewMat(),
		uploaded: make(map[texture.Handle]image.Point),
	}, nil
}

// Process runs one frame through the pipeline into tex.
//
// buf is borrowed only for the duration of the call and is always released
// with frame.ReleaseAbort once acquired. An acquisition failure returns
// ErrBufferAcquisition without touching OpenCV or the device.
func (p *Processor) Process(buf frame.Buffer, width, height int, tex texture.Handle) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	start := time.Now()

	if p.closed {
		return Result{}, ErrClosed
	}

	data, err := buf.Acquire()
	if err == nil && data == nil {
		err = errNilBuffer
	}
	if err != nil {
		p.stats.AcquireFailures++
		p.logger.Warn("failed to acquire frame buffer", "width", width, "height", height, "error", err)
		return Result{}, fmt.Errorf("%w: %v", ErrBufferAcquisition, err)
	}
	defer buf.Release(frame.ReleaseAbort)

	res, err := p.run(data, width, height, tex)
	if err != nil {
		switch KindOf(err) {
		case KindInput:
			p.stats.InputErrors++
		default:
			p.stats.StageErrors++
		}
		p.logger.Error("frame processing failed", "width", width, "height", height, "texture", tex, "error", err)
		return Result{}, err
	}

	res.Elapsed = time.Since(start)
	p.stats.Frames++
	p.stats.LastElapsed = res.Elapsed
	switch res.Upload {
	case texture.UploadFull:
		p.stats.FullUploads++
	case texture.UploadSub:
		p.stats.SubUploads++
	}

	p.logger.Debug("processed frame",
		"width", width,
		"height", height,
		"texture", tex,
		"upload", res.Upload.String(),
		"reallocated", res.Reallocated,
		"elapsed_ms", res.ElapsedMillis(),
	)
	debug.FrameLog("🖼️  %dx%d -> tex %d (%s) in %dms\n", width, height, tex, res.Upload, res.ElapsedMillis())
	return res, nil
}

func (p *Processor) run(data []byte, width, height int, tex texture.Handle) (Result, error) {
	if err := frame.Validate(width, height, len(data)); err != nil {
		return Result{}, err
	}

	// Wrap without copying: the Mat points at the borrowed bytes and must
	// not outlive this call.
	nv21, err := wrapNV21(data, width, height)
	if err != nil {
		return Result{}, stageErr(StageWrap, err)
	}
	defer nv21.Close()

	res := Result{Width: width, Height: height, Texture: tex}
	res.Reallocated = p.ensureBuffers(width, height)

	if err := nv21ToRGBA(nv21, &p.rgba); err != nil {
		return Result{}, err
	}
	if err := p.filter(); err != nil {
		return Result{}, err
	}
	p.hasOutput = true

	mode, err := p.upload(tex, width, height)
	if err != nil {
		return Result{}, err
	}
	res.Upload = mode
	return res, nil
}

// filter turns p.rgba into an RGBA rendering of its Canny edge map, in place.
func (p *Processor) filter() error {
	if err := gocv.CvtColor(p.rgba, &p.gray, gocv.ColorRGBAToGray); err != nil {
		return stageErr(StageToGray, err)
	}
	ksize := image.Pt(BlurKernel, BlurKernel)
	if err := gocv.GaussianBlur(p.gray, &p.gray, ksize, BlurSigma, BlurSigma, gocv.BorderDefault); err != nil {
		return stageErr(StageBlur, err)
	}
	if err := gocv.Canny(p.gray, &p.edges, CannyLow, CannyHigh); err != nil {
		return stageErr(StageCanny, err)
	}
	if err := gocv.CvtColor(p.edges, &p.rgba, gocv.ColorGrayToRGBA); err != nil {
		return stageErr(StageToDisplay, err)
	}
	return nil
}

// ensureBuffers reallocates all three working Mats when the size changed.
// Reports whether it did.
func (p *Processor) ensureBuffers(width, height int) bool {
	if p.width == width && p.height == height && !p.rgba.Empty() {
		return false
	}

	p.rgba.Close()
	p.gray.Close()
	p.edges.Close()
	p.rgba = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC4)
	p.gray = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC1)
	p.edges = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC1)
	p.width, p.height = width, height
	p.hasOutput = false

	p.stats.Reallocations++
	p.stats.Width, p.stats.Height = width, height
	p.logger.Info("allocated working buffers", "width", width, "height", height)
	return true
}

func (p *Processor) upload(tex texture.Handle, width, height int) (texture.UploadMode, error) {
	pix, err := p.rgba.DataPtrUint8()
	if err != nil {
		return texture.UploadNone, stageErr(StageUpload, err)
	}
	if len(pix) != texture.PixelLen(width, height) {
		return texture.UploadNone, stageErr(StageUpload,
			fmt.Errorf("%w: rgba buffer %d bytes, want %d", texture.ErrSizeMismatch, len(pix), texture.PixelLen(width, height)))
	}

	if err := p.device.BindTexture(tex); err != nil {
		return texture.UploadNone, stageErr(StageBind, err)
	}

	mode := texture.UploadSub
	if size, ok := p.uploaded[tex]; !ok || size != image.Pt(width, height) {
		mode = texture.UploadFull
	}

	if mode == texture.UploadFull {
		err = p.device.TexImage2D(width, height, pix)
	} else {
		err = p.device.TexSubImage2D(width, height, pix)
	}
	if err != nil {
		// Storage state is unknown now; force a full upload next time.
		delete(p.uploaded, tex)
		return texture.UploadNone, stageErr(StageUpload, err)
	}
	p.uploaded[tex] = image.Pt(width, height)

	if err := p.device.Finish(); err != nil {
		return texture.UploadNone, stageErr(StageFinish, err)
	}
	return mode, nil
}

// BufferSizes reports the dimensions of the three working buffers, in the
// order RGBA, gray, edges. All are zero before the first frame.
func (p *Processor) BufferSizes() [3]image.Point {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return [3]image.Point{}
	}
	return [3]image.Point{
		image.Pt(p.rgba.Cols(), p.rgba.Rows()),
		image.Pt(p.gray.Cols(), p.gray.Rows()),
		image.Pt(p.edges.Cols(), p.edges.Rows()),
	}
}

// Forget drops upload bookkeeping for a texture the caller deleted, so a
// recycled handle gets a full upload.
func (p *Processor) Forget(tex texture.Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.uploaded, tex)
}

// Stats returns a snapshot of the counters.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// EncodeJPEG encodes the last processed output.
func (p *Processor) EncodeJPEG(quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if !p.hasOutput {
		return nil, ErrNoOutput
	}

	bgr := gocv.NewMat()
	defer bgr.Close()
	if err := gocv.CvtColor(p.rgba, &bgr, gocv.ColorRGBAToBGR); err != nil {
		return nil, fmt.Errorf("processor: encode: %w", err)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, bgr, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("processor: encode: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Close frees the working buffers. Further calls fail with ErrClosed.
func (p *Processor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.rgba.Close()
	p.gray.Close()
	p.edges.Close()
	p.hasOutput = false
	return nil
}
