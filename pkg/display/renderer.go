// Package display shows edge textures in an Ebitengine window.
//
// Renderer implements texture.Device. Uploads arrive on the pipeline
// worker's goroutine and are staged in CPU memory; the GPU images are
// created and written on Ebitengine's game thread. Finish blocks until
// that write has happened.
package display

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/teslashibe/go-edgeview/pkg/texture"
)

// ErrStopped is returned by Finish when the renderer stops before the
// staged upload reached the GPU.
var ErrStopped = errors.New("display: renderer stopped")

type stagedTexture struct {
	width, height int
	pix           []byte

	// Written by the uploader, consumed by flush.
	realloc bool
	dirty   bool

	img *ebiten.Image
}

// Renderer is a texture.Device backed by ebiten images.
type Renderer struct {
	mu       sync.Mutex
	next     texture.Handle
	textures map[texture.Handle]*stagedTexture
	bound    texture.Handle

	// Texture shown by Draw.
	shown texture.Handle

	// Signalled after every flush and on Stop.
	flushed *sync.Cond
	uploads uint64

	// Moves staged pixels into GPU images; swapped out in tests.
	write func(t *stagedTexture)

	windowW, windowH int

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRenderer returns a renderer with a default window size.
func NewRenderer() *Renderer {
	r := &Renderer{
		textures: make(map[texture.Handle]*stagedTexture),
		write:    writeImage,
		windowW:  1280,
		windowH:  720,
		stop:     make(chan struct{}),
	}
	r.flushed = sync.NewCond(&r.mu)
	return r
}

// GenTexture creates a texture with no storage. Draw shows the oldest
// live texture.
func (r *Renderer) GenTexture() texture.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.textures[r.next] = &stagedTexture{}
	if r.shown == texture.None {
		r.shown = r.next
	}
	return r.next
}

// DeleteTexture frees a texture and its GPU image.
func (r *Renderer) DeleteTexture(h texture.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.textures[h]; ok && t.img != nil {
		t.img.Deallocate()
	}
	delete(r.textures, h)
	if r.bound == h {
		r.bound = texture.None
	}
	if r.shown == h {
		r.shown = texture.None
		for other := range r.textures {
			if r.shown == texture.None || other < r.shown {
				r.shown = other
			}
		}
	}
	r.flushed.Broadcast()
}

// BindTexture makes h the target of subsequent uploads.
func (r *Renderer) BindTexture(h texture.Handle) error {
	if h == texture.None {
		return texture.ErrNoTexture
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.textures[h]; !ok {
		return fmt.Errorf("%w: %d", texture.ErrUnknownTexture, h)
	}
	r.bound = h
	return nil
}

// TexImage2D (re)allocates the bound texture's storage.
func (r *Renderer) TexImage2D(width, height int, pix []byte) error {
	if len(pix) != texture.PixelLen(width, height) {
		return fmt.Errorf("%w: %d bytes for %dx%d", texture.ErrSizeMismatch, len(pix), width, height)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.boundLocked()
	if err != nil {
		return err
	}
	if t.width != width || t.height != height || t.pix == nil {
		t.pix = make([]byte, len(pix))
		t.realloc = true
	}
	t.width, t.height = width, height
	copy(t.pix, pix)
	t.dirty = true
	return nil
}

// TexSubImage2D overwrites the bound texture's storage.
func (r *Renderer) TexSubImage2D(width, height int, pix []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.boundLocked()
	if err != nil {
		return err
	}
	if t.pix == nil || width != t.width || height != t.height || len(pix) != len(t.pix) {
		return fmt.Errorf("%w: update %dx%d into %dx%d", texture.ErrSizeMismatch, width, height, t.width, t.height)
	}
	copy(t.pix, pix)
	t.dirty = true
	return nil
}

// Finish blocks until the bound texture's staged pixels have been written
// to its GPU image by the game loop.
func (r *Renderer) Finish() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.textures[r.bound]
	if !ok {
		return nil
	}
	for t.dirty && r.textures[r.bound] == t {
		if r.stopped() {
			return ErrStopped
		}
		r.flushed.Wait()
	}
	return nil
}

// Uploads counts staged textures written to the GPU.
func (r *Renderer) Uploads() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uploads
}

// Size reports a texture's staged dimensions.
func (r *Renderer) Size(h texture.Handle) (image.Point, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.textures[h]
	if !ok {
		return image.Point{}, false
	}
	return image.Pt(t.width, t.height), true
}

func (r *Renderer) boundLocked() (*stagedTexture, error) {
	if r.bound == texture.None {
		return nil, texture.ErrNotBound
	}
	t, ok := r.textures[r.bound]
	if !ok {
		return nil, fmt.Errorf("%w: %d", texture.ErrUnknownTexture, r.bound)
	}
	return t, nil
}

// Stop asks Run to return at the next update and fails pending Finish
// calls.
func (r *Renderer) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.mu.Lock()
	r.flushed.Broadcast()
	r.mu.Unlock()
}

func (r *Renderer) stopped() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// flush writes every dirty texture and wakes Finish callers.
func (r *Renderer) flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.textures {
		if !t.dirty || t.pix == nil {
			continue
		}
		r.write(t)
		t.realloc = false
		t.dirty = false
		r.uploads++
	}
	r.flushed.Broadcast()
}

func writeImage(t *stagedTexture) {
	if t.realloc || t.img == nil {
		if t.img != nil {
			t.img.Deallocate()
		}
		t.img = ebiten.NewImage(t.width, t.height)
	}
	t.img.WritePixels(t.pix)
}

// Run opens the window and blocks until it is closed, Escape is pressed or
// Stop is called. Must be called from the main goroutine.
func (r *Renderer) Run(title string) error {
	ebiten.SetWindowSize(r.windowW, r.windowH)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(r)
}

// --- ebiten.Game interface ---

func (r *Renderer) Update() error {
	if r.stopped() {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	// Draw can be skipped while the window is hidden; uploads still land.
	r.flush()
	return nil
}

func (r *Renderer) Draw(screen *ebiten.Image) {
	r.flush()

	r.mu.Lock()
	t := r.textures[r.shown]
	if t == nil || t.img == nil {
		r.mu.Unlock()
		return
	}
	img := t.img
	fw, fh := float64(t.width), float64(t.height)
	r.mu.Unlock()

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	scale, offsetX, offsetY := aspectFitTransform(float64(sw), float64(sh), fw, fh)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	screen.DrawImage(img, op)
}

func (r *Renderer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// aspectFitTransform returns scale and offsets to fit frame into view with letterboxing.
func aspectFitTransform(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}
