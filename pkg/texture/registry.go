package texture

import (
	"fmt"
	"image"
	"sync"
)

// Registry is an in-memory Device. It stands in for the GPU in headless
// runs and tests, and counts allocations so callers can check that steady
// state frames only do sub-image updates.
type Registry struct {
	mu       sync.Mutex
	next     Handle
	textures map[Handle]*memTexture
	bound    Handle
	finishes int
}

type memTexture struct {
	width, height int
	pix           []byte
	allocs        int
	subUpdates    int
}

// Info describes one texture's storage and upload history.
type Info struct {
	Width      int
	Height     int
	Allocs     int
	SubUpdates int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{textures: make(map[Handle]*memTexture)}
}

// GenTexture creates a texture with no storage.
func (r *Registry) GenTexture() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.textures[r.next] = &memTexture{}
	return r.next
}

// DeleteTexture frees a texture. Deleting the bound texture unbinds it.
func (r *Registry) DeleteTexture(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.textures, h)
	if r.bound == h {
		r.bound = None
	}
}

// BindTexture makes h the target of subsequent uploads.
func (r *Registry) BindTexture(h Handle) error {
	if h == None {
		return ErrNoTexture
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.textures[h]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTexture, h)
	}
	r.bound = h
	return nil
}

// TexImage2D replaces the bound texture's storage.
func (r *Registry) TexImage2D(width, height int, pix []byte) error {
	if len(pix) != PixelLen(width, height) {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrSizeMismatch, len(pix), width, height)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.boundLocked()
	if err != nil {
		return err
	}
	t.width, t.height = width, height
	t.pix = make([]byte, len(pix))
	copy(t.pix, pix)
	t.allocs++
	return nil
}

// TexSubImage2D overwrites the bound texture's storage in place.
func (r *Registry) TexSubImage2D(width, height int, pix []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.boundLocked()
	if err != nil {
		return err
	}
	if width != t.width || height != t.height || len(pix) != len(t.pix) {
		return fmt.Errorf("%w: update %dx%d into %dx%d", ErrSizeMismatch, width, height, t.width, t.height)
	}
	copy(t.pix, pix)
	t.subUpdates++
	return nil
}

// Finish returns immediately; memory uploads complete synchronously.
func (r *Registry) Finish() error {
	r.mu.Lock()
	r.finishes++
	r.mu.Unlock()
	return nil
}

// Finishes counts Finish calls.
func (r *Registry) Finishes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finishes
}

// Info reports a texture's storage.
func (r *Registry) Info(h Handle) (Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.textures[h]
	if !ok {
		return Info{}, false
	}
	return Info{Width: t.width, Height: t.height, Allocs: t.allocs, SubUpdates: t.subUpdates}, true
}

// Image returns a copy of the texture contents, or nil when it has no
// storage yet.
func (r *Registry) Image(h Handle) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.textures[h]
	if !ok || t.pix == nil {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, t.width, t.height))
	copy(img.Pix, t.pix)
	return img
}

func (r *Registry) boundLocked() (*memTexture, error) {
	if r.bound == None {
		return nil, ErrNotBound
	}
	t, ok := r.textures[r.bound]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTexture, r.bound)
	}
	return t, nil
}
