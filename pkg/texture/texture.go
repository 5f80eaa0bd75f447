// Package texture describes the GPU texture upload surface the frame
// processor writes into, plus an in-memory implementation.
//
// The calls mirror the GL texture API: bind a texture, then either
// (re)allocate its storage with TexImage2D or overwrite it in place with
// TexSubImage2D, then Finish to wait for the upload. Pixels are always
// 8-bit RGBA, rows tightly packed.
package texture

import "errors"

// Handle identifies caller-owned texture storage. Zero is never a valid
// texture.
type Handle uint32

// None is the zero handle.
const None Handle = 0

// BytesPerPixel for the RGBA upload format.
const BytesPerPixel = 4

var (
	// ErrNoTexture is returned when binding the zero handle.
	ErrNoTexture = errors.New("texture: zero handle")
	// ErrUnknownTexture is returned for handles the device never issued
	// or has deleted.
	ErrUnknownTexture = errors.New("texture: unknown handle")
	// ErrNotBound is returned when uploading with nothing bound.
	ErrNotBound = errors.New("texture: no texture bound")
	// ErrSizeMismatch is returned when a sub-image update does not match
	// the allocated storage, or pixel data is the wrong length.
	ErrSizeMismatch = errors.New("texture: size mismatch")
)

// Device uploads RGBA pixels into textures.
type Device interface {
	BindTexture(h Handle) error
	TexImage2D(width, height int, pix []byte) error
	TexSubImage2D(width, height int, pix []byte) error
	Finish() error
}

// UploadMode says how a frame reached the texture.
type UploadMode int

const (
	// UploadNone means no upload happened.
	UploadNone UploadMode = iota
	// UploadFull means storage was (re)allocated with TexImage2D.
	UploadFull
	// UploadSub means storage was updated in place with TexSubImage2D.
	UploadSub
)

func (m UploadMode) String() string {
	switch m {
	case UploadFull:
		return "full"
	case UploadSub:
		return "sub"
	default:
		return "none"
	}
}

// PixelLen returns the byte length of a w x h RGBA image.
func PixelLen(w, h int) int {
	return w * h * BytesPerPixel
}
