package frame

import "fmt"

// Plane is one plane of a strided YUV 4:2:0 image, as camera stacks
// deliver them: rows RowStride bytes apart, samples PixelStride apart.
type Plane struct {
	Data        []byte
	RowStride   int
	PixelStride int
}

// PlaneSet is a three-plane 4:2:0 image (Y, U, V).
type PlaneSet struct {
	Width  int
	Height int
	Y      Plane
	U      Plane
	V      Plane
}

// PackNV21 copies a strided three-plane image into a new NV21 frame.
func PackNV21(ps PlaneSet) (Frame, error) {
	out := make([]byte, NV21Size(ps.Width, ps.Height))
	if err := PackNV21Into(out, ps); err != nil {
		return Frame{}, err
	}
	return Frame{Data: out, Width: ps.Width, Height: ps.Height}, nil
}

// PackNV21Into packs a strided three-plane image into dst, which must hold
// NV21Size bytes. Chroma rows are walked sample by sample so padded and
// semi-planar sources are handled alike.
func PackNV21Into(dst []byte, ps PlaneSet) error {
	w, h := ps.Width, ps.Height
	if err := Validate(w, h, len(dst)); err != nil {
		return err
	}
	if err := checkPlane("y", ps.Y, w, h); err != nil {
		return err
	}
	if err := checkPlane("u", ps.U, w/2, h/2); err != nil {
		return err
	}
	if err := checkPlane("v", ps.V, w/2, h/2); err != nil {
		return err
	}

	packLuma(dst, ps.Y, w, h)

	off := w * h
	for row := 0; row < h/2; row++ {
		for col := 0; col < w/2; col++ {
			dst[off] = ps.V.Data[row*ps.V.RowStride+col*ps.V.PixelStride]
			dst[off+1] = ps.U.Data[row*ps.U.RowStride+col*ps.U.PixelStride]
			off += 2
		}
	}
	return nil
}

// I420ToNV21 repacks a planar I420 buffer (Y, then U, then V, each tightly
// packed) into a new NV21 frame.
func I420ToNV21(src []byte, w, h int) (Frame, error) {
	out := make([]byte, NV21Size(w, h))
	if err := I420ToNV21Into(out, src, w, h); err != nil {
		return Frame{}, err
	}
	return Frame{Data: out, Width: w, Height: h}, nil
}

// I420ToNV21Into repacks a planar I420 buffer into dst.
func I420ToNV21Into(dst, src []byte, w, h int) error {
	if err := Validate(w, h, len(src)); err != nil {
		return err
	}
	ySize := w * h
	cSize := ySize / 4
	return PackNV21Into(dst, PlaneSet{
		Width:  w,
		Height: h,
		Y:      Plane{Data: src[:ySize], RowStride: w, PixelStride: 1},
		U:      Plane{Data: src[ySize : ySize+cSize], RowStride: w / 2, PixelStride: 1},
		V:      Plane{Data: src[ySize+cSize : ySize+2*cSize], RowStride: w / 2, PixelStride: 1},
	})
}

func packLuma(dst []byte, y Plane, w, h int) {
	if y.PixelStride == 1 && y.RowStride == w {
		copy(dst, y.Data[:w*h])
		return
	}
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			dst[row*w+col] = y.Data[row*y.RowStride+col*y.PixelStride]
		}
	}
}

func checkPlane(name string, p Plane, w, h int) error {
	if p.PixelStride < 1 || p.RowStride < (w-1)*p.PixelStride+1 {
		return fmt.Errorf("frame: %s plane strides %d/%d too small for width %d", name, p.RowStride, p.PixelStride, w)
	}
	last := (h-1)*p.RowStride + (w-1)*p.PixelStride
	if last >= len(p.Data) {
		return fmt.Errorf("frame: %s plane has %d bytes, need %d", name, len(p.Data), last+1)
	}
	return nil
}
