package frame

// Neutral chroma: U = V = 128 carries no color.
const NeutralChroma = 128

// Solid returns a w x h NV21 frame filled with one YUV value.
func Solid(w, h int, y, u, v byte) Frame {
	data := make([]byte, NV21Size(w, h))
	FillSolid(data, w, h, y, u, v)
	return Frame{Data: data, Width: w, Height: h}
}

// FillSolid writes one YUV value over an NV21 buffer of w x h.
func FillSolid(data []byte, w, h int, y, u, v byte) {
	fill(data[:w*h], y)
	vu := data[w*h : NV21Size(w, h)]
	for i := 0; i+1 < len(vu); i += 2 {
		vu[i] = v
		vu[i+1] = u
	}
}

// VerticalEdge returns a gray frame whose luma is lo left of column x and
// hi from column x on.
func VerticalEdge(w, h, x int, lo, hi byte) Frame {
	data := make([]byte, NV21Size(w, h))
	FillVerticalEdge(data, w, h, x, lo, hi)
	return Frame{Data: data, Width: w, Height: h}
}

// FillVerticalEdge draws the VerticalEdge pattern into an existing buffer.
func FillVerticalEdge(data []byte, w, h, x int, lo, hi byte) {
	FillSolid(data, w, h, lo, NeutralChroma, NeutralChroma)
	if x < 0 {
		x = 0
	}
	if x >= w {
		return
	}
	for row := 0; row < h; row++ {
		fill(data[row*w+x:(row+1)*w], hi)
	}
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
