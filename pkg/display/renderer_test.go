package display

import (
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-edgeview/pkg/texture"
)

var _ texture.Device = (*Renderer)(nil)

func TestAspectFitTransform(t *testing.T) {
	tests := []struct {
		name              string
		viewW, viewH      float64
		frameW, frameH    float64
		scale, offX, offY float64
	}{
		{"exact", 640, 480, 640, 480, 1, 0, 0},
		{"pillarbox", 1280, 480, 640, 480, 1, 320, 0},
		{"letterbox", 640, 960, 640, 480, 1, 0, 240},
		{"upscale", 1280, 960, 320, 240, 4, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scale, offX, offY := aspectFitTransform(tt.viewW, tt.viewH, tt.frameW, tt.frameH)
			assert.InDelta(t, tt.scale, scale, 1e-9)
			assert.InDelta(t, tt.offX, offX, 1e-9)
			assert.InDelta(t, tt.offY, offY, 1e-9)
		})
	}
}

// newTestRenderer skips the GPU write so tests run without a game loop.
func newTestRenderer() (*Renderer, *int) {
	r := NewRenderer()
	writes := new(int)
	r.write = func(*stagedTexture) { *writes++ }
	return r, writes
}

func TestRenderer_StagesUploads(t *testing.T) {
	r, writes := newTestRenderer()
	h := r.GenTexture()

	assert.ErrorIs(t, r.TexImage2D(1, 1, make([]byte, 4)), texture.ErrNotBound)
	require.NoError(t, r.BindTexture(h))
	assert.ErrorIs(t, r.TexSubImage2D(2, 2, make([]byte, 16)), texture.ErrSizeMismatch)

	require.NoError(t, r.TexImage2D(2, 2, make([]byte, 16)))
	require.NoError(t, r.TexSubImage2D(2, 2, make([]byte, 16)))

	size, ok := r.Size(h)
	require.True(t, ok)
	assert.Equal(t, 2, size.X)
	assert.Equal(t, 2, size.Y)

	r.flush()
	assert.Equal(t, 1, *writes, "both uploads land in one write")
	assert.Equal(t, uint64(1), r.Uploads())
	require.NoError(t, r.Finish(), "nothing left to wait for")
}

func TestRenderer_FinishWaitsForFlush(t *testing.T) {
	r, writes := newTestRenderer()
	h := r.GenTexture()
	require.NoError(t, r.BindTexture(h))
	require.NoError(t, r.TexImage2D(2, 2, make([]byte, 16)))

	done := make(chan error, 1)
	go func() { done <- r.Finish() }()

	select {
	case err := <-done:
		t.Fatalf("Finish returned %v before the upload was written", err)
	case <-time.After(50 * time.Millisecond):
	}

	r.flush()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Finish still blocked after flush")
	}
	assert.Equal(t, 1, *writes)
}

func TestRenderer_StopUnblocksFinish(t *testing.T) {
	r, _ := newTestRenderer()
	h := r.GenTexture()
	require.NoError(t, r.BindTexture(h))
	require.NoError(t, r.TexImage2D(2, 2, make([]byte, 16)))

	done := make(chan error, 1)
	go func() { done <- r.Finish() }()
	time.Sleep(20 * time.Millisecond)
	r.Stop()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("Finish still blocked after Stop")
	}
}

func TestRenderer_DeleteUnblocksFinish(t *testing.T) {
	r, _ := newTestRenderer()
	h := r.GenTexture()
	require.NoError(t, r.BindTexture(h))
	require.NoError(t, r.TexImage2D(2, 2, make([]byte, 16)))

	done := make(chan error, 1)
	go func() { done <- r.Finish() }()
	time.Sleep(20 * time.Millisecond)
	r.DeleteTexture(h)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Finish still blocked after delete")
	}
}

func TestRenderer_DeleteTexture(t *testing.T) {
	r, _ := newTestRenderer()
	h := r.GenTexture()
	require.NoError(t, r.BindTexture(h))

	r.DeleteTexture(h)

	assert.ErrorIs(t, r.BindTexture(h), texture.ErrUnknownTexture)
	assert.ErrorIs(t, r.BindTexture(texture.None), texture.ErrNoTexture)
	_, ok := r.Size(h)
	assert.False(t, ok)
}

func TestRenderer_StopTerminates(t *testing.T) {
	r := NewRenderer()
	r.Stop()
	r.Stop()
	assert.ErrorIs(t, r.Update(), ebiten.Termination)
}
