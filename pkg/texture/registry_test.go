package texture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_BindErrors(t *testing.T) {
	r := NewRegistry()

	assert.ErrorIs(t, r.BindTexture(None), ErrNoTexture)
	assert.ErrorIs(t, r.BindTexture(7), ErrUnknownTexture)
	assert.ErrorIs(t, r.TexImage2D(1, 1, make([]byte, 4)), ErrNotBound)
}

func TestRegistry_FullThenSub(t *testing.T) {
	r := NewRegistry()
	h := r.GenTexture()
	require.NoError(t, r.BindTexture(h))

	require.NoError(t, r.TexImage2D(2, 1, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	require.NoError(t, r.TexSubImage2D(2, 1, []byte{8, 7, 6, 5, 4, 3, 2, 1}))
	require.NoError(t, r.Finish())

	info, ok := r.Info(h)
	require.True(t, ok)
	assert.Equal(t, Info{Width: 2, Height: 1, Allocs: 1, SubUpdates: 1}, info)
	assert.Equal(t, 1, r.Finishes())

	img := r.Image(h)
	require.NotNil(t, img)
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, img.Pix)
}

func TestRegistry_SubImageSizeMismatch(t *testing.T) {
	r := NewRegistry()
	h := r.GenTexture()
	require.NoError(t, r.BindTexture(h))

	assert.ErrorIs(t, r.TexSubImage2D(1, 1, make([]byte, 4)), ErrSizeMismatch, "no storage yet")

	require.NoError(t, r.TexImage2D(1, 1, make([]byte, 4)))
	assert.ErrorIs(t, r.TexSubImage2D(2, 1, make([]byte, 8)), ErrSizeMismatch)
	assert.ErrorIs(t, r.TexImage2D(2, 2, make([]byte, 4)), ErrSizeMismatch, "short pixel data")
}

func TestRegistry_DeleteUnbinds(t *testing.T) {
	r := NewRegistry()
	h := r.GenTexture()
	require.NoError(t, r.BindTexture(h))

	r.DeleteTexture(h)

	assert.ErrorIs(t, r.TexImage2D(1, 1, make([]byte, 4)), ErrNotBound)
	_, ok := r.Info(h)
	assert.False(t, ok)
	assert.Nil(t, r.Image(h))
}

func TestUploadMode_String(t *testing.T) {
	assert.Equal(t, "full", UploadFull.String())
	assert.Equal(t, "sub", UploadSub.String())
	assert.Equal(t, "none", UploadNone.String())
}
