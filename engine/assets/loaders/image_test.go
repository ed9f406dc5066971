package loaders

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeImagePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 1, color.RGBA{G: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(t.TempDir(), "tex.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	pixels, width, height := DecodeImage(path)
	assert.Equal(t, uint32(2), width)
	assert.Equal(t, uint32(2), height)
	require.Len(t, pixels, 16)
	assert.Equal(t, []byte{255, 0, 0, 255}, pixels[0:4])
	assert.Equal(t, []byte{0, 255, 0, 255}, pixels[12:16])
}

func TestDecodeImageMissingFileYieldsPlaceholder(t *testing.T) {
	pixels, width, height := DecodeImage(filepath.Join(t.TempDir(), "nope.png"))
	assert.Equal(t, uint32(1), width)
	assert.Equal(t, uint32(1), height)
	assert.Equal(t, []byte{255, 0, 255, 255}, pixels)
}

func TestDecodeImageGarbageYieldsPlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	pixels, width, height := DecodeImage(path)
	assert.Equal(t, uint32(1), width)
	assert.Equal(t, uint32(1), height)
	assert.Equal(t, []byte{255, 0, 255, 255}, pixels)
}
