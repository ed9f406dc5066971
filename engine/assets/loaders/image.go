package loaders

import (
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"

	"github.com/spaghettifunk/lumen/engine/core"
)

// placeholderPixel is a single magenta texel, loud enough to spot a
// broken asset in the rendered image.
var placeholderPixel = []byte{255, 0, 255, 255}

/**
 * @brief DecodeImage reads a png, jpeg or bmp file and returns tightly
 * packed RGBA pixels. A missing or undecodable file yields a 1x1 magenta
 * placeholder instead of an error so one bad texture cannot stop the
 * scene from loading.
 */
func DecodeImage(path string) ([]byte, uint32, uint32) {
	f, err := os.Open(path)
	if err != nil {
		core.LogWarn("texture %s could not be opened: %s", path, err)
		return placeholderPixel, 1, 1
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		core.LogWarn("texture %s could not be decoded: %s", path, err)
		return placeholderPixel, 1, 1
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return rgba.Pix, uint32(bounds.Dx()), uint32(bounds.Dy())
}
