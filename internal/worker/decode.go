package worker

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"runtime/debug"

	"filmstrip/internal/domain"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode reads and decodes one image file into an RGBA pixel buffer. It is
// used both by pool workers and by the cache's synchronous load path.
func Decode(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, &domain.DecodeError{Path: path, Err: err, Stack: debug.Stack()}
	}

	if rgba, ok := src.(*image.RGBA); ok {
		return rgba, nil
	}
	rgba := image.NewRGBA(src.Bounds())
	draw.Draw(rgba, rgba.Bounds(), src, src.Bounds().Min, draw.Src)
	return rgba, nil
}

// SizeBytes is the cache cost of a decoded buffer.
func SizeBytes(img *image.RGBA) int64 {
	return int64(len(img.Pix))
}
