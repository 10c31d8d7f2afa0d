package acep

import (
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"math"
	"os"

	"github.com/anthonynsimon/bild/transform"
	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/webp" // WEBP decoder
)

// LoadImage decodes the image in file
func LoadImage(file string) (image.Image, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return m, nil
}

// Fit scales m to cover width by height, keeping the aspect ratio, and crops
// the centre. An image that is already the right size is returned as is.
func Fit(m image.Image, width, height int) image.Image {
	b := m.Bounds()
	if width <= 0 || height <= 0 || b.Empty() || (b.Dx() == width && b.Dy() == height) {
		return m
	}

	scale := math.Max(float64(width)/float64(b.Dx()), float64(height)/float64(b.Dy()))
	w := int(math.Max(math.Round(float64(b.Dx())*scale), float64(width)))
	h := int(math.Max(math.Round(float64(b.Dy())*scale), float64(height)))

	resized := transform.Resize(m, w, h, transform.Lanczos)
	if w == width && h == height {
		return resized
	}

	x, y := (w-width)/2, (h-height)/2
	return transform.Crop(resized, image.Rect(x, y, x+width, y+height))
}
