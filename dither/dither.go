/*
Package dither quantizes an RGB image onto a small fixed palette.

The result is an *image.Paletted whose Pix holds palette indices, ready for
the bitmap and chunk encoders. Every method is deterministic: the same image,
palette, method and saturation always give the same indices.

Stateless methods (None and Bayer) work on rows in parallel. Error diffusion
has a true dependency on every previous pixel so it runs strictly in raster
order over a floating point working buffer.
*/
package dither

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"

	"github.com/bodgit/acep/palette"
	"golang.org/x/sync/errgroup"
)

// Bayer thresholds are scaled to this many levels either side of zero
const bayerSpread = 32

var (
	errNoPalette  = errors.New("dither: palette needs at least two colors")
	errSaturation = errors.New("dither: saturation must not be negative")
)

// Quantize maps m onto p using method. A saturation other than 1 scales the
// chroma of every pixel before dithering. A nil method uses DefaultMethod.
func Quantize(m image.Image, p *palette.Palette, method Method, saturation float64) (*image.Paletted, error) {
	if p == nil || p.Len() < palette.MinColors {
		return nil, errNoPalette
	}
	if saturation < 0 {
		return nil, errSaturation
	}
	if method == nil {
		method = DefaultMethod
	}

	b := m.Bounds()
	dst := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), p.Colors())
	if b.Empty() {
		return dst, nil
	}

	buf := readRGB(m, saturation)

	switch mt := method.(type) {
	case None:
		nearest(dst, buf, p)
	case Bayer:
		if mt.Size < 2 || mt.Size&(mt.Size-1) != 0 {
			return nil, fmt.Errorf("dither: invalid bayer size %d", mt.Size)
		}
		ordered(dst, buf, p, bayerMatrix(mt.Size), mt.Size)
	case ErrorDiffusion:
		if mt.Kernel.Divisor <= 0 {
			return nil, fmt.Errorf("dither: kernel %q has no divisor", mt.Kernel.Name)
		}
		diffuse(dst, buf, p, mt.Kernel)
	default:
		return nil, fmt.Errorf("dither: unsupported method %T", method)
	}

	return dst, nil
}

// readRGB returns the image as packed float RGB triples in raster order with
// the saturation boost already applied.
func readRGB(m image.Image, saturation float64) []float64 {
	b := m.Bounds()
	buf := make([]float64, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			// Transparent pixels keep their stored colour rather than
			// turning black
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			rf, gf, bf := float64(c.R), float64(c.G), float64(c.B)
			if saturation != 1 {
				rf, gf, bf = saturate(rf, gf, bf, saturation)
			}
			buf = append(buf, rf, gf, bf)
		}
	}
	return buf
}

// saturate scales each channel's distance from the pixel's luma by s
func saturate(r, g, b, s float64) (float64, float64, float64) {
	l := 0.299*r + 0.587*g + 0.114*b
	return clamp(l + (r-l)*s), clamp(l + (g-l)*s), clamp(l + (b-l)*s)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return v
	}
}

// eachRow calls fn for every row, spreading rows over GOMAXPROCS goroutines.
// Only safe for methods where a pixel never depends on another.
func eachRow(h int, fn func(y int)) {
	n := runtime.GOMAXPROCS(0)
	if n > h {
		n = h
	}
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			for y := i; y < h; y += n {
				fn(y)
			}
			return nil
		})
	}
	// Rows can't fail so there is no error to collect
	g.Wait()
}

func nearest(dst *image.Paletted, buf []float64, p *palette.Palette) {
	w := dst.Rect.Dx()
	eachRow(dst.Rect.Dy(), func(y int) {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			dst.Pix[y*dst.Stride+x] = uint8(p.IndexFloat(buf[i], buf[i+1], buf[i+2]))
		}
	})
}
