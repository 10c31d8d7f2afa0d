package dither

import (
	"image"

	"github.com/bodgit/acep/palette"
)

// diffuse runs error diffusion in raster order. buf is used as the working
// buffer and is modified.
func diffuse(dst *image.Paletted, buf []float64, p *palette.Palette, k Kernel) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	div := float64(k.Divisor)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			r, g, b := clamp(buf[i]), clamp(buf[i+1]), clamp(buf[i+2])

			idx := p.IndexFloat(r, g, b)
			dst.Pix[y*dst.Stride+x] = uint8(idx)

			c := p.At(idx)
			er := r - float64(c.R)
			eg := g - float64(c.G)
			eb := b - float64(c.B)
			if er == 0 && eg == 0 && eb == 0 {
				continue
			}

			for _, t := range k.Taps {
				nx, ny := x+t.DX, y+t.DY
				if nx < 0 || nx >= w || ny >= h {
					continue
				}
				j := (ny*w + nx) * 3
				f := float64(t.Weight)
				buf[j] += er * f / div
				buf[j+1] += eg * f / div
				buf[j+2] += eb * f / div
			}
		}
	}
}
