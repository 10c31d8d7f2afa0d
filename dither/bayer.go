package dither

import (
	"image"

	"github.com/bodgit/acep/palette"
)

// bayerMatrix builds a size by size threshold matrix by recursive doubling of
// the 2x2 base [0 2; 3 1], normalized to [0, 1).
func bayerMatrix(size int) []float64 {
	m, n := []int{0}, 1
	for n < size {
		next := make([]int, 4*n*n)
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				v := 4 * m[y*n+x]
				next[y*2*n+x] = v
				next[y*2*n+x+n] = v + 2
				next[(y+n)*2*n+x] = v + 3
				next[(y+n)*2*n+x+n] = v + 1
			}
		}
		m, n = next, n*2
	}

	t := make([]float64, len(m))
	for i, v := range m {
		t[i] = float64(v) / float64(len(m))
	}
	return t
}

func ordered(dst *image.Paletted, buf []float64, p *palette.Palette, matrix []float64, size int) {
	w := dst.Rect.Dx()
	eachRow(dst.Rect.Dy(), func(y int) {
		row := matrix[(y%size)*size : (y%size+1)*size]
		for x := 0; x < w; x++ {
			offset := (row[x%size] - 0.5) * bayerSpread
			i := (y*w + x) * 3
			dst.Pix[y*dst.Stride+x] = uint8(p.IndexFloat(
				clamp(buf[i]+offset),
				clamp(buf[i+1]+offset),
				clamp(buf[i+2]+offset),
			))
		}
	})
}
