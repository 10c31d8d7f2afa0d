package acep

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"

	"github.com/bodgit/acep/palette"
	"github.com/ericpauley/go-quantize/quantize"
)

// DefaultSwatches is the number of dominant colours Analyze looks for
const DefaultSwatches = 8

// Swatch is one dominant colour of an image and the palette entry it maps to
type Swatch struct {
	Color    color.RGBA
	Share    float64 // fraction of the image's pixels
	Index    int     // nearest palette entry
	Distance float64 // euclidean RGB distance to that entry
}

// Analyze finds up to n dominant colours of m by median cut and pairs each
// with its nearest entry in p. Swatches are ordered by share, largest first.
// Colours far from every entry are the ones that will dither visibly.
func Analyze(m image.Image, p *palette.Palette, n int) []Swatch {
	b := m.Bounds()
	if b.Empty() || p == nil {
		return nil
	}
	if n <= 0 {
		n = DefaultSwatches
	}

	q := quantize.MedianCutQuantizer{}
	cp := q.Quantize(make(color.Palette, 0, n), m)
	if len(cp) == 0 {
		return nil
	}

	pm := image.NewPaletted(b, cp)
	draw.Draw(pm, b, m, b.Min, draw.Src)

	counts := make([]int, len(cp))
	for _, i := range pm.Pix {
		counts[i]++
	}

	total := float64(len(pm.Pix))
	swatches := make([]Swatch, 0, len(cp))
	for i, c := range cp {
		if counts[i] == 0 {
			continue
		}
		rgba := color.RGBAModel.Convert(c).(color.RGBA)
		idx := p.Index(rgba.R, rgba.G, rgba.B)
		e := p.At(idx)
		dr, dg, db := float64(rgba.R)-float64(e.R), float64(rgba.G)-float64(e.G), float64(rgba.B)-float64(e.B)
		swatches = append(swatches, Swatch{
			Color:    rgba,
			Share:    float64(counts[i]) / total,
			Index:    idx,
			Distance: math.Sqrt(dr*dr + dg*dg + db*db),
		})
	}

	sort.SliceStable(swatches, func(i, j int) bool {
		return swatches[i].Share > swatches[j].Share
	})

	return swatches
}
