package acep

import (
	"image"
	"image/color"
	"testing"

	"github.com/bodgit/acep/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	p, err := palette.NewRegistry().Lookup(palette.Strict)
	require.NoError(t, err)

	// Three quarters black, one quarter pure red
	m := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			c := color.RGBA{0, 0, 0, 0xff}
			if x >= 8 && y >= 8 {
				c = color.RGBA{0xff, 0, 0, 0xff}
			}
			m.SetRGBA(x, y, c)
		}
	}

	swatches := Analyze(m, p, 4)
	require.NotEmpty(t, swatches)
	assert.LessOrEqual(t, len(swatches), 4)

	var total float64
	for i, s := range swatches {
		total += s.Share
		if i > 0 {
			assert.GreaterOrEqual(t, swatches[i-1].Share, s.Share)
		}
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	assert.Equal(t, 0, swatches[0].Index)
	assert.InDelta(t, 0.75, swatches[0].Share, 1e-9)
	assert.InDelta(t, 0, swatches[0].Distance, 1e-9)
}

func TestAnalyzeEmpty(t *testing.T) {
	p, err := palette.NewRegistry().Lookup(palette.Strict)
	require.NoError(t, err)

	assert.Nil(t, Analyze(image.NewRGBA(image.Rect(0, 0, 0, 0)), p, 4))
	assert.Nil(t, Analyze(image.NewRGBA(image.Rect(0, 0, 2, 2)), nil, 4))
}
