/*
Package chunk implements the ASCII transport encoding used to send a
quantized image to the panel controller.

Palette indices are taken two at a time and packed into one byte as
(first&7)<<4 | second&7. Each nibble of that byte is then written as a letter
from 'a' to 'p', so every pixel pair becomes two characters. The result is
split into chunks of at most Size characters, never splitting a pair, and an
odd final pixel is padded with index 0.
*/
package chunk

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

// DefaultSize is the chunk length the controller expects, 500 pixel pairs
const DefaultSize = 1000

const (
	indexMask = 0x07
	base      = 'a'
)

var (
	// ErrShape is returned when the pixel buffer doesn't match the image
	// bounds
	ErrShape = errors.New("chunk: pixel data does not match image bounds")

	errSize   = errors.New("chunk: size must hold at least one pixel pair")
	errLetter = errors.New("chunk: invalid character")
)

func indices(m *image.Paletted) ([]uint8, error) {
	w, h := m.Rect.Dx(), m.Rect.Dy()
	if w == 0 || h == 0 {
		return nil, nil
	}
	if m.Stride < w || len(m.Pix) < (h-1)*m.Stride+w {
		return nil, ErrShape
	}
	if m.Stride == w {
		return m.Pix[:w*h], nil
	}
	pix := make([]uint8, 0, w*h)
	for y := m.Rect.Min.Y; y < m.Rect.Max.Y; y++ {
		i := m.PixOffset(m.Rect.Min.X, y)
		pix = append(pix, m.Pix[i:i+w]...)
	}
	return pix, nil
}

// Pack encodes the indices of m in raster order into chunks of at most size
// characters. A size of zero or less uses DefaultSize and an odd size is
// rounded down to a whole pixel pair.
//
// Indices of 8 or more can't be represented and are masked to their low 3
// bits rather than rejected.
func Pack(m *image.Paletted, size int) ([]string, error) {
	pix, err := indices(m)
	if err != nil {
		return nil, err
	}
	return PackIndices(pix, size)
}

// PackIndices is Pack for a bare slice of palette indices
func PackIndices(pix []uint8, size int) ([]string, error) {
	if size <= 0 {
		size = DefaultSize
	}
	size &^= 1
	if size < 2 {
		return nil, errSize
	}

	var chunks []string
	var sb strings.Builder
	sb.Grow(size)
	for i := 0; i < len(pix); i += 2 {
		a := pix[i] & indexMask
		var b uint8
		if i+1 < len(pix) {
			b = pix[i+1] & indexMask
		}
		packed := a<<4 | b

		sb.WriteByte(base + packed>>4)
		sb.WriteByte(base + packed&0x0f)

		if sb.Len() >= size {
			chunks = append(chunks, sb.String())
			sb.Reset()
			sb.Grow(size)
		}
	}
	if sb.Len() > 0 {
		chunks = append(chunks, sb.String())
	}
	return chunks, nil
}

// Unpack reverses Pack returning the first n indices. If n is negative all
// decoded indices, including any padding, are returned.
func Unpack(chunks []string, n int) ([]uint8, error) {
	var pix []uint8
	for _, c := range chunks {
		if len(c)%2 != 0 {
			return nil, fmt.Errorf("chunk: odd length %d", len(c))
		}
		for i := 0; i < len(c); i += 2 {
			hi, lo := c[i]-base, c[i+1]-base
			if c[i] < base || c[i+1] < base || hi > 0x0f || lo > 0x0f {
				return nil, errLetter
			}
			packed := hi<<4 | lo
			pix = append(pix, packed>>4, packed&0x0f)
		}
	}
	if n >= 0 {
		if n > len(pix) {
			return nil, fmt.Errorf("chunk: want %d indices, only %d encoded", n, len(pix))
		}
		pix = pix[:n]
	}
	return pix, nil
}

// Length returns the total number of characters Pack produces for n pixels
func Length(n int) int {
	return (n + 1) / 2 * 2
}
