package acep

import (
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/bodgit/acep/chunk"
	"golang.org/x/image/bmp"
)

var errNotIndexed = errors.New("acep: not an indexed bitmap")

// Info describes a bitmap previously written by Convert
type Info struct {
	Width  int
	Height int
	Bytes  int64
	Used   []int // pixel count per palette index, up to the highest used
	Chunks int   // number of upload chunks at the given size
	Length int   // total characters across all chunks
}

// Inspect decodes the indexed bitmap in file and reports how it would be
// uploaded using chunks of size characters.
func Inspect(file string, size int) (*Info, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	m, err := bmp.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	pm, ok := m.(*image.Paletted)
	if !ok {
		return nil, fmt.Errorf("%s: %w", file, errNotIndexed)
	}

	chunks, err := chunk.Pack(pm, size)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Width:  pm.Rect.Dx(),
		Height: pm.Rect.Dy(),
		Bytes:  fi.Size(),
		Chunks: len(chunks),
	}
	for _, c := range chunks {
		info.Length += len(c)
	}

	for y := pm.Rect.Min.Y; y < pm.Rect.Max.Y; y++ {
		for x := pm.Rect.Min.X; x < pm.Rect.Max.X; x++ {
			i := int(pm.ColorIndexAt(x, y))
			for len(info.Used) <= i {
				info.Used = append(info.Used, 0)
			}
			info.Used[i]++
		}
	}

	return info, nil
}
