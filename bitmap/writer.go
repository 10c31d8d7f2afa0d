package bitmap

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"io"
)

var (
	// ErrShape is returned when the pixel buffer doesn't match the image
	// bounds
	ErrShape = errors.New("bitmap: pixel data does not match image bounds")

	errTooManyColors = errors.New("bitmap: more than 256 colors")
)

type encoder struct {
	w io.Writer
	m *image.Paletted

	width  int
	height int
}

func (e *encoder) writeHeaders() error {
	var h [fileHeaderLen + infoHeaderLen]byte

	// BITMAPFILEHEADER, the two reserved fields stay zero
	copy(h[0:2], magic[:])
	binary.LittleEndian.PutUint32(h[2:6], uint32(Size(e.width, e.height)))
	binary.LittleEndian.PutUint32(h[10:14], PixelOffset)

	// BITMAPINFOHEADER, compression, image size, resolution and color
	// counts are all zero
	info := h[fileHeaderLen:]
	binary.LittleEndian.PutUint32(info[0:4], infoHeaderLen)
	binary.LittleEndian.PutUint32(info[4:8], uint32(e.width))
	binary.LittleEndian.PutUint32(info[8:12], uint32(e.height))
	binary.LittleEndian.PutUint16(info[12:14], 1)
	binary.LittleEndian.PutUint16(info[14:16], bitsPerPixel)

	_, err := e.w.Write(h[:])
	return err
}

func (e *encoder) writePalette() error {
	var p [paletteBytes]byte
	for i, c := range e.m.Palette {
		r, g, b, _ := c.RGBA()
		p[i*4+0] = byte(b >> 8)
		p[i*4+1] = byte(g >> 8)
		p[i*4+2] = byte(r >> 8)
	}
	_, err := e.w.Write(p[:])
	return err
}

func (e *encoder) writePixels() error {
	row := make([]byte, stride(e.width))
	for y := e.m.Rect.Max.Y - 1; y >= e.m.Rect.Min.Y; y-- {
		i := e.m.PixOffset(e.m.Rect.Min.X, y)
		// Padding bytes beyond the width are never touched so stay zero
		copy(row, e.m.Pix[i:i+e.width])
		if _, err := e.w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func checkShape(m *image.Paletted) error {
	w, h := m.Rect.Dx(), m.Rect.Dy()
	if h == 0 || w == 0 {
		return nil
	}
	if m.Stride < w || len(m.Pix) < (h-1)*m.Stride+w {
		return ErrShape
	}
	return nil
}

// Encode writes the paletted image m to w as an 8-bit indexed bitmap.
func Encode(w io.Writer, m *image.Paletted) error {
	if err := checkShape(m); err != nil {
		return err
	}
	if len(m.Palette) > paletteLen {
		return errTooManyColors
	}

	e := encoder{
		w:      w,
		m:      m,
		width:  m.Rect.Dx(),
		height: m.Rect.Dy(),
	}

	if err := e.writeHeaders(); err != nil {
		return err
	}
	if err := e.writePalette(); err != nil {
		return err
	}
	return e.writePixels()
}

// Marshal returns the complete bitmap file for m
func Marshal(m *image.Paletted) ([]byte, error) {
	b := bytes.NewBuffer(make([]byte, 0, Size(m.Rect.Dx(), m.Rect.Dy())))
	if err := Encode(b, m); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
