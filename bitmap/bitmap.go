/*
Package bitmap implements an 8-bit indexed Windows bitmap encoder matching the
layout expected by the panel firmware and embedded viewer.

The file is a 14 byte file header, a 40 byte BITMAPINFOHEADER, a 256 entry
palette of 4 byte (blue, green, red, reserved) quads, zero-filled beyond the
colours actually used, and then one byte per pixel. Rows are stored bottom row
first and each row is padded with zeroes to a multiple of 4 bytes. All fields
are little-endian. Anything else, such as top-down rows or a short palette, is
rejected by the firmware.
*/
package bitmap

const (
	fileHeaderLen = 14
	infoHeaderLen = 40
	paletteLen    = 256
	paletteBytes  = paletteLen * 4
	bitsPerPixel  = 8

	// PixelOffset is where the pixel data starts in the file
	PixelOffset = fileHeaderLen + infoHeaderLen + paletteBytes
)

var magic = [2]byte{'B', 'M'}

func stride(width int) int {
	return (width*bitsPerPixel + 31) / 32 * 4
}

// Size returns the total file size for an image of the given dimensions
func Size(width, height int) int {
	return PixelOffset + stride(width)*height
}
