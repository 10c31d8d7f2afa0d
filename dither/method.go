package dither

import (
	"fmt"
	"strings"
)

// Method selects how a pixel is mapped to the palette. The set of methods is
// closed: None, Bayer and ErrorDiffusion.
type Method interface {
	fmt.Stringer
	method()
}

// None maps each pixel to its nearest palette colour with no error
// propagation.
type None struct{}

func (None) method() {}

func (None) String() string { return "none" }

// Bayer is ordered dithering with a Size by Size threshold matrix. Size must
// be a power of two.
type Bayer struct {
	Size int
}

func (Bayer) method() {}

func (b Bayer) String() string { return fmt.Sprintf("bayer%d", b.Size) }

// ErrorDiffusion propagates the quantization error of each pixel to its
// unprocessed neighbours using Kernel.
type ErrorDiffusion struct {
	Kernel Kernel
}

func (ErrorDiffusion) method() {}

func (e ErrorDiffusion) String() string { return e.Kernel.Name }

// Tap is one neighbour of an error diffusion kernel. The share of the error
// it receives is Weight divided by the kernel divisor.
type Tap struct {
	DX, DY int
	Weight int
}

// Kernel is an error diffusion matrix. Taps only ever point ahead of or below
// the current pixel.
type Kernel struct {
	Name    string
	Divisor int
	Taps    []Tap
}

// Published kernels
var (
	FloydSteinberg = Kernel{
		Name:    "floyd_steinberg",
		Divisor: 16,
		Taps: []Tap{
			{1, 0, 7},
			{-1, 1, 3}, {0, 1, 5}, {1, 1, 1},
		},
	}
	JarvisJudiceNinke = Kernel{
		Name:    "jarvis",
		Divisor: 48,
		Taps: []Tap{
			{1, 0, 7}, {2, 0, 5},
			{-2, 1, 3}, {-1, 1, 5}, {0, 1, 7}, {1, 1, 5}, {2, 1, 3},
			{-2, 2, 1}, {-1, 2, 3}, {0, 2, 5}, {1, 2, 3}, {2, 2, 1},
		},
	}
	Stucki = Kernel{
		Name:    "stucki",
		Divisor: 42,
		Taps: []Tap{
			{1, 0, 8}, {2, 0, 4},
			{-2, 1, 2}, {-1, 1, 4}, {0, 1, 8}, {1, 1, 4}, {2, 1, 2},
			{-2, 2, 1}, {-1, 2, 2}, {0, 2, 4}, {1, 2, 2}, {2, 2, 1},
		},
	}
	Burkes = Kernel{
		Name:    "burkes",
		Divisor: 32,
		Taps: []Tap{
			{1, 0, 8}, {2, 0, 4},
			{-2, 1, 2}, {-1, 1, 4}, {0, 1, 8}, {1, 1, 4}, {2, 1, 2},
		},
	}
	Sierra3 = Kernel{
		Name:    "sierra3",
		Divisor: 32,
		Taps: []Tap{
			{1, 0, 5}, {2, 0, 3},
			{-2, 1, 2}, {-1, 1, 4}, {0, 1, 5}, {1, 1, 4}, {2, 1, 2},
			{-1, 2, 2}, {0, 2, 3}, {1, 2, 2},
		},
	}
)

// DefaultMethod is used whenever a method name isn't recognised
var DefaultMethod Method = ErrorDiffusion{FloydSteinberg}

var methods = map[string]Method{
	"none":            None{},
	"floyd_steinberg": ErrorDiffusion{FloydSteinberg},
	"bayer2":          Bayer{2},
	"bayer4":          Bayer{4},
	"stucki":          ErrorDiffusion{Stucki},
	"jarvis":          ErrorDiffusion{JarvisJudiceNinke},
	"burkes":          ErrorDiffusion{Burkes},
	"sierra3":         ErrorDiffusion{Sierra3},
}

// ParseMethod returns the method for name. Unknown names fall back to
// DefaultMethod; the second return value reports whether name was known.
func ParseMethod(name string) (Method, bool) {
	if m, ok := methods[strings.ToLower(strings.TrimSpace(name))]; ok {
		return m, true
	}
	return DefaultMethod, false
}

// Names returns the recognised method names in a stable order
func Names() []string {
	return []string{"none", "floyd_steinberg", "bayer2", "bayer4", "stucki", "jarvis", "burkes", "sierra3"}
}
