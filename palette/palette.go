/*
Package palette implements the registry of hardware colour palettes and
display profiles for colour electrophoretic panels.

Two 7 colour palettes are always present. "strict" uses the exact primaries
the panel controller expects (black, white, green, blue, red, yellow and
orange) and avoids banding on thin text and graphics. "soft" uses the colours
the panel actually shows, which gives a more pleasant dither of muted tones.
The palette index is what is sent to the panel so the order of the entries is
fixed by the hardware and identical across palettes.
*/
package palette

import (
	"errors"
	"fmt"
	"image/color"
	"sort"
)

const (
	// MinColors is the smallest palette that can be dithered to
	MinColors = 2
	// MaxColors is the largest palette that fits the 3-bit transport encoding
	MaxColors = 8
)

// Palette tags
const (
	Strict   = "strict"
	Soft     = "soft"
	Spectra6 = "spectra6"
)

// ConfigurationError is returned when a palette or hardware tag is unknown.
type ConfigurationError struct {
	Kind string
	Tag  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("palette: unknown %s %q", e.Kind, e.Tag)
}

// Palette is an ordered, immutable list of colours addressed by index.
type Palette struct {
	name   string
	colors []color.RGBA
}

// New returns a palette named name containing colors in index order.
func New(name string, colors ...color.RGBA) (*Palette, error) {
	if len(colors) < MinColors || len(colors) > MaxColors {
		return nil, fmt.Errorf("palette: %q has %d colors, need %d to %d", name, len(colors), MinColors, MaxColors)
	}
	p := &Palette{
		name:   name,
		colors: make([]color.RGBA, len(colors)),
	}
	for i, c := range colors {
		c.A = 0xff
		p.colors[i] = c
	}
	return p, nil
}

func mustNew(name string, colors ...color.RGBA) *Palette {
	p, err := New(name, colors...)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the tag the palette was registered with
func (p *Palette) Name() string {
	return p.name
}

// Len returns the number of colours
func (p *Palette) Len() int {
	return len(p.colors)
}

// At returns the colour at index i
func (p *Palette) At(i int) color.RGBA {
	return p.colors[i]
}

// Colors returns a copy of the palette as a color.Palette suitable for
// image.NewPaletted.
func (p *Palette) Colors() color.Palette {
	cp := make(color.Palette, len(p.colors))
	for i, c := range p.colors {
		cp[i] = c
	}
	return cp
}

// Index returns the index of the colour nearest to r, g, b by squared
// Euclidean distance. Ties resolve to the lowest index.
func (p *Palette) Index(r, g, b uint8) int {
	best, bestSum := 0, int32(1<<31-1)
	for i, c := range p.colors {
		dr := int32(r) - int32(c.R)
		dg := int32(g) - int32(c.G)
		db := int32(b) - int32(c.B)
		if sum := dr*dr + dg*dg + db*db; sum < bestSum {
			best, bestSum = i, sum
		}
	}
	return best
}

// IndexFloat is Index for error-adjusted values that have already been
// clamped to [0, 255].
func (p *Palette) IndexFloat(r, g, b float64) int {
	best, bestSum := 0, float64(1<<62)
	for i, c := range p.colors {
		dr := r - float64(c.R)
		dg := g - float64(c.G)
		db := b - float64(c.B)
		if sum := dr*dr + dg*dg + db*db; sum < bestSum {
			best, bestSum = i, sum
		}
	}
	return best
}

// Registry holds the named palettes and profiles. It is built once and is
// safe for concurrent use as nothing mutates it afterwards.
type Registry struct {
	palettes map[string]*Palette
	profiles map[string]Profile
}

var errDuplicate = errors.New("palette: duplicate tag")

// NewRegistry returns a registry populated with the built-in palettes and
// hardware profiles.
func NewRegistry() *Registry {
	r := &Registry{
		palettes: make(map[string]*Palette),
		profiles: make(map[string]Profile),
	}
	for _, p := range builtinPalettes() {
		r.palettes[p.name] = p
	}
	for _, p := range builtinProfiles {
		r.profiles[p.Name] = p
	}
	return r
}

// With returns a new registry holding the palettes of r plus extra. r itself
// is left untouched so it stays safe to share.
func (r *Registry) With(extra ...*Palette) (*Registry, error) {
	n := &Registry{
		palettes: make(map[string]*Palette, len(r.palettes)+len(extra)),
		profiles: r.profiles,
	}
	for tag, p := range r.palettes {
		n.palettes[tag] = p
	}
	for _, p := range extra {
		if _, ok := n.palettes[p.name]; ok {
			return nil, fmt.Errorf("%w: %q", errDuplicate, p.name)
		}
		n.palettes[p.name] = p
	}
	return n, nil
}

// Lookup returns the palette registered as tag.
func (r *Registry) Lookup(tag string) (*Palette, error) {
	p, ok := r.palettes[tag]
	if !ok {
		return nil, &ConfigurationError{Kind: "palette", Tag: tag}
	}
	return p, nil
}

// Tags returns the sorted palette tags
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.palettes))
	for t := range r.palettes {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func builtinPalettes() []*Palette {
	return []*Palette{
		mustNew(Strict,
			color.RGBA{0x00, 0x00, 0x00, 0xff}, // Black
			color.RGBA{0xff, 0xff, 0xff, 0xff}, // White
			color.RGBA{0x00, 0xff, 0x00, 0xff}, // Green
			color.RGBA{0x00, 0x00, 0xff, 0xff}, // Blue
			color.RGBA{0xff, 0x00, 0x00, 0xff}, // Red
			color.RGBA{0xff, 0xff, 0x00, 0xff}, // Yellow
			color.RGBA{0xff, 0x80, 0x00, 0xff}, // Orange
		),
		mustNew(Soft,
			color.RGBA{0x39, 0x30, 0x39, 0xff},
			color.RGBA{0xff, 0xff, 0xff, 0xff},
			color.RGBA{0x3a, 0x5b, 0x46, 0xff},
			color.RGBA{0x3d, 0x3b, 0x5e, 0xff},
			color.RGBA{0x9c, 0x48, 0x4b, 0xff},
			color.RGBA{0xd0, 0xbe, 0x47, 0xff},
			color.RGBA{0xb1, 0x6a, 0x49, 0xff},
		),
		mustNew(Spectra6,
			color.RGBA{0x00, 0x00, 0x00, 0xff},
			color.RGBA{0xff, 0xff, 0xff, 0xff},
			color.RGBA{0xff, 0xff, 0x00, 0xff},
			color.RGBA{0xff, 0x00, 0x00, 0xff},
			color.RGBA{0x00, 0x00, 0xff, 0xff},
			color.RGBA{0x00, 0xff, 0x00, 0xff},
		),
	}
}
