package palette

import "sort"

// Hardware profile tags
const (
	Waveshare565 = "waveshare_565"
	Waveshare73  = "waveshare_73"
	SpectraE6    = "spectra_e6"
	Generic      = "generic"
)

// DefaultInitCommand is the initialisation token for the 5.65" ACEP family.
const DefaultInitCommand = "EPDz_"

// Profile describes a panel: its resolution, palette and default dither
// method name.
type Profile struct {
	Name        string
	Width       int
	Height      int
	Palette     string
	Method      string
	InitCommand string
}

var builtinProfiles = []Profile{
	{Waveshare565, 600, 448, Strict, "floyd_steinberg", DefaultInitCommand},
	{Waveshare73, 800, 480, Strict, "floyd_steinberg", DefaultInitCommand},
	{SpectraE6, 800, 480, Strict, "floyd_steinberg", DefaultInitCommand},
	// Width and height can be overridden from configuration
	{Generic, 600, 448, Strict, "floyd_steinberg", DefaultInitCommand},
}

// LookupProfile returns the hardware profile registered as tag.
func (r *Registry) LookupProfile(tag string) (Profile, error) {
	p, ok := r.profiles[tag]
	if !ok {
		return Profile{}, &ConfigurationError{Kind: "hardware profile", Tag: tag}
	}
	return p, nil
}

// Profiles returns all hardware profiles sorted by name
func (r *Registry) Profiles() []Profile {
	profiles := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles
}
