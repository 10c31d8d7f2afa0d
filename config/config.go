// Package config reads the TOML configuration file and resolves it against
// the palette registry.
package config

import (
	"fmt"
	"io/ioutil"

	"github.com/bodgit/acep"
	"github.com/bodgit/acep/chunk"
	"github.com/bodgit/acep/dither"
	"github.com/bodgit/acep/palette"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
)

// File mirrors the configuration file. Empty values fall back to the
// hardware profile or package defaults.
type File struct {
	HardwareProfile string   `toml:"hardware_profile"`
	Palette         string   `toml:"palette"`
	DitheringMethod string   `toml:"dithering_method"`
	Saturation      *float64 `toml:"saturation"`
	DisplayWidth    int      `toml:"display_width"`
	DisplayHeight   int      `toml:"display_height"`
	InitCommand     string   `toml:"init_command"`
	ChunkSize       int      `toml:"chunk_size"`
	ServerIP        string   `toml:"server_ip"`
	Output          string   `toml:"output"`
	Database        string   `toml:"database"`
}

// Load reads and parses the configuration file at path. An empty path
// returns the defaults.
func Load(path string) (File, error) {
	if path == "" {
		return File{}, nil
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return Parse(b)
}

// Parse parses a TOML document
func Parse(b []byte) (File, error) {
	var f File
	if err := toml.Unmarshal(b, &f); err != nil {
		return File{}, fmt.Errorf("config: %w", err)
	}
	return f, nil
}

// Options resolves the file against r. Unknown hardware or palette tags are
// an error, an unknown dithering method is logged and replaced with the
// default.
func (f File) Options(r *palette.Registry, logger *logrus.Logger) (acep.Options, error) {
	tag := f.HardwareProfile
	if tag == "" {
		tag = palette.Generic
	}
	profile, err := r.LookupProfile(tag)
	if err != nil {
		return acep.Options{}, err
	}

	// Only the generic profile has a configurable resolution, the others
	// are fixed by the panel
	if profile.Name == palette.Generic {
		if f.DisplayWidth > 0 {
			profile.Width = f.DisplayWidth
		}
		if f.DisplayHeight > 0 {
			profile.Height = f.DisplayHeight
		}
	}
	if f.Palette != "" {
		profile.Palette = f.Palette
	}
	if f.InitCommand != "" {
		profile.InitCommand = f.InitCommand
	}

	p, err := r.Lookup(profile.Palette)
	if err != nil {
		return acep.Options{}, err
	}

	name := f.DitheringMethod
	if name == "" {
		name = profile.Method
	}
	method, ok := dither.ParseMethod(name)
	if !ok {
		logger.WithField("method", name).Warnf("Unknown dithering method, using %s", method)
	}
	profile.Method = method.String()

	saturation := 1.0
	if f.Saturation != nil {
		saturation = *f.Saturation
	}

	size := f.ChunkSize
	if size <= 0 {
		size = chunk.DefaultSize
	}

	return acep.Options{
		Profile:    profile,
		Palette:    p,
		Method:     method,
		Saturation: saturation,
		ChunkSize:  size,
	}, nil
}
