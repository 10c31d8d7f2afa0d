package config

import (
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/bodgit/acep/chunk"
	"github.com/bodgit/acep/palette"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(ioutil.Discard)
	return l
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, ioutil.WriteFile(path, []byte(`
hardware_profile = "waveshare_73"
dithering_method = "stucki"
saturation = 1.5
server_ip = "192.168.1.50"
output = "cache/latest_dithered.bmp"
`), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "waveshare_73", f.HardwareProfile)
	assert.Equal(t, "192.168.1.50", f.ServerIP)
	assert.Equal(t, "cache/latest_dithered.bmp", f.Output)

	opts, err := f.Options(palette.NewRegistry(), discard())
	require.NoError(t, err)
	assert.Equal(t, 800, opts.Profile.Width)
	assert.Equal(t, 480, opts.Profile.Height)
	assert.Equal(t, "stucki", opts.Method.String())
	assert.Equal(t, 1.5, opts.Saturation)
	assert.Equal(t, palette.Strict, opts.Palette.Name())
	assert.Equal(t, chunk.DefaultSize, opts.ChunkSize)
}

func TestDefaults(t *testing.T) {
	f, err := Load("")
	require.NoError(t, err)

	opts, err := f.Options(palette.NewRegistry(), discard())
	require.NoError(t, err)
	assert.Equal(t, palette.Generic, opts.Profile.Name)
	assert.Equal(t, 600, opts.Profile.Width)
	assert.Equal(t, 448, opts.Profile.Height)
	assert.Equal(t, "floyd_steinberg", opts.Method.String())
	assert.Equal(t, 1.0, opts.Saturation)
	assert.Equal(t, palette.DefaultInitCommand, opts.Profile.InitCommand)
}

func TestGenericResolution(t *testing.T) {
	f, err := Parse([]byte("display_width = 400\ndisplay_height = 300\npalette = \"soft\"\n"))
	require.NoError(t, err)

	opts, err := f.Options(palette.NewRegistry(), discard())
	require.NoError(t, err)
	assert.Equal(t, 400, opts.Profile.Width)
	assert.Equal(t, 300, opts.Profile.Height)
	assert.Equal(t, palette.Soft, opts.Palette.Name())

	// Named panels ignore the override
	f.HardwareProfile = palette.Waveshare565
	opts, err = f.Options(palette.NewRegistry(), discard())
	require.NoError(t, err)
	assert.Equal(t, 600, opts.Profile.Width)
}

func TestUnknownMethodFallsBack(t *testing.T) {
	f := File{DitheringMethod: "atkinson"}
	opts, err := f.Options(palette.NewRegistry(), discard())
	require.NoError(t, err)
	assert.Equal(t, "floyd_steinberg", opts.Method.String())
	assert.Equal(t, "floyd_steinberg", opts.Profile.Method)
}

func TestUnknownTags(t *testing.T) {
	var ce *palette.ConfigurationError

	_, err := File{HardwareProfile: "kindle"}.Options(palette.NewRegistry(), discard())
	assert.True(t, errors.As(err, &ce))

	_, err = File{Palette: "sepia"}.Options(palette.NewRegistry(), discard())
	assert.True(t, errors.As(err, &ce))
}

func TestParseError(t *testing.T) {
	_, err := Parse([]byte("hardware_profile = "))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
