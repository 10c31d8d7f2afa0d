/*
Package acep is a library for preparing images for colour electrophoretic
(ACEP) panels and delivering them to the panel controller.

An image is fitted to the panel resolution, dithered onto the hardware
palette, then either written out as an 8-bit indexed bitmap for local serving
or packed into ASCII chunks and pushed to the controller over HTTP.
*/
package acep

import (
	"context"
	"fmt"
	"image"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/bodgit/acep/bitmap"
	"github.com/bodgit/acep/chunk"
	"github.com/bodgit/acep/dither"
	"github.com/bodgit/acep/palette"
	"github.com/bodgit/acep/upload"
	"github.com/sirupsen/logrus"
)

// Options is the resolved configuration for one panel. It is read-only for
// the duration of a render. Note a Saturation of 0 renders in greyscale.
type Options struct {
	Profile    palette.Profile
	Palette    *palette.Palette
	Method     dither.Method
	Saturation float64
	ChunkSize  int
}

// Panel renders and uploads images for a single hardware profile.
type Panel struct {
	opts    Options
	history *History
	client  *upload.Client
	logger  *logrus.Logger
}

// New returns a Panel. history may be nil in which case nothing is recorded.
// A nil method in opts uses dither.DefaultMethod.
func New(opts Options, history *History, logger *logrus.Logger) *Panel {
	if opts.Method == nil {
		opts.Method = dither.DefaultMethod
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(ioutil.Discard)
	}
	return &Panel{
		opts:    opts,
		history: history,
		client:  upload.NewClient(logger),
		logger:  logger,
	}
}

// Options returns the panel configuration
func (p *Panel) Options() Options {
	return p.opts
}

// Client returns the upload client so callers can adjust timeouts or swap
// the transport
func (p *Panel) Client() *upload.Client {
	return p.client
}

// Render fits m to the panel resolution and dithers it onto the palette.
func (p *Panel) Render(m image.Image) (*image.Paletted, error) {
	fitted := Fit(m, p.opts.Profile.Width, p.opts.Profile.Height)
	q, err := dither.Quantize(fitted, p.opts.Palette, p.opts.Method, p.opts.Saturation)
	if err != nil {
		return nil, err
	}
	p.logger.WithFields(logrus.Fields{
		"profile": p.opts.Profile.Name,
		"palette": p.opts.Palette.Name(),
		"method":  p.opts.Method,
		"width":   q.Rect.Dx(),
		"height":  q.Rect.Dy(),
	}).Debug("Rendered image")
	return q, nil
}

// WriteBitmap writes q to file as an indexed bitmap. The file is written to
// a uniquely named temporary file first so a reader never sees a partial
// image and concurrent writers never share one.
func (p *Panel) WriteBitmap(file string, q *image.Paletted) ([]byte, error) {
	b, err := bitmap.Marshal(q)
	if err != nil {
		return nil, err
	}

	f, err := ioutil.TempFile(filepath.Dir(file), "."+filepath.Base(file)+".*.tmp")
	if err != nil {
		return nil, err
	}
	tmp := f.Name()

	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return nil, err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, file); err != nil {
		os.Remove(tmp)
		return nil, err
	}

	p.logger.WithField("file", file).WithField("bytes", len(b)).Debug("Wrote bitmap")
	return b, nil
}

// Convert loads src, renders it and writes the bitmap to dst. The render is
// recorded in the history, if there is one, and its id returned.
func (p *Panel) Convert(src, dst string) (*image.Paletted, int64, error) {
	m, err := LoadImage(src)
	if err != nil {
		return nil, 0, err
	}

	q, err := p.Render(m)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", src, err)
	}

	b, err := p.WriteBitmap(dst, q)
	if err != nil {
		return nil, 0, err
	}

	var id int64
	if p.history != nil {
		if id, err = p.history.AddRender(p.opts, q.Rect, b); err != nil {
			return nil, 0, err
		}
	}
	return q, id, nil
}

// Push packs q and uploads it to the controller at host. A failed upload is
// recorded against render when there is a history.
func (p *Panel) Push(ctx context.Context, host string, q *image.Paletted, render int64) (*upload.Result, error) {
	chunks, err := chunk.Pack(q, p.opts.ChunkSize)
	if err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"host":   host,
		"chunks": len(chunks),
	}).Info("Uploading image")

	res, err := p.client.Upload(ctx, host, p.opts.Profile.InitCommand, chunks)

	if p.history != nil && render != 0 && res != nil {
		if herr := p.history.AddUpload(render, host, res, err); herr != nil {
			p.logger.WithError(herr).Warn("Unable to record upload")
		}
	}
	return res, err
}
