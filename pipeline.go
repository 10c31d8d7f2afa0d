package acep

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultWorkers is the number of images converted concurrently by Batch
const DefaultWorkers = 4

// BitmapExt is appended to the source name of each converted image
const BitmapExt = ".bmp"

// DefaultOutDir is where Batch writes bitmaps, relative to the source
// directory, when no output directory is given
const DefaultOutDir = "dithered"

var errSameDir = errors.New("acep: output directory is the source directory")

func isImage(file string) bool {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".bmp", ".gif", ".jpeg", ".jpg", ".png", ".webp":
		return true
	default:
		return false
	}
}

func (p *Panel) findImages(ctx context.Context, base, outDir string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
			if info.Name()[0] == '.' && file != base {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if info.Mode().IsDir() {
				// Don't convert our own output
				if file == outDir {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal image file
			if !info.Mode().IsRegular() || !isImage(file) {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (p *Panel) imageWorker(ctx context.Context, in <-chan string, base, outDir string) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			rel, err := filepath.Rel(base, file)
			if err != nil {
				errc <- err
				return
			}

			// Keep the source extension so photo.png and photo.jpg don't
			// both become photo.bmp
			dst := filepath.Join(outDir, rel+BitmapExt)
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				errc <- err
				return
			}

			if _, _, err := p.Convert(file, dst); err != nil {
				errc <- err
				return
			}

			p.logger.WithFields(logrus.Fields{
				"source": file,
				"output": dst,
			}).Info("Converted image")

			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Batch converts every image under dir, writing bitmaps to the same relative
// path under outDir with BitmapExt appended, so photo.jpg becomes
// photo.jpg.bmp. An empty outDir means DefaultOutDir inside dir. The
// first error stops the batch.
func (p *Panel) Batch(dir, outDir string, workers int) error {
	base, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	if outDir == "" {
		outDir = filepath.Join(base, DefaultOutDir)
	}
	out, err := filepath.Abs(outDir)
	if err != nil {
		return err
	}
	if out == base {
		return errSameDir
	}

	if workers <= 0 {
		workers = DefaultWorkers
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	images, errc, err := p.findImages(ctx, base, out)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	for i := 0; i < workers; i++ {
		errc, err := p.imageWorker(ctx, images, base, out)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(errcList...)
}
