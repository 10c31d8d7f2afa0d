package acep

import (
	"errors"
	"image"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bodgit/acep/dither"
	"github.com/bodgit/acep/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "history.db")
	h, err := NewHistory(file)
	require.NoError(t, err)

	opts := testOptions(t, 600, 448)
	opts.Method = dither.Bayer{Size: 4}

	// The stored size is the raster's, not the profile's
	frame := image.Rect(0, 0, 320, 240)

	first, err := h.AddRender(opts, frame, []byte("first"))
	require.NoError(t, err)
	second, err := h.AddRender(opts, frame, []byte("second"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	dup, err := h.AddRender(opts, frame, []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, first, dup)

	renders, err := h.Renders(10)
	require.NoError(t, err)
	require.Len(t, renders, 2)
	assert.Equal(t, second, renders[0].ID)
	assert.Equal(t, "generic", renders[1].Profile)
	assert.Equal(t, "strict", renders[1].Palette)
	assert.Equal(t, "bayer4", renders[1].Method)
	assert.Equal(t, 320, renders[1].Width)
	assert.Equal(t, 240, renders[1].Height)
	assert.Len(t, renders[1].SHA1, 40)

	b, err := h.Bitmap(first)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), b)

	b, err = h.Bitmap(first + second + 100)
	require.NoError(t, err)
	assert.Nil(t, b)

	require.NoError(t, h.AddUpload(first, "192.168.1.50", &upload.Result{State: upload.Done, Sent: 3, Total: 3}, nil))
	require.NoError(t, h.AddUpload(first, "192.168.1.50", &upload.Result{State: upload.Done, Sent: 3, Total: 3, ShowErr: errors.New("refresh")}, nil))
	require.NoError(t, h.AddUpload(first, "192.168.1.50", &upload.Result{State: upload.Failed, Sent: 1, Total: 3}, errors.New("timeout")))

	uploads, err := h.Uploads(first)
	require.NoError(t, err)
	require.Len(t, uploads, 3)
	assert.True(t, uploads[0].OK)
	assert.Equal(t, "done", uploads[0].Message)
	assert.True(t, uploads[1].OK)
	assert.Equal(t, "refresh", uploads[1].Message)
	assert.False(t, uploads[2].OK)
	assert.Equal(t, 1, uploads[2].Sent)
	assert.Equal(t, "timeout", uploads[2].Message)

	// Foreign keys are enforced
	assert.Error(t, h.AddUpload(first+second+100, "192.168.1.50", &upload.Result{State: upload.Done}, nil))

	require.NoError(t, h.Close())

	// Reopening keeps everything
	h, err = NewHistory(file)
	require.NoError(t, err)
	defer h.Close()

	renders, err = h.Renders(1)
	require.NoError(t, err)
	require.Len(t, renders, 1)
	assert.Equal(t, second, renders[0].ID)
}

func TestHistoryConcurrent(t *testing.T) {
	h, err := NewHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer h.Close()

	opts := testOptions(t, 600, 448)

	var wg sync.WaitGroup
	ids := make([]int64, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := h.AddRender(opts, image.Rect(0, 0, 600, 448), []byte("same"))
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}
