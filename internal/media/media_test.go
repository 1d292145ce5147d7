package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestSaveImageDownscalesWideImages(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, "/media/images", 0, 0)
	require.NoError(t, err)

	path, err := s.SaveImage(pngOf(t, 2160, 400))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, "/media/images/"))
	assert.True(t, strings.HasSuffix(path, ".jpg"))

	saved, err := imaging.Open(filepath.Join(dir, filepath.Base(path)))
	require.NoError(t, err)
	assert.Equal(t, 1080, saved.Bounds().Dx())
	assert.Equal(t, 200, saved.Bounds().Dy())
}

func TestSaveImageKeepsNarrowImages(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, "/m", 1080, 75)
	require.NoError(t, err)

	path, err := s.SaveImage(pngOf(t, 300, 120))
	require.NoError(t, err)
	saved, err := imaging.Open(filepath.Join(dir, filepath.Base(path)))
	require.NoError(t, err)
	assert.Equal(t, 300, saved.Bounds().Dx())
}

func TestSaveImageRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, "/m", 1080, 75)
	require.NoError(t, err)

	_, err = s.SaveImage(strings.NewReader("definitely not an image"))
	assert.ErrorIs(t, err, ErrBadImage)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRemoveImage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, "/m", 1080, 75)
	require.NoError(t, err)

	path, err := s.SaveImage(pngOf(t, 10, 10))
	require.NoError(t, err)
	require.NoError(t, s.RemoveImage(path))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.NoError(t, s.RemoveImage(path), "removing twice is fine")
	assert.Error(t, s.RemoveImage("/m/../config.yaml"))
	assert.Error(t, s.RemoveImage("/elsewhere/x.jpg"))
}
