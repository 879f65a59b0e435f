package media_test

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
	"github.com/vasiliy-maslov/art-gallery/internal/media"
)

func pngOf(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestLocalStore_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := media.NewLocalStore(dir, "/media/")
	require.NoError(t, err)

	src, err := store.Save(pngOf(t, 600, 400))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(src, "/media/"), src)
	assert.True(t, strings.HasSuffix(src, ".jpg"), src)

	name := strings.TrimPrefix(src, "/media/")
	thumb, err := imaging.Open(filepath.Join(dir, "thumb", name))
	require.NoError(t, err)
	assert.Equal(t, 300, thumb.Bounds().Dx())
	assert.Equal(t, 200, thumb.Bounds().Dy())

	require.NoError(t, store.Delete(src))
	_, err = os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Delete("https://cdn.example.com/other.jpg"))
}

func TestLocalStore_RejectsNonImages(t *testing.T) {
	store, err := media.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)

	_, err = store.Save(strings.NewReader("definitely not a picture"))
	assert.ErrorIs(t, err, media.ErrInvalidImage)
}
