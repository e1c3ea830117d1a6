package ansiart

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red  = color.RGBA{255, 0, 0, 255}
	blue = color.RGBA{0, 0, 255, 255}
)

// splitImage is red on top and blue at the bottom
func splitImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if y < h/2 {
				img.Set(x, y, red)
			} else {
				img.Set(x, y, blue)
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRenderDimensions(t *testing.T) {
	art := Render(splitImage(20, 30), 8, 6, false)

	lines := strings.Split(strings.TrimSuffix(art, "\n"), "\n")
	require.Len(t, lines, 6)
	for _, line := range lines {
		assert.Equal(t, 8, VisibleWidth(line))
	}
}

func TestRotate180(t *testing.T) {
	rotated := rotate180(splitImage(4, 4))
	assert.Equal(t, color.RGBA(blue), rotated.At(0, 0))
	assert.Equal(t, color.RGBA(red), rotated.At(3, 3))
}

func TestLoadDataURI(t *testing.T) {
	data := encodePNG(t, splitImage(4, 4))
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)

	img, err := Load(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, err = Load(context.Background(), "data:image/png,raw")
	assert.Error(t, err)
}

func TestRenderCached(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "TAROT_The_Sun.png")
	require.NoError(t, os.WriteFile(file, encodePNG(t, splitImage(6, 9)), 0o644))

	cacheDir := filepath.Join(dir, "ansi")
	art, err := RenderCached(context.Background(), cacheDir, file, true)
	require.NoError(t, err)
	assert.NotEmpty(t, art)

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "-r.ansi"))

	require.NoError(t, os.Remove(file))
	again, err := RenderCached(context.Background(), cacheDir, file, true)
	require.NoError(t, err)
	assert.Equal(t, art, again)
}

func TestStripAnsi(t *testing.T) {
	assert.Equal(t, "▀▀", StripAnsi("\x1b[38;2;1;2;3m▀\x1b[0m\x1b[48;2;1;2;3m▀\x1b[0m"))
}
