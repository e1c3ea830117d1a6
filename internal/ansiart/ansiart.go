// Package ansiart renders card art as truecolor half-block terminal art.
package ansiart

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"
)

// Card art is 2:3, so a 32x24 cell grid keeps roughly the right shape in a
// terminal whose cells are twice as tall as they are wide.
const (
	DefaultWidth  = 32
	DefaultHeight = 24
)

// Load decodes an image reference: a data URI, an http(s) URL or a file path
func Load(ctx context.Context, ref string) (image.Image, error) {
	data, err := read(ctx, ref)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}
	return img, nil
}

func read(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		comma := strings.IndexByte(ref, ',')
		if comma < 0 || !strings.HasSuffix(ref[:comma], ";base64") {
			return nil, fmt.Errorf("unsupported data URI")
		}
		return base64.StdEncoding.DecodeString(ref[comma+1:])

	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch image: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to fetch image: %s", resp.Status)
		}
		return io.ReadAll(resp.Body)

	default:
		return os.ReadFile(ref)
	}
}

// Render converts img to ANSI art of width x height cells. Inverted cards
// are rotated by 180 degrees.
func Render(img image.Image, width, height int, inverted bool) string {
	// Doubled for half-block characters
	resized := resize.Resize(uint(width*2), uint(height*2), img, resize.Lanczos3)
	if inverted {
		resized = rotate180(resized)
	}

	var buffer strings.Builder
	for y := 0; y < height*2; y += 2 {
		for x := 0; x < width*2; x += 2 {
			col1, _ := colorful.MakeColor(colorAt(resized, x, y))
			col2, _ := colorful.MakeColor(colorAt(resized, x+1, y))
			col3, _ := colorful.MakeColor(colorAt(resized, x, y+1))
			col4, _ := colorful.MakeColor(colorAt(resized, x+1, y+1))

			// Top pixels as foreground, bottom pixels as background
			fg := toRGBA(averageColor(col1, col2))
			bg := toRGBA(averageColor(col3, col4))

			fmt.Fprintf(&buffer, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀\x1b[0m",
				fg.R, fg.G, fg.B, bg.R, bg.G, bg.B)
		}
		buffer.WriteString("\n")
	}

	return buffer.String()
}

// RenderCached renders ref, keeping the result in cacheDir keyed by the
// reference and orientation
func RenderCached(ctx context.Context, cacheDir, ref string, inverted bool) (string, error) {
	name := fmt.Sprintf("%x", md5.Sum([]byte(ref)))
	if inverted {
		name += "-r"
	}
	cachePath := filepath.Join(cacheDir, name+".ansi")

	if data, err := os.ReadFile(cachePath); err == nil {
		return string(data), nil
	}

	img, err := Load(ctx, ref)
	if err != nil {
		return "", err
	}
	art := Render(img, DefaultWidth, DefaultHeight, inverted)

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return art, fmt.Errorf("failed to create ANSI cache directory: %v", err)
	}
	if err := os.WriteFile(cachePath, []byte(art), 0644); err != nil {
		return art, fmt.Errorf("failed to write ANSI art to file: %v", err)
	}

	return art, nil
}

func rotate180(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(b.Max.X-1-x, b.Max.Y-1-y, img.At(x, y))
		}
	}
	return out
}

func colorAt(img image.Image, x, y int) color.Color {
	bounds := img.Bounds()
	if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
		return img.At(x, y)
	}
	return color.RGBA{0, 0, 0, 255}
}

func averageColor(colors ...colorful.Color) colorful.Color {
	var r, g, b float64
	for _, c := range colors {
		r += c.R
		g += c.G
		b += c.B
	}
	count := float64(len(colors))
	return colorful.Color{R: r / count, G: g / count, B: b / count}
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// StripAnsi removes ANSI escape sequences from a string
func StripAnsi(s string) string {
	var result strings.Builder
	inEscape := false
	for _, c := range s {
		if inEscape {
			if c == 'm' {
				inEscape = false
			}
		} else if c == '\033' {
			inEscape = true
		} else {
			result.WriteRune(c)
		}
	}
	return result.String()
}

// VisibleWidth returns the number of terminal cells s occupies
func VisibleWidth(s string) int {
	return len([]rune(StripAnsi(s)))
}
