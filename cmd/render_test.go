package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arcanaland/lumen/internal/ansiart"
)

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"empty", "", 20, []string{""}},
		{"fits", "The cards speak", 20, []string{"The cards speak"}},
		{"wraps", "trust the timing of your life", 12, []string{"trust the", "timing of", "your life"}},
		{"long word kept whole", "supercalifragilistic ok", 10, []string{"supercalifragilistic", "ok"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wrapText(tt.text, tt.width))
		})
	}
}

func TestCardArtPlaceholder(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	for _, ref := range []string{"", "data:image/png;base64,bm90IGFuIGltYWdl"} {
		art := cardArt(context.Background(), ref, false)
		lines := strings.Split(art, "\n")
		assert.Len(t, lines, ansiart.DefaultHeight)
		for _, l := range lines {
			assert.Equal(t, ansiart.DefaultWidth, ansiart.VisibleWidth(l))
		}
	}
}
