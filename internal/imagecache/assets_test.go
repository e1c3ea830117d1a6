package imagecache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanaland/lumen/internal/deck"
	"github.com/arcanaland/lumen/internal/oracle"
)

// flakyGenerator fails the first failFirst calls and every prompt naming poison
type flakyGenerator struct {
	mu        sync.Mutex
	failFirst int
	poison    string
	calls     int
}

func (g *flakyGenerator) GenerateImage(ctx context.Context, prompt string) (*oracle.Image, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.calls <= g.failFirst {
		return nil, errors.New("rate limited")
	}
	if g.poison != "" && strings.Contains(prompt, " "+g.poison+",") {
		return nil, errors.New("refused")
	}
	return &oracle.Image{Data: []byte("png"), MIMEType: "image/png"}, nil
}

func batchOpts(t *testing.T) BatchOptions {
	return BatchOptions{OutDir: t.TempDir(), MaxRetries: 2, InitialInterval: time.Millisecond}
}

func TestGenerateAssets(t *testing.T) {
	d, err := deck.Load(deck.Lenormand)
	require.NoError(t, err)
	first := d.Cards()[0]

	opts := batchOpts(t)
	gen := &flakyGenerator{failFirst: 2}

	res, err := GenerateAssets(context.Background(), gen, d, opts)
	require.NoError(t, err)
	assert.Len(t, res.Generated, d.Len())
	assert.Empty(t, res.Failed)
	assert.Equal(t, d.Len()+2, gen.calls)

	data, err := os.ReadFile(filepath.Join(opts.OutDir, AssetPath(deck.Lenormand, first.Name)))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	again, err := GenerateAssets(context.Background(), gen, d, opts)
	require.NoError(t, err)
	assert.Empty(t, again.Generated)
	assert.Len(t, again.Skipped, d.Len())
}

func TestGenerateAssetsRecordsFailures(t *testing.T) {
	d, err := deck.Load(deck.Lenormand)
	require.NoError(t, err)
	victim := d.Cards()[3]

	gen := &flakyGenerator{poison: victim.Name}
	res, err := GenerateAssets(context.Background(), gen, d, batchOpts(t))
	require.NoError(t, err)

	assert.Len(t, res.Generated, d.Len()-1)
	require.Len(t, res.Failed, 1)
	assert.Contains(t, res.Failed, AssetPath(deck.Lenormand, victim.Name))
	assert.Equal(t, d.Len()+2, gen.calls, "one first try plus two retries for the refused card")
}

func TestGenerateAssetsStopsWithoutBackend(t *testing.T) {
	d, err := deck.Load(deck.Tarot)
	require.NoError(t, err)

	res, err := GenerateAssets(context.Background(), oracle.New(nil, nil), d, batchOpts(t))
	assert.ErrorIs(t, err, oracle.ErrNoBackend)
	assert.Empty(t, res.Generated)
}
