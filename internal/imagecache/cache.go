// Package imagecache resolves card art, generating it only when no static
// asset or previously generated image exists.
package imagecache

import (
	"context"
	"log/slog"
	"time"

	"github.com/arcanaland/lumen/internal/deck"
	"github.com/arcanaland/lumen/internal/metrics"
	"github.com/arcanaland/lumen/internal/oracle"
)

// Generator produces card art from a composed prompt
type Generator interface {
	GenerateImage(ctx context.Context, prompt string) (*oracle.Image, error)
}

// Options configures a Cache
type Options struct {
	Prober    AssetProber
	Overrides *OverrideStore
	Generator Generator

	// Configs holds the prompt style per variant. Variants missing here use
	// the built-in deck configuration.
	Configs map[deck.Variant]deck.VariantConfig

	// Timeout bounds a single generation call. Zero means no extra bound.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Cache resolves (variant, card) to an image reference
type Cache struct {
	prober    AssetProber
	overrides *OverrideStore
	gen       Generator
	configs   map[deck.Variant]deck.VariantConfig
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a cache
func New(opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		prober:    opts.Prober,
		overrides: opts.Overrides,
		gen:       opts.Generator,
		configs:   opts.Configs,
		timeout:   opts.Timeout,
		logger:    logger.With(slog.String("component", "imagecache")),
	}
}

func (c *Cache) config(v deck.Variant) deck.VariantConfig {
	if cfg, ok := c.configs[v]; ok {
		return cfg
	}
	cfg, _ := deck.Config(v)
	return cfg
}

// Resolve returns an image reference for a card, or "" when every tier
// failed. The static store is probed first, then generated overrides, and
// only then is art generated and remembered.
func (c *Cache) Resolve(ctx context.Context, v deck.Variant, cardID int, name string, inverted bool) string {
	if ref := c.static(ctx, v, name); ref != "" {
		metrics.ImageLookup("static")
		return ref
	}

	if ref := c.Cached(v, cardID); ref != "" {
		metrics.ImageLookup("override")
		return ref
	}

	if c.gen == nil {
		metrics.ImageLookup("miss")
		return ""
	}

	cfg := c.config(v)
	prompt := oracle.CardPrompt(cfg.Prompt, name, inverted, cfg.SupportsInversion)

	genCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	img, err := c.gen.GenerateImage(genCtx, prompt)
	if err != nil {
		metrics.ImageLookup("miss")
		c.logger.Warn("card art generation failed",
			slog.String("deck", string(v)),
			slog.Int("card_id", cardID),
			slog.Any("error", err),
		)
		return ""
	}

	ref := img.DataURI()
	if c.overrides != nil {
		if err := c.overrides.Put(ctx, v, cardID, ref); err != nil {
			c.logger.Error("persisting card art failed",
				slog.String("key", OverrideKey(v, cardID)),
				slog.Any("error", err),
			)
		}
	}

	metrics.ImageLookup("generated")
	return ref
}

// Lookup returns an existing reference without generating anything
func (c *Cache) Lookup(ctx context.Context, v deck.Variant, cardID int, name string) string {
	if ref := c.static(ctx, v, name); ref != "" {
		return ref
	}
	return c.Cached(v, cardID)
}

// Cached returns the generated override for a card without any I/O
func (c *Cache) Cached(v deck.Variant, cardID int) string {
	if c.overrides == nil {
		return ""
	}
	ref, _ := c.overrides.Get(v, cardID)
	return ref
}

func (c *Cache) static(ctx context.Context, v deck.Variant, name string) string {
	if c.prober == nil {
		return ""
	}
	ref, ok := c.prober.Probe(ctx, AssetPath(v, name))
	if !ok {
		return ""
	}
	return ref
}
