package imagecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/arcanaland/lumen/internal/deck"
	"github.com/arcanaland/lumen/internal/oracle"
)

// DefaultMaxRetries bounds retries per card when pre-generating assets
const DefaultMaxRetries = 5

// BatchOptions configures GenerateAssets
type BatchOptions struct {
	OutDir     string
	MaxRetries uint64
	// InitialInterval is the first retry delay; it doubles per retry.
	InitialInterval time.Duration
	// Force regenerates assets that already exist.
	Force  bool
	Logger *slog.Logger
}

// BatchResult counts what GenerateAssets did
type BatchResult struct {
	Generated []string
	Skipped   []string
	Failed    map[string]error
}

// GenerateAssets writes upright art for every card of d into the static
// asset layout, retrying each card with exponential backoff. A card that
// still fails is recorded and the batch moves on.
func GenerateAssets(ctx context.Context, gen Generator, d *deck.Deck, opts BatchOptions) (BatchResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 2 * time.Second
	}

	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return BatchResult{}, fmt.Errorf("error creating asset directory: %w", err)
	}

	res := BatchResult{Failed: make(map[string]error)}
	for _, c := range d.Cards() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		name := AssetPath(d.Variant, c.Name)
		path := filepath.Join(opts.OutDir, name)
		if _, err := os.Stat(path); err == nil && !opts.Force {
			res.Skipped = append(res.Skipped, name)
			continue
		}

		prompt := oracle.CardPrompt(d.Config.Prompt, c.Name, false, d.Config.SupportsInversion)

		b := backoff.NewExponentialBackOff()
		b.InitialInterval = opts.InitialInterval
		b.MaxElapsedTime = 0

		attempt := 0
		img, err := backoff.RetryWithData(func() (*oracle.Image, error) {
			attempt++
			img, err := gen.GenerateImage(ctx, prompt)
			if errors.Is(err, oracle.ErrNoBackend) {
				return nil, backoff.Permanent(err)
			}
			return img, err
		}, backoff.WithContext(backoff.WithMaxRetries(b, opts.MaxRetries), ctx))
		if err == nil {
			err = os.WriteFile(path, img.Data, 0644)
		}

		if err != nil {
			logger.Warn("asset generation failed",
				slog.String("asset", name),
				slog.Int("attempts", attempt),
				slog.String("error", err.Error()),
			)
			if errors.Is(err, oracle.ErrNoBackend) {
				return res, err
			}
			res.Failed[name] = err
			continue
		}

		logger.Info("asset generated", slog.String("asset", name), slog.Int("attempts", attempt))
		res.Generated = append(res.Generated, name)
	}

	return res, nil
}
