package imagecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/arcanaland/lumen/internal/deck"
	"github.com/arcanaland/lumen/internal/store"
)

// OverridesKey is the blob key of the persisted override map
const OverridesKey = "image_overrides"

// DefaultCapacity bounds the override store when no capacity is configured
const DefaultCapacity = 512

// OverrideKey returns the store key of a card. Orientation is not part of it.
func OverrideKey(v deck.Variant, cardID int) string {
	return string(v) + "_" + strconv.Itoa(cardID)
}

// OverrideStore maps generated card art by card identity. It is loaded once,
// bounded by least-recent use and rewritten wholesale on every change.
type OverrideStore struct {
	mu     sync.Mutex
	blobs  store.Blobs
	refs   *lru.Cache[string, string]
	logger *slog.Logger
}

// LoadOverrides reads the override map from blobs. A missing or corrupt blob
// yields an empty store.
func LoadOverrides(ctx context.Context, blobs store.Blobs, capacity int, logger *slog.Logger) (*OverrideStore, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}

	refs, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, fmt.Errorf("create override cache: %w", err)
	}

	s := &OverrideStore{blobs: blobs, refs: refs, logger: logger}

	raw, err := blobs.GetBlob(ctx, OverridesKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return s, nil
	case err != nil:
		logger.Error("image override read failed, starting empty", slog.Any("error", err))
		return s, nil
	}

	var entries map[string]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		logger.Error("image override blob corrupt, starting empty", slog.Any("error", err))
		return s, nil
	}
	for k, ref := range entries {
		if ref != "" {
			refs.Add(k, ref)
		}
	}

	return s, nil
}

// Get returns the stored reference for a card and marks it recently used
func (s *OverrideStore) Get(v deck.Variant, cardID int) (string, bool) {
	return s.refs.Get(OverrideKey(v, cardID))
}

// Put stores ref for a card and persists the whole map
func (s *OverrideStore) Put(ctx context.Context, v deck.Variant, cardID int, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refs.Add(OverrideKey(v, cardID), ref)

	keys := s.refs.Keys()
	entries := make(map[string]string, len(keys))
	for _, k := range keys {
		if r, ok := s.refs.Peek(k); ok {
			entries[k] = r
		}
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode image overrides: %w", err)
	}
	return s.blobs.PutBlob(ctx, OverridesKey, raw)
}

// Len returns the number of stored references
func (s *OverrideStore) Len() int {
	return s.refs.Len()
}
