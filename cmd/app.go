package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/arcanaland/lumen/internal/card"
	"github.com/arcanaland/lumen/internal/config"
	"github.com/arcanaland/lumen/internal/deck"
	"github.com/arcanaland/lumen/internal/history"
	"github.com/arcanaland/lumen/internal/imagecache"
	"github.com/arcanaland/lumen/internal/oracle"
	"github.com/arcanaland/lumen/internal/quota"
	"github.com/arcanaland/lumen/internal/session"
	"github.com/arcanaland/lumen/internal/store"
)

// app holds the components shared by the commands
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	decks    map[deck.Variant]*deck.Deck
	db       *store.SQLiteStore
	profiles quota.ProfileStore
	gate     *quota.Gate
	oracle   *oracle.Oracle
	images   *imagecache.Cache
	history  *history.Log

	// generates is false when no generation backend is configured
	generates bool

	closers []io.Closer
}

// openApp loads the config and wires storage, quota, oracle and image cache
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	a.decks, err = deck.LoadAll(config.GetDeckLibraryPath())
	if err != nil {
		return nil, err
	}

	a.db, err = store.NewSQLiteStore(config.GetDatabasePath())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.db)

	switch cfg.Quota.Backend {
	case "", "sqlite":
		a.profiles = a.db
	case "redis":
		r, err := store.NewRedisProfiles(cfg.Quota.RedisAddr, cfg.Quota.RedisPassword, cfg.Quota.RedisDB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, r)
		a.profiles = r
	case "memory":
		a.profiles = quota.NewMemoryProfiles()
	default:
		a.Close()
		return nil, fmt.Errorf("unknown quota backend %q", cfg.Quota.Backend)
	}
	a.gate = quota.NewGate(a.profiles, cfg.Quota.Limit, logger)

	var backend oracle.Backend
	if key := cfg.Oracle.APIKey(); key != "" {
		g, err := oracle.NewGeminiBackend(ctx, oracle.GeminiConfig{
			APIKey:     key,
			TextModel:  cfg.Oracle.TextModel,
			ImageModel: cfg.Oracle.ImageModel,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		backend = g
	} else {
		logger.Warn("no API key configured, readings will use the fallback", slog.String("env", cfg.Oracle.APIKeyEnv))
	}
	a.oracle = oracle.New(backend, logger)
	a.generates = backend != nil

	overrides, err := imagecache.LoadOverrides(ctx, a.db, cfg.Cache.OverrideCapacity, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	configs := make(map[deck.Variant]deck.VariantConfig, len(a.decks))
	for v, d := range a.decks {
		configs[v] = d.Config
	}

	var gen imagecache.Generator
	if a.generates {
		gen = a.oracle
	}
	a.images = imagecache.New(imagecache.Options{
		Prober:    imagecache.NewProber(cfg.AssetRoot),
		Overrides: overrides,
		Generator: gen,
		Configs:   configs,
		Timeout:   cfg.Oracle.ImageTimeout,
		Logger:    logger,
	})

	a.history = history.Load(ctx, a.db, cfg.Session.HistoryCap, logger)

	return a, nil
}

// Close releases the stores
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", slog.Any("error", err))
		}
	}
	a.closers = nil
}

func (a *app) locale() card.Locale {
	return card.ParseLocale(a.cfg.Locale)
}

// variant returns the variant named by flag, or the configured default deck
func (a *app) variant(flag string) (deck.Variant, error) {
	if flag == "" {
		flag = a.cfg.DefaultDeck
	}
	return deck.ParseVariant(flag)
}

// newMachine creates a session machine backed by the app's components
func (a *app) newMachine() *session.Machine {
	s := a.cfg.Session
	return session.New(session.Options{
		Decks:           a.decks,
		Oracle:          a.oracle,
		Images:          a.images,
		Quota:           a.gate,
		History:         a.history,
		Locale:          a.locale(),
		TargetCount:     s.TargetCount,
		InvertRatio:     s.InvertRatio,
		LockWindow:      s.LockWindow,
		SettleDelay:     s.SettleDelay,
		ClassifyTimeout: a.cfg.Oracle.ClassifyTimeout,
		ReadingTimeout:  a.cfg.Oracle.ReadingTimeout,
		ImageTimeout:    a.cfg.Oracle.ImageTimeout,
		Rand:            rand.New(rand.NewSource(time.Now().UnixNano())),
		Logger:          a.logger,
	})
}
