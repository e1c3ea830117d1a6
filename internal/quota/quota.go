// Package quota gates paid generations behind a per-user usage limit.
package quota

import (
	"context"
	"errors"
	"log/slog"

	"github.com/arcanaland/lumen/internal/metrics"
)

// DefaultLimit is the number of readings a metered user may request
const DefaultLimit = 10

var (
	// ErrUsageLimitExceeded is returned when a metered user has no uses left
	ErrUsageLimitExceeded = errors.New("usage limit exceeded")

	// ErrProfileNotFound is returned by a ProfileStore for an unknown user
	ErrProfileNotFound = errors.New("profile not found")
)

// Profile is the usage record of one user. The gate never creates profiles.
type Profile struct {
	UserID     string `json:"userId"`
	UsageCount int    `json:"usageCount"`
	Unlimited  bool   `json:"isUnlimited"`
}

// ProfileStore reads and conditionally updates profiles
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)

	// TryIncrement atomically adds one use if the profile is metered and below
	// limit. Unlimited profiles are returned unchanged. A metered profile at or
	// over limit yields ErrUsageLimitExceeded.
	TryIncrement(ctx context.Context, userID string, limit int) (Profile, error)

	// Decrement removes one use, never going below zero.
	Decrement(ctx context.Context, userID string) error
}

// Usage is the answer to "may this user start one more reading"
type Usage struct {
	CanUse    bool `json:"canUse"`
	Remaining int  `json:"remaining"`
	Unlimited bool `json:"isUnlimited"`
}

// Reservation is one use taken at submit time. Held is false when nothing
// was consumed (unlimited user, missing profile, store outage).
type Reservation struct {
	UserID string
	Held   bool
}

// Gate wraps a ProfileStore with the quota rules
type Gate struct {
	store  ProfileStore
	limit  int
	logger *slog.Logger
}

// NewGate creates a gate. A limit <= 0 uses DefaultLimit.
func NewGate(store ProfileStore, limit int, logger *slog.Logger) *Gate {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{store: store, limit: limit, logger: logger.With(slog.String("component", "quota"))}
}

// Limit returns the configured limit
func (g *Gate) Limit() int {
	return g.limit
}

// CheckUsage reports whether userID may proceed. A missing profile or a store
// error is treated as a fresh user.
func (g *Gate) CheckUsage(ctx context.Context, userID string) Usage {
	p, err := g.store.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrProfileNotFound) {
			g.logger.Warn("profile fetch failed, allowing", slog.String("user_id", userID), slog.Any("error", err))
		}
		return Usage{CanUse: true, Remaining: g.limit}
	}
	if p.Unlimited {
		return Usage{CanUse: true, Remaining: g.limit, Unlimited: true}
	}
	return Usage{
		CanUse:    p.UsageCount < g.limit,
		Remaining: max(0, g.limit-p.UsageCount),
	}
}

// IncrementUsage consumes one use. Unlimited profiles report success without
// change; a missing profile reports false.
func (g *Gate) IncrementUsage(ctx context.Context, userID string) (bool, error) {
	p, err := g.store.GetProfile(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if p.Unlimited {
		return true, nil
	}
	if p.UsageCount >= g.limit {
		return false, ErrUsageLimitExceeded
	}

	if _, err := g.store.TryIncrement(ctx, userID, g.limit); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Reserve takes one use in a single conditional update. Only
// ErrUsageLimitExceeded is returned; every other failure lets the user through.
func (g *Gate) Reserve(ctx context.Context, userID string) (Reservation, error) {
	p, err := g.store.TryIncrement(ctx, userID, g.limit)
	switch {
	case errors.Is(err, ErrUsageLimitExceeded):
		metrics.QuotaDenied()
		return Reservation{UserID: userID}, ErrUsageLimitExceeded
	case errors.Is(err, ErrProfileNotFound):
		return Reservation{UserID: userID}, nil
	case err != nil:
		g.logger.Warn("quota reserve failed, allowing", slog.String("user_id", userID), slog.Any("error", err))
		return Reservation{UserID: userID}, nil
	}

	return Reservation{UserID: userID, Held: !p.Unlimited}, nil
}

// Release returns a held reservation. Releasing an unheld reservation is a no-op.
func (g *Gate) Release(ctx context.Context, r Reservation) error {
	if !r.Held {
		return nil
	}
	return g.store.Decrement(ctx, r.UserID)
}
