package quota

import (
	"context"
	"sync"
)

// MemoryProfiles is an in-process ProfileStore
type MemoryProfiles struct {
	mu       sync.Mutex
	profiles map[string]Profile
}

// NewMemoryProfiles creates a store seeded with profiles
func NewMemoryProfiles(profiles ...Profile) *MemoryProfiles {
	m := &MemoryProfiles{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		m.profiles[p.UserID] = p
	}
	return m
}

// UpsertProfile creates or replaces a profile
func (m *MemoryProfiles) UpsertProfile(ctx context.Context, p Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
	return nil
}

func (m *MemoryProfiles) GetProfile(ctx context.Context, userID string) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	return p, nil
}

func (m *MemoryProfiles) TryIncrement(ctx context.Context, userID string, limit int) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	if p.Unlimited {
		return p, nil
	}
	if p.UsageCount >= limit {
		return p, ErrUsageLimitExceeded
	}
	p.UsageCount++
	m.profiles[userID] = p
	return p, nil
}

func (m *MemoryProfiles) Decrement(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return ErrProfileNotFound
	}
	if p.UsageCount > 0 {
		p.UsageCount--
	}
	m.profiles[userID] = p
	return nil
}
