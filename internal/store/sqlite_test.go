package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanaland/lumen/internal/quota"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBlobs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetBlob(ctx, "history")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutBlob(ctx, "history", []byte(`[1]`)))
	require.NoError(t, s.PutBlob(ctx, "history", []byte(`[1,2]`)))

	got, err := s.GetBlob(ctx, "history")
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(got))
}

func TestBlobsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lumen.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.PutBlob(ctx, "image_overrides", []byte(`{"TAROT_0":"x"}`)))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetBlob(ctx, "image_overrides")
	require.NoError(t, err)
	assert.Equal(t, `{"TAROT_0":"x"}`, string(got))
}

func TestSQLiteProfiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetProfile(ctx, "nobody")
	assert.ErrorIs(t, err, quota.ErrProfileNotFound)
	_, err = s.TryIncrement(ctx, "nobody", 10)
	assert.ErrorIs(t, err, quota.ErrProfileNotFound)
	assert.ErrorIs(t, s.Decrement(ctx, "nobody"), quota.ErrProfileNotFound)

	require.NoError(t, s.UpsertProfile(ctx, quota.Profile{UserID: "u", UsageCount: 9}))

	p, err := s.TryIncrement(ctx, "u", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, p.UsageCount)

	p, err = s.TryIncrement(ctx, "u", 10)
	assert.ErrorIs(t, err, quota.ErrUsageLimitExceeded)
	assert.Equal(t, 10, p.UsageCount)

	require.NoError(t, s.Decrement(ctx, "u"))
	p, err = s.GetProfile(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 9, p.UsageCount)
	assert.False(t, p.Unlimited)
}

func TestSQLiteUnlimitedProfile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertProfile(ctx, quota.Profile{UserID: "vip", UsageCount: 40, Unlimited: true}))

	p, err := s.TryIncrement(ctx, "vip", 10)
	require.NoError(t, err)
	assert.True(t, p.Unlimited)
	assert.Equal(t, 40, p.UsageCount)
}

func TestSQLiteDecrementFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertProfile(ctx, quota.Profile{UserID: "u"}))

	require.NoError(t, s.Decrement(ctx, "u"))
	p, err := s.GetProfile(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 0, p.UsageCount)
}

func TestSQLiteReserveUnderContention(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertProfile(ctx, quota.Profile{UserID: "u"}))
	g := quota.NewGate(s, 10, nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Reserve(ctx, "u"); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, granted)
	p, err := s.GetProfile(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 10, p.UsageCount)
}
