// Package history keeps the capped, newest-first log of completed readings.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/arcanaland/lumen/internal/deck"
	"github.com/arcanaland/lumen/internal/oracle"
	"github.com/arcanaland/lumen/internal/store"
)

// BlobKey is the blob the log is persisted under
const BlobKey = "history"

// DefaultCap is the number of entries kept when no cap is configured
const DefaultCap = 50

// ErrNotFound is returned for an unknown entry id
var ErrNotFound = errors.New("history entry not found")

// Entry is a completed session. Entries are immutable once appended.
type Entry struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"createdAt"`
	Question  string           `json:"question"`
	Intent    oracle.Intent    `json:"intent"`
	Deck      deck.Variant     `json:"deck"`
	Cards     []deck.DrawnCard `json:"cards"`
	Reading   oracle.Reading   `json:"reading"`
}

// Log is the persisted history
type Log struct {
	mu      sync.Mutex
	blobs   store.Blobs
	cap     int
	entries []Entry
	entropy *rand.Rand
	logger  *slog.Logger
}

// Load reads the log from blobs. A missing or corrupt blob yields an empty log.
func Load(ctx context.Context, blobs store.Blobs, capacity int, logger *slog.Logger) *Log {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &Log{
		blobs:   blobs,
		cap:     capacity,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  logger.With(slog.String("component", "history")),
	}

	raw, err := blobs.GetBlob(ctx, BlobKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return l
	case err != nil:
		l.logger.Error("history read failed, starting empty", slog.Any("error", err))
		return l
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		l.logger.Error("history blob corrupt, starting empty", slog.Any("error", err))
		return l
	}
	if len(entries) > l.cap {
		entries = entries[:l.cap]
	}
	l.entries = entries

	return l
}

func (l *Log) newID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), l.entropy).String()
}

// Append adds e as the newest entry, dropping the oldest beyond the cap, and
// persists the log. ID and CreatedAt are assigned when empty.
func (l *Log) Append(ctx context.Context, e Entry) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.ID == "" {
		e.ID = l.newID(e.CreatedAt)
	}
	e.Cards = append([]deck.DrawnCard(nil), e.Cards...)

	entries := make([]Entry, 0, min(len(l.entries)+1, l.cap))
	entries = append(entries, e)
	entries = append(entries, l.entries...)
	if len(entries) > l.cap {
		entries = entries[:l.cap]
	}
	l.entries = entries

	raw, err := json.Marshal(l.entries)
	if err != nil {
		return e, fmt.Errorf("encode history: %w", err)
	}
	if err := l.blobs.PutBlob(ctx, BlobKey, raw); err != nil {
		return e, fmt.Errorf("persist history: %w", err)
	}

	return e, nil
}

// List returns the entries, newest first
func (l *Log) List() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Get returns the entry with the given id
func (l *Log) Get(id string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Len returns the number of entries
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
