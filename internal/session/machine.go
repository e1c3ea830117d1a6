// Package session drives one reading from deck selection to the final
// reading. A Machine owns the draw pile, the drawn cards and the reading; the
// asynchronous oracle and image results are merged back into it under its lock.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/arcanaland/lumen/internal/card"
	"github.com/arcanaland/lumen/internal/deck"
	"github.com/arcanaland/lumen/internal/history"
	"github.com/arcanaland/lumen/internal/metrics"
	"github.com/arcanaland/lumen/internal/oracle"
	"github.com/arcanaland/lumen/internal/quota"
)

// Oracle classifies questions and produces readings. Both calls must fall
// back instead of failing.
type Oracle interface {
	ClassifyIntent(ctx context.Context, question string) oracle.Intent
	GenerateReading(ctx context.Context, req oracle.ReadingRequest) (oracle.Reading, bool)
}

// Images resolves card art
type Images interface {
	Resolve(ctx context.Context, v deck.Variant, cardID int, name string, inverted bool) string
	Cached(v deck.Variant, cardID int) string
}

// Quota reserves and releases paid generations
type Quota interface {
	Reserve(ctx context.Context, userID string) (quota.Reservation, error)
	Release(ctx context.Context, r quota.Reservation) error
}

// History records completed sessions
type History interface {
	Append(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Options configures a Machine
type Options struct {
	Decks   map[deck.Variant]*deck.Deck
	Oracle  Oracle
	Images  Images
	Quota   Quota
	History History

	Locale card.Locale

	// TargetCount overrides the variant's default card count when non-zero
	TargetCount int

	InvertRatio float64
	LockWindow  time.Duration
	SettleDelay time.Duration

	ClassifyTimeout time.Duration
	ReadingTimeout  time.Duration
	ImageTimeout    time.Duration

	// Rand drives shuffles and orientation rolls. Nil seeds from the clock.
	Rand   *rand.Rand
	Logger *slog.Logger
}

// Machine is the state of one client's reading session
type Machine struct {
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	rng   *rand.Rand
	phase Phase

	// gen identifies the current session; async results carrying an older
	// value are dropped.
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc

	variant     deck.Variant
	locale      card.Locale
	targetCount int

	question    string
	intent      oracle.Intent
	count       int
	spread      deck.Spread
	pile        []card.Card
	drawn       []deck.DrawnCard
	reading     *oracle.Reading
	fallback    bool
	historyID   string
	processing  bool
	drawLocked  bool
	gate        *Barrier
	reservation quota.Reservation

	changed chan struct{}
}

// New creates a machine in the LOBBY phase
func New(opts Options) *Machine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	locale := opts.Locale
	if locale == "" {
		locale = card.LocaleEN
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Machine{
		opts:    opts,
		logger:  logger.With(slog.String("component", "session")),
		rng:     rng,
		phase:   Lobby,
		ctx:     ctx,
		cancel:  cancel,
		locale:  locale,
		changed: make(chan struct{}),
	}
}

// Close abandons any in-flight work. A reservation that has not bought a
// generated reading is released, as with Back.
func (m *Machine) Close() {
	m.mu.Lock()
	res := m.reset()
	m.cancel()
	m.notify()
	m.mu.Unlock()

	m.release(res)
}

// notify wakes every Changed waiter. Caller holds mu.
func (m *Machine) notify() {
	close(m.changed)
	m.changed = make(chan struct{})
}

// setPhase moves to p. Caller holds mu.
func (m *Machine) setPhase(p Phase) {
	if m.phase == p {
		return
	}
	m.logger.Debug("phase transition", slog.String("from", string(m.phase)), slog.String("to", string(p)))
	m.phase = p
	metrics.PhaseTransition(string(p))
}

// reset clears the session and starts a new generation, abandoning every
// in-flight call of the previous one. Caller holds mu.
func (m *Machine) reset() quota.Reservation {
	m.gen++
	m.cancel()
	m.ctx, m.cancel = context.WithCancel(context.Background())

	released := quota.Reservation{}
	if m.reading == nil || m.fallback {
		released = m.reservation
	}
	m.reservation = quota.Reservation{}

	m.question = ""
	m.intent = ""
	m.count = 0
	m.spread = ""
	m.pile = nil
	m.drawn = nil
	m.reading = nil
	m.fallback = false
	m.historyID = ""
	m.processing = false
	m.drawLocked = false
	m.gate = nil

	return released
}

// release returns an unused reservation outside the lock
func (m *Machine) release(r quota.Reservation) {
	if !r.Held || m.opts.Quota == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.opts.Quota.Release(ctx, r); err != nil {
		m.logger.Error("quota release failed", slog.String("user_id", r.UserID), slog.Any("error", err))
	}
}

func (m *Machine) deckFor(v deck.Variant) (*deck.Deck, error) {
	d, ok := m.opts.Decks[v]
	if !ok {
		return nil, fmt.Errorf("%w: %q", deck.ErrUnknownVariant, v)
	}
	return d, nil
}

// SelectDeck picks the deck variant and moves LOBBY -> INQUIRY
func (m *Machine) SelectDeck(v deck.Variant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != Lobby {
		return ErrWrongPhase
	}
	d, err := m.deckFor(v)
	if err != nil {
		return err
	}

	m.reset()
	m.variant = v
	m.targetCount = d.Config.DefaultCount
	if m.opts.TargetCount > 0 {
		m.targetCount = m.opts.TargetCount
	}
	m.setPhase(Inquiry)
	m.notify()
	return nil
}

// SetTargetCount sets how many cards the next inquiry draws
func (m *Machine) SetTargetCount(n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != Inquiry {
		return ErrWrongPhase
	}
	if n < 1 || n > deck.MaxCount {
		return ErrInvalidCount
	}
	m.targetCount = n
	m.notify()
	return nil
}

// SetLocale sets the language readings are requested in
func (m *Machine) SetLocale(l card.Locale) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locale = l
	m.notify()
}

// OpenLibrary moves LOBBY -> LIBRARY
func (m *Machine) OpenLibrary() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != Lobby {
		return ErrWrongPhase
	}
	m.setPhase(Library)
	m.notify()
	return nil
}

// CloseLibrary moves LIBRARY -> LOBBY
func (m *Machine) CloseLibrary() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != Library {
		return ErrWrongPhase
	}
	m.setPhase(Lobby)
	m.notify()
	return nil
}

// Submit starts the ritual for question. The quota is reserved before any
// state changes; on success the deck is shuffled, the card count fixed and
// the phase moves to SHUFFLING. Intent classification runs in the
// background and never blocks the transition.
func (m *Machine) Submit(ctx context.Context, userID, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrEmptyQuestion
	}
	if userID == "" {
		return ErrNotSignedIn
	}

	m.mu.Lock()
	if m.phase != Inquiry {
		m.mu.Unlock()
		return ErrWrongPhase
	}
	if m.processing {
		m.mu.Unlock()
		return ErrBusy
	}
	m.processing = true
	gen := m.gen
	m.notify()
	m.mu.Unlock()

	var (
		res quota.Reservation
		err error
	)
	if m.opts.Quota != nil {
		res, err = m.opts.Quota.Reserve(ctx, userID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		if err == nil {
			go m.release(res)
		}
		return ErrWrongPhase
	}
	m.processing = false

	if err != nil {
		m.notify()
		if errors.Is(err, quota.ErrUsageLimitExceeded) {
			return ErrQuotaExhausted
		}
		return err
	}

	d, err := m.deckFor(m.variant)
	if err != nil {
		m.notify()
		go m.release(res)
		return err
	}

	m.gen++
	gen = m.gen
	m.reservation = res
	m.question = question
	m.intent = oracle.IntentGeneral
	m.count = m.targetCount
	m.spread, _ = deck.SpreadFor(m.count)
	m.pile = deck.Shuffle(d.Cards(), m.rng)
	m.drawn = make([]deck.DrawnCard, 0, m.count)
	m.setPhase(Shuffling)
	m.notify()

	if m.opts.Oracle != nil {
		go m.classify(m.ctx, gen, question)
	}

	return nil
}

func (m *Machine) classify(ctx context.Context, gen uint64, question string) {
	if m.opts.ClassifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.ClassifyTimeout)
		defer cancel()
	}

	intent := m.opts.Oracle.ClassifyIntent(ctx, question)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.intent = intent
	m.notify()
}

// CompleteShuffle moves SHUFFLING -> CUTTING
func (m *Machine) CompleteShuffle() error {
	return m.advance(Shuffling, Cutting)
}

// CompleteCut moves CUTTING -> DRAWING
func (m *Machine) CompleteCut() error {
	return m.advance(Cutting, Drawing)
}

func (m *Machine) advance(from, to Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != from {
		return ErrWrongPhase
	}
	m.setPhase(to)
	m.notify()
	return nil
}

// Candidates returns the draw pile minus the cards already drawn
func (m *Machine) Candidates() []card.Card {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != Drawing {
		return nil
	}
	out := make([]card.Card, 0, len(m.pile))
	for _, c := range m.pile {
		if !m.isDrawn(c.ID) {
			out = append(out, c)
		}
	}
	return out
}

func (m *Machine) isDrawn(id int) bool {
	return slices.ContainsFunc(m.drawn, func(d deck.DrawnCard) bool { return d.Card.ID == id })
}

// Confirm draws the card with cardID. Confirmations within the lock window
// of a previous one are rejected with ErrDrawLocked. Drawing the last card
// moves the session to REVEALING.
func (m *Machine) Confirm(cardID int) (deck.DrawnCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != Drawing || len(m.drawn) >= m.count {
		return deck.DrawnCard{}, ErrWrongPhase
	}
	if m.drawLocked {
		return deck.DrawnCard{}, ErrDrawLocked
	}

	idx := slices.IndexFunc(m.pile, func(c card.Card) bool { return c.ID == cardID })
	if idx < 0 || m.isDrawn(cardID) {
		return deck.DrawnCard{}, fmt.Errorf("%w: %d", ErrUnknownCard, cardID)
	}
	c := m.pile[idx]

	pos, err := deck.PositionFor(m.count, len(m.drawn))
	if err != nil {
		return deck.DrawnCard{}, err
	}

	d, err := m.deckFor(m.variant)
	if err != nil {
		return deck.DrawnCard{}, err
	}

	drawn := deck.DrawnCard{
		Card:     c,
		Position: pos,
		Inverted: d.Config.SupportsInversion && m.rng.Float64() < m.opts.InvertRatio,
	}
	if m.opts.Images != nil {
		drawn.Image = m.opts.Images.Cached(m.variant, c.ID)
	}
	m.drawn = append(m.drawn, drawn)

	m.drawLocked = true
	gen := m.gen
	time.AfterFunc(m.opts.LockWindow, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.gen {
			return
		}
		m.drawLocked = false
		m.notify()
	})

	if len(m.drawn) == m.count {
		m.reveal(d)
	}

	m.notify()
	return drawn, nil
}

// reveal enters REVEALING and starts the reading and the missing images.
// Caller holds mu.
func (m *Machine) reveal(d *deck.Deck) {
	m.setPhase(Revealing)
	m.gate = NewBarrier(inputReading, inputReveal)

	gen, ctx, gate := m.gen, m.ctx, m.gate
	cards := slices.Clone(m.drawn)

	if m.opts.Oracle != nil {
		req := oracle.ReadingRequest{
			Question: m.question,
			Cards:    cards,
			Intent:   m.intent,
			Spread:   m.spread,
			Variant:  m.variant,
			Locale:   m.locale,
		}
		go m.generateReading(ctx, gen, req)
	} else {
		m.reading = ptr(oracle.FallbackReading())
		m.fallback = true
		gate.Signal(inputReading)
	}

	if m.opts.Images != nil {
		for i, c := range cards {
			if c.Image == "" {
				go m.resolveImage(ctx, gen, i, d.Variant, c)
			}
		}
	}

	go m.awaitGate(ctx, gen, gate)
}

func (m *Machine) generateReading(ctx context.Context, gen uint64, req oracle.ReadingRequest) {
	if m.opts.ReadingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.ReadingTimeout)
		defer cancel()
	}

	r, ok := m.opts.Oracle.GenerateReading(ctx, req)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.reading = &r
	m.fallback = !ok
	gate := m.gate
	m.notify()
	m.mu.Unlock()

	gate.Signal(inputReading)
}

// resolveImage writes the result back by the index captured when the
// request was issued.
func (m *Machine) resolveImage(ctx context.Context, gen uint64, idx int, v deck.Variant, c deck.DrawnCard) {
	if m.opts.ImageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.ImageTimeout)
		defer cancel()
	}

	ref := m.opts.Images.Resolve(ctx, v, c.Card.ID, c.Card.Name, c.Inverted)
	if ref == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || idx >= len(m.drawn) {
		return
	}
	m.drawn[idx].Image = ref
	m.notify()
}

func (m *Machine) awaitGate(ctx context.Context, gen uint64, gate *Barrier) {
	if err := gate.Wait(ctx); err != nil {
		return
	}

	settle := time.NewTimer(m.opts.SettleDelay)
	defer settle.Stop()
	select {
	case <-settle.C:
	case <-ctx.Done():
		return
	}

	m.finish(gen)
}

// finish enters READING and records the session
func (m *Machine) finish(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.phase != Revealing {
		m.mu.Unlock()
		return
	}

	m.setPhase(Reading)
	metrics.ReadingCompleted(string(m.variant), m.fallback)

	res := m.reservation
	m.reservation = quota.Reservation{}
	fallback := m.fallback

	entry := history.Entry{
		Question: m.question,
		Intent:   m.intent,
		Deck:     m.variant,
		Cards:    slices.Clone(m.drawn),
		Reading:  *m.reading,
	}
	m.notify()
	m.mu.Unlock()

	if fallback {
		m.release(res)
	} else if res.Held {
		m.logger.Info("reading delivered", slog.String("user_id", res.UserID), slog.String("deck", string(entry.Deck)))
	}

	if m.opts.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	saved, err := m.opts.History.Append(ctx, entry)
	if err != nil {
		m.logger.Error("history append failed", slog.Any("error", err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen == m.gen {
		m.historyID = saved.ID
		m.notify()
	}
}

// RevealComplete signals that the reveal animation has finished
func (m *Machine) RevealComplete() error {
	m.mu.Lock()
	if m.phase != Revealing || m.gate == nil {
		m.mu.Unlock()
		return ErrWrongPhase
	}
	gate := m.gate
	m.notify()
	m.mu.Unlock()

	gate.Signal(inputReveal)
	return nil
}

// AskAgain moves READING -> LOBBY, clearing the session
func (m *Machine) AskAgain() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != Reading {
		return ErrWrongPhase
	}
	m.reset()
	m.setPhase(Lobby)
	m.notify()
	return nil
}

// Back abandons the session and returns to LOBBY. A reservation that has not
// bought a generated reading is released.
func (m *Machine) Back() error {
	m.mu.Lock()
	if m.phase == Lobby || m.phase == Library {
		m.mu.Unlock()
		return ErrWrongPhase
	}
	res := m.reset()
	m.setPhase(Lobby)
	m.notify()
	m.mu.Unlock()

	m.release(res)
	return nil
}

// Recall shows a stored session in READING without drawing again. Missing
// images are filled from the generated art cache.
func (m *Machine) Recall(e history.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.phase {
	case Lobby, Library, Reading:
	default:
		return ErrWrongPhase
	}

	m.reset()

	cards := slices.Clone(e.Cards)
	if m.opts.Images != nil {
		for i := range cards {
			if cards[i].Image == "" {
				cards[i].Image = m.opts.Images.Cached(e.Deck, cards[i].Card.ID)
			}
		}
	}

	reading := e.Reading
	m.variant = e.Deck
	m.question = e.Question
	m.intent = e.Intent
	m.count = len(cards)
	m.spread, _ = deck.SpreadFor(m.count)
	m.drawn = cards
	m.reading = &reading
	m.historyID = e.ID
	m.setPhase(Reading)
	m.notify()
	return nil
}

// Changed returns a channel closed at the next state change
func (m *Machine) Changed() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changed
}

// WaitFor blocks until pred holds for the current snapshot or ctx is done
func (m *Machine) WaitFor(ctx context.Context, pred func(Snapshot) bool) (Snapshot, error) {
	for {
		m.mu.Lock()
		s := m.snapshot()
		ch := m.changed
		m.mu.Unlock()

		if pred(s) {
			return s, nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
