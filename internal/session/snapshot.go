package session

import (
	"slices"

	"github.com/arcanaland/lumen/internal/deck"
	"github.com/arcanaland/lumen/internal/oracle"
)

// Snapshot is a consistent copy of a machine's state
type Snapshot struct {
	Phase       Phase            `json:"phase"`
	Deck        deck.Variant     `json:"deck,omitempty"`
	TargetCount int              `json:"targetCount"`
	Question    string           `json:"question,omitempty"`
	Intent      oracle.Intent    `json:"intent,omitempty"`
	Spread      deck.Spread      `json:"spread,omitempty"`
	Cards       []deck.DrawnCard `json:"cards"`
	Remaining   int              `json:"remaining"`
	Reading     *oracle.Reading  `json:"reading,omitempty"`
	Fallback    bool             `json:"fallback"`
	Processing  bool             `json:"processing"`
	DrawLocked  bool             `json:"drawLocked"`
	Revealed    bool             `json:"revealComplete"`
	HistoryID   string           `json:"historyId,omitempty"`
}

// Snapshot returns the current state
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// snapshot copies the state. Caller holds mu.
func (m *Machine) snapshot() Snapshot {
	s := Snapshot{
		Phase:       m.phase,
		Deck:        m.variant,
		TargetCount: m.targetCount,
		Question:    m.question,
		Intent:      m.intent,
		Spread:      m.spread,
		Cards:       slices.Clone(m.drawn),
		Fallback:    m.fallback,
		Processing:  m.processing,
		DrawLocked:  m.drawLocked,
		HistoryID:   m.historyID,
	}
	if s.Cards == nil {
		s.Cards = []deck.DrawnCard{}
	}
	if m.count > 0 {
		s.TargetCount = m.count
	}
	if m.phase == Drawing {
		s.Remaining = len(m.pile) - len(m.drawn)
	}
	if m.reading != nil {
		r := *m.reading
		s.Reading = &r
	}
	if m.gate != nil {
		s.Revealed = m.gate.Signalled(inputReveal)
	}
	return s
}

// HasAllImages reports whether every drawn card has art
func (s Snapshot) HasAllImages() bool {
	for _, c := range s.Cards {
		if c.Image == "" {
			return false
		}
	}
	return true
}
