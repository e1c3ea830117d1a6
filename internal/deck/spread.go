package deck

import (
	"fmt"

	"github.com/arcanaland/lumen/internal/card"
)

// MaxCount is the largest number of cards a spread can hold
const MaxCount = 3

// Spread is the named layout implied by the number of cards drawn
type Spread string

const (
	OneCard   Spread = "ONE_CARD"
	TwoCard   Spread = "TWO_CARD"
	ThreeCard Spread = "THREE_CARD"
)

// Position labels a drawn card within its spread
type Position string

const (
	Single    Position = "Single"
	Past      Position = "Past"
	Present   Position = "Present"
	Future    Position = "Future"
	Situation Position = "Situation"
	Challenge Position = "Challenge"
)

var positions = map[int][]Position{
	1: {Single},
	2: {Situation, Challenge},
	3: {Past, Present, Future},
}

// SpreadFor returns the spread shape for a target card count
func SpreadFor(count int) (Spread, error) {
	switch count {
	case 1:
		return OneCard, nil
	case 2:
		return TwoCard, nil
	case 3:
		return ThreeCard, nil
	}
	return "", fmt.Errorf("invalid card count: %d (expected 1-%d)", count, MaxCount)
}

// PositionFor returns the position label of the idx-th card drawn for a target count.
// It is a pure function of its arguments.
func PositionFor(count, idx int) (Position, error) {
	labels, ok := positions[count]
	if !ok || idx < 0 || idx >= len(labels) {
		return "", fmt.Errorf("no position for card %d of %d", idx, count)
	}
	return labels[idx], nil
}

// DrawnCard is a card confirmed from the draw pile during a session.
// Image is filled in asynchronously once resolved.
type DrawnCard struct {
	Card     card.Card `json:"card"`
	Inverted bool      `json:"inverted"`
	Position Position  `json:"position"`
	Image    string    `json:"image,omitempty"`
}

// Orientation returns the orientation word used in prompts
func (d DrawnCard) Orientation() string {
	if d.Inverted {
		return "Reversed"
	}
	return "Upright"
}
