// Package oracle produces intents, readings and card art from a generation backend.
// Every failure is converted to a documented fallback at this boundary.
package oracle

import (
	"errors"
	"fmt"
	"strings"
)

// Intent is the closed set of question categories
type Intent string

const (
	IntentLove      Intent = "Love"
	IntentCareer    Intent = "Career"
	IntentHealth    Intent = "Health"
	IntentSpiritual Intent = "Spiritual"
	IntentGeneral   Intent = "General"
)

// Intents lists every category in prompt order
var Intents = []Intent{IntentLove, IntentCareer, IntentHealth, IntentSpiritual, IntentGeneral}

// ParseIntent maps s onto the closed set; anything unknown becomes General
func ParseIntent(s string) Intent {
	for _, i := range Intents {
		if string(i) == strings.TrimSpace(s) {
			return i
		}
	}
	return IntentGeneral
}

// Reading is a generated interpretation. It is atomic: either every field is
// present or the reading is not used.
type Reading struct {
	Summary     string   `json:"summary"`
	Keywords    []string `json:"keywords"`
	Analysis    string   `json:"analysis"`
	Advice      string   `json:"advice"`
	Affirmation string   `json:"affirmation"`
	LuckyColor  string   `json:"luckyColor"`
	LuckyNumber string   `json:"luckyNumber"`
	FlavorText  string   `json:"flavorText"`
}

var errIncompleteReading = errors.New("incomplete reading")

// Validate reports the first missing field
func (r Reading) Validate() error {
	fields := []struct {
		name, value string
	}{
		{"summary", r.Summary},
		{"analysis", r.Analysis},
		{"advice", r.Advice},
		{"affirmation", r.Affirmation},
		{"luckyColor", r.LuckyColor},
		{"luckyNumber", r.LuckyNumber},
		{"flavorText", r.FlavorText},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: missing %s", errIncompleteReading, f.name)
		}
	}
	if len(r.Keywords) == 0 {
		return fmt.Errorf("%w: missing keywords", errIncompleteReading)
	}
	return nil
}

// FallbackReading is shown when generation fails, so a session always has
// something to display.
func FallbackReading() Reading {
	return Reading{
		Summary:     "The stars are veiled.",
		Keywords:    []string{"Patience", "Inner Peace", "Waiting"},
		Analysis:    "The cosmos is currently recalibrating. Trust in the timing of your life.",
		Advice:      "Take a moment for quiet reflection.",
		Affirmation: "I am open to the guidance of the universe.",
		LuckyColor:  "Soft Indigo",
		LuckyNumber: "11",
		FlavorText:  "Silence is also an answer.",
	}
}
