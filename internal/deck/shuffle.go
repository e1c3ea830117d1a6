package deck

import (
	"math/rand"

	"github.com/arcanaland/lumen/internal/card"
)

// Shuffle returns a fresh uniformly random permutation of cards (Fisher-Yates).
// The input slice is left untouched.
func Shuffle(cards []card.Card, rng *rand.Rand) []card.Card {
	out := make([]card.Card, len(cards))
	copy(out, cards)

	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}

	return out
}
