package oracle

import (
	"fmt"
	"strings"

	"github.com/arcanaland/lumen/internal/card"
	"github.com/arcanaland/lumen/internal/deck"
)

var tones = map[card.Locale]string{
	card.LocaleEN: "Tone: Kawaii, Uplifting, Warm, and Supportive. You are a 'Celestial Star Fox'. " +
		"Frame negative cards as healing opportunities or clearing space for better things. " +
		"Keep sentences conversational and friendly. End with a magical blessing.",
	card.LocaleZhTW: "使用繁體中文（台灣）。你是一位「星空狐狸 (Celestial Star Fox)」，語氣要非常可愛、療癒、溫暖。" +
		"當解釋負面牌義（如高塔、寶劍十）時，請將其轉化為「清理空間迎接美好」的轉機。" +
		"句子要像對好朋友說話一樣親切。最後請給予一個魔法祝福。",
}

func readingPrompt(req ReadingRequest) string {
	cfg, _ := deck.Config(req.Variant)

	var cards strings.Builder
	for _, c := range req.Cards {
		orientation := "Upright"
		if cfg.SupportsInversion {
			orientation = c.Orientation()
		}
		fmt.Fprintf(&cards, "- [%s]: %s (%s)\n", c.Position, c.Card.Name, orientation)
	}

	tone, ok := tones[req.Locale]
	if !ok {
		tone = tones[card.LocaleEN]
	}

	var b strings.Builder
	b.WriteString("Role: You are a 'Celestial Star Fox' - a gentle, empathetic, and slightly magical guide.\n")
	fmt.Fprintf(&b, "Deck Used: %s.\n", req.Variant)
	fmt.Fprintf(&b, "User Question: %q\n", req.Question)
	fmt.Fprintf(&b, "Category: %s\n", req.Intent)
	fmt.Fprintf(&b, "Spread: %s\n", req.Spread)
	b.WriteString("Drawn Cards:\n")
	b.WriteString(cards.String())
	fmt.Fprintf(&b, "Instructions: %s\n", tone)
	b.WriteString("Provide a detailed analysis in JSON format.\n")

	return b.String()
}
