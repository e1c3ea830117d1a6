package card

// Locale identifies a display language
type Locale string

const (
	LocaleEN   Locale = "EN"
	LocaleZhTW Locale = "ZH_TW"
)

// Locales lists every supported locale, English first
var Locales = []Locale{LocaleEN, LocaleZhTW}

// ParseLocale returns the locale for s, defaulting to English
func ParseLocale(s string) Locale {
	switch Locale(s) {
	case LocaleZhTW:
		return LocaleZhTW
	default:
		return LocaleEN
	}
}

// Card represents a single card of a deck. Cards are loaded once and never mutated.
type Card struct {
	ID       int                 `json:"id"`       // Stable across sessions
	Name     string              `json:"name"`     // Canonical English name, used for prompts and asset paths
	Names    map[Locale]string   `json:"names"`    // Localized display names
	Keywords map[Locale][]string `json:"keywords"` // Ordered keywords per locale
	Upright  map[Locale]string   `json:"upright"`  // Primary meaning
	Reversed map[Locale]string   `json:"reversed"` // Inverse meaning, empty for upright-only decks
}

// LocalizedName returns the display name for a locale, falling back to English
func (c Card) LocalizedName(l Locale) string {
	if n := c.Names[l]; n != "" {
		return n
	}
	if n := c.Names[LocaleEN]; n != "" {
		return n
	}
	return c.Name
}

// KeywordsFor returns the keywords for a locale, falling back to English
func (c Card) KeywordsFor(l Locale) []string {
	if k := c.Keywords[l]; len(k) > 0 {
		return k
	}
	return c.Keywords[LocaleEN]
}

// Meaning returns the meaning for the given orientation and locale
func (c Card) Meaning(l Locale, inverted bool) string {
	m := c.Upright
	if inverted {
		m = c.Reversed
	}
	if s := m[l]; s != "" {
		return s
	}
	return m[LocaleEN]
}
