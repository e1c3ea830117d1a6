package deck

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/arcanaland/lumen/internal/card"
)

// ErrUnknownVariant is returned for a deck variant outside the closed set
var ErrUnknownVariant = errors.New("unknown deck variant")

// Variant names a family of cards sharing a prompt template and orientation rules
type Variant string

const (
	Tarot     Variant = "TAROT"
	Lenormand Variant = "LENORMAND"
)

// Variants lists every known deck variant
var Variants = []Variant{Tarot, Lenormand}

// ParseVariant parses a variant name, case-sensitively
func ParseVariant(s string) (Variant, error) {
	for _, v := range Variants {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// PromptStyle wraps a card name into an image generation prompt
type PromptStyle struct {
	Prefix string `toml:"prefix"`
	Suffix string `toml:"suffix"`
}

// VariantConfig holds the rules of a deck variant
type VariantConfig struct {
	Variant           Variant
	Label             map[card.Locale]string
	SupportsInversion bool
	DefaultCount      int
	Prompt            PromptStyle
}

var variantConfigs = map[Variant]VariantConfig{
	Tarot: {
		Variant:           Tarot,
		Label:             map[card.Locale]string{card.LocaleEN: "THE TAROT", card.LocaleZhTW: "命運塔羅"},
		SupportsInversion: true,
		DefaultCount:      1,
		Prompt: PromptStyle{
			Prefix: "Tarot card illustration of ",
			Suffix: ", the card name is elegantly written at the bottom center of the card, modern digital vector art, bold uniform black outlines (ligne claire), flat coloring, minimal cel-shading, no gradients, muted deep color palette (dark blues, teals, muted purples, antique gold, greys), melancholic and mysterious mood, enclosed in an ornate flat gold art nouveau inspired border frame, high quality, 8k resolution.",
		},
	},
	Lenormand: {
		Variant:           Lenormand,
		Label:             map[card.Locale]string{card.LocaleEN: "LENORMAND", card.LocaleZhTW: "雷諾曼預言"},
		SupportsInversion: false,
		DefaultCount:      3,
		Prompt: PromptStyle{
			Prefix: "Lenormand card illustration of ",
			Suffix: ", school anime style (shoujo manga aesthetic), vibrant pastel colors, high school setting, cel-shaded with clean linework, bright cheerful atmosphere, detailed background, enclosed in a decorative pink and white art nouveau inspired border frame with floral accents, consistent card layout, high quality digital art, masterpiece, 2:3 aspect ratio.",
		},
	},
}

// Config returns the rules for a variant
func Config(v Variant) (VariantConfig, error) {
	cfg, ok := variantConfigs[v]
	if !ok {
		return VariantConfig{}, fmt.Errorf("%w: %q", ErrUnknownVariant, v)
	}
	return cfg, nil
}

// Deck is an ordered, immutable sequence of cards of one variant
type Deck struct {
	Variant Variant
	Name    string
	Path    string // Pack file the deck was loaded from, empty for built-in decks
	Config  VariantConfig

	cards []card.Card
	byID  map[int]int
}

// Load returns the built-in deck for a variant
func Load(v Variant) (*Deck, error) {
	cfg, err := Config(v)
	if err != nil {
		return nil, err
	}

	var cards []card.Card
	switch v {
	case Tarot:
		cards = tarotCards()
	case Lenormand:
		cards = lenormandCards()
	}

	return newDeck(v, cfg.Label[card.LocaleEN], "", cfg, cards), nil
}

// LoadAll returns the built-in decks, overlaid with any packs found in libraryPath
func LoadAll(libraryPath string) (map[Variant]*Deck, error) {
	decks := make(map[Variant]*Deck, len(Variants))
	for _, v := range Variants {
		d, err := Load(v)
		if err != nil {
			return nil, err
		}
		decks[v] = d
	}

	if libraryPath == "" {
		return decks, nil
	}

	entries, err := os.ReadDir(libraryPath)
	if os.IsNotExist(err) {
		return decks, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading deck library: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}
		d, err := LoadPack(filepath.Join(libraryPath, entry.Name()))
		if err != nil {
			return nil, err
		}
		decks[d.Variant] = d
	}

	return decks, nil
}

// LoadPack loads a TOML deck pack, applying its overrides on top of the built-in deck
func LoadPack(packPath string) (*Deck, error) {
	var pack PackConfig
	if _, err := toml.DecodeFile(packPath, &pack); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", packPath, err)
	}

	v, err := ParseVariant(pack.Deck.Variant)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", packPath, err)
	}

	base, err := Load(v)
	if err != nil {
		return nil, err
	}

	cfg := base.Config
	if pack.Prompt != nil {
		cfg.Prompt = *pack.Prompt
	}

	name := pack.Deck.Name
	if name == "" {
		name = base.Name
	}

	cards := base.Cards()
	for key, o := range pack.Cards {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid card id %q", packPath, key)
		}
		idx, ok := base.byID[id]
		if !ok {
			return nil, fmt.Errorf("%s: card %d is not part of the %s deck", packPath, id, v)
		}
		cards[idx] = o.apply(cards[idx])
	}

	return newDeck(v, name, packPath, cfg, cards), nil
}

func newDeck(v Variant, name, path string, cfg VariantConfig, cards []card.Card) *Deck {
	d := &Deck{
		Variant: v,
		Name:    name,
		Path:    path,
		Config:  cfg,
		cards:   cards,
		byID:    make(map[int]int, len(cards)),
	}
	for i, c := range cards {
		d.byID[c.ID] = i
	}
	return d
}

// Cards returns a copy of the deck's cards in canonical order
func (d *Deck) Cards() []card.Card {
	out := make([]card.Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// Len returns the number of cards in the deck
func (d *Deck) Len() int {
	return len(d.cards)
}

// GetCard gets a card by its id
func (d *Deck) GetCard(id int) (card.Card, error) {
	idx, ok := d.byID[id]
	if !ok {
		return card.Card{}, fmt.Errorf("card not found: %d", id)
	}
	return d.cards[idx], nil
}

// IDs returns the sorted card ids of the deck
func (d *Deck) IDs() []int {
	ids := make([]int, 0, len(d.cards))
	for _, c := range d.cards {
		ids = append(ids, c.ID)
	}
	sort.Ints(ids)
	return ids
}

// Deck pack configuration structures
type PackConfig struct {
	Deck   PackSection             `toml:"deck"`
	Prompt *PromptStyle            `toml:"prompt"`
	Cards  map[string]CardOverride `toml:"cards"`
}

type PackSection struct {
	Variant     string `toml:"variant"`
	Name        string `toml:"name"`
	Author      string `toml:"author"`
	Version     string `toml:"version"`
	Description string `toml:"description"`
}

// CardOverride replaces fields of a built-in card. Map keys are locale names.
type CardOverride struct {
	Name     string              `toml:"name"`
	Names    map[string]string   `toml:"names"`
	Keywords map[string][]string `toml:"keywords"`
	Upright  map[string]string   `toml:"upright"`
	Reversed map[string]string   `toml:"reversed"`
}

func (o CardOverride) apply(c card.Card) card.Card {
	if o.Name != "" {
		c.Name = o.Name
	}
	c.Names = mergeText(c.Names, o.Names)
	c.Upright = mergeText(c.Upright, o.Upright)
	c.Reversed = mergeText(c.Reversed, o.Reversed)

	kw := make(map[card.Locale][]string, len(c.Keywords))
	for l, k := range c.Keywords {
		kw[l] = k
	}
	for l, k := range o.Keywords {
		kw[card.Locale(l)] = k
	}
	c.Keywords = kw

	return c
}

func mergeText(base map[card.Locale]string, over map[string]string) map[card.Locale]string {
	out := make(map[card.Locale]string, len(base)+len(over))
	for l, s := range base {
		out[l] = s
	}
	for l, s := range over {
		out[card.Locale(l)] = s
	}
	return out
}
