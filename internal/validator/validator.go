package validator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/arcanaland/lumen/internal/card"
	"github.com/arcanaland/lumen/internal/deck"
	"github.com/arcanaland/lumen/internal/imagecache"
)

type ValidationResults struct {
	Errors   []string
	Warnings []string
}

// OK reports whether validation found no errors
func (r ValidationResults) OK() bool {
	return len(r.Errors) == 0
}

type Validator struct {
	PackPath string
	AssetDir string // Optional directory of pre-generated card art
	Results  ValidationResults

	pack deck.PackConfig
	meta toml.MetaData
}

func NewValidator(packPath, assetDir string) *Validator {
	return &Validator{
		PackPath: packPath,
		AssetDir: assetDir,
		Results:  ValidationResults{},
	}
}

func (v *Validator) Validate() (ValidationResults, error) {
	if err := v.validatePackToml(); err != nil {
		return v.Results, err
	}

	base, ok := v.validateVariant()
	if !ok {
		return v.Results, nil
	}

	v.validatePrompt()
	v.validateCards(base)
	v.validateUndecoded()

	if len(v.Results.Errors) > 0 {
		return v.Results, nil
	}

	merged, err := deck.LoadPack(v.PackPath)
	if err != nil {
		v.errorf("%v", err)
		return v.Results, nil
	}

	v.validateLocales(merged)
	v.validateAssets(merged)

	return v.Results, nil
}

func (v *Validator) errorf(format string, args ...any) {
	v.Results.Errors = append(v.Results.Errors, fmt.Sprintf(format, args...))
}

func (v *Validator) warnf(format string, args ...any) {
	v.Results.Warnings = append(v.Results.Warnings, fmt.Sprintf(format, args...))
}

func (v *Validator) validatePackToml() error {
	if _, err := os.Stat(v.PackPath); os.IsNotExist(err) {
		return fmt.Errorf("deck pack not found: %s", v.PackPath)
	}

	meta, err := toml.DecodeFile(v.PackPath, &v.pack)
	if err != nil {
		return fmt.Errorf("error parsing %s: %v", filepath.Base(v.PackPath), err)
	}
	v.meta = meta

	if v.pack.Deck.Name == "" {
		v.warnf("deck.name is empty, the built-in label will be used")
	}
	if v.pack.Deck.Version == "" {
		v.warnf("deck.version is not set")
	}

	return nil
}

func (v *Validator) validateVariant() (*deck.Deck, bool) {
	if v.pack.Deck.Variant == "" {
		v.errorf("deck.variant is required (one of %s)", variantList())
		return nil, false
	}

	variant, err := deck.ParseVariant(v.pack.Deck.Variant)
	if err != nil {
		v.errorf("unsupported deck.variant %q (supported: %s)", v.pack.Deck.Variant, variantList())
		return nil, false
	}

	base, err := deck.Load(variant)
	if err != nil {
		v.errorf("%v", err)
		return nil, false
	}
	return base, true
}

func variantList() string {
	names := make([]string, len(deck.Variants))
	for i, variant := range deck.Variants {
		names[i] = string(variant)
	}
	return strings.Join(names, ", ")
}

// validatePrompt requires both halves of an overridden prompt style
func (v *Validator) validatePrompt() {
	if v.pack.Prompt == nil {
		return
	}
	if strings.TrimSpace(v.pack.Prompt.Prefix) == "" {
		v.errorf("prompt.prefix is required when [prompt] is present")
	}
	if strings.TrimSpace(v.pack.Prompt.Suffix) == "" {
		v.errorf("prompt.suffix is required when [prompt] is present")
	}
}

// validateCards checks that every override addresses a distinct card of the variant
func (v *Validator) validateCards(base *deck.Deck) {
	seen := make(map[int]string, len(v.pack.Cards))
	invalid := []string{}
	foreign := []string{}

	keys := make([]string, 0, len(v.pack.Cards))
	for key := range v.pack.Cards {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		o := v.pack.Cards[key]
		id, err := strconv.Atoi(key)
		if err != nil {
			invalid = append(invalid, key)
			continue
		}
		if prev, dup := seen[id]; dup {
			v.errorf("cards.%s and cards.%s both override card %d", prev, key, id)
			continue
		}
		seen[id] = key

		if _, err := base.GetCard(id); err != nil {
			foreign = append(foreign, key)
			continue
		}

		if en, ok := o.Names[string(card.LocaleEN)]; ok && strings.TrimSpace(en) == "" {
			v.errorf("cards.%s.names.EN must not be empty", key)
		}

		locales := []string{}
		for _, section := range []map[string]string{o.Names, o.Upright, o.Reversed} {
			for l := range section {
				locales = append(locales, l)
			}
		}
		for l := range o.Keywords {
			locales = append(locales, l)
		}
		for _, l := range locales {
			if !knownLocale(l) {
				v.warnf("cards.%s uses unknown locale %q", key, l)
			}
		}

		if len(o.Reversed) > 0 && !base.Config.SupportsInversion {
			v.warnf("cards.%s sets reversed meanings but %s cards are never inverted", key, base.Variant)
		}
	}

	if len(invalid) > 0 {
		v.errorf("invalid card ids: %s", strings.Join(invalid, ", "))
	}
	if len(foreign) > 0 {
		v.errorf("cards not part of the %s deck: %s", base.Variant, strings.Join(foreign, ", "))
	}
}

func knownLocale(s string) bool {
	for _, l := range card.Locales {
		if string(l) == s {
			return true
		}
	}
	return false
}

func (v *Validator) validateUndecoded() {
	for _, key := range v.meta.Undecoded() {
		v.warnf("unknown key %s", key.String())
	}
}

// validateLocales warns about cards that would fall back to English
func (v *Validator) validateLocales(d *deck.Deck) {
	missingNames := []string{}
	missingKeywords := []string{}

	for _, c := range d.Cards() {
		if c.Names[card.LocaleEN] == "" && c.Name == "" {
			v.errorf("card %d has no English name", c.ID)
		}
		if c.Names[card.LocaleZhTW] == "" {
			missingNames = append(missingNames, strconv.Itoa(c.ID))
		}
		if len(c.Keywords[card.LocaleZhTW]) == 0 {
			missingKeywords = append(missingKeywords, strconv.Itoa(c.ID))
		}
	}

	if len(missingNames) > 0 {
		v.warnf("missing ZH_TW names for cards: %s", strings.Join(missingNames, ", "))
	}
	if len(missingKeywords) > 0 {
		v.warnf("missing ZH_TW keywords for cards: %s", strings.Join(missingKeywords, ", "))
	}
}

// validateAssets reports cards without pre-generated art
func (v *Validator) validateAssets(d *deck.Deck) {
	if v.AssetDir == "" {
		return
	}
	if _, err := os.Stat(v.AssetDir); os.IsNotExist(err) {
		v.warnf("asset directory not found: %s", v.AssetDir)
		return
	}

	missing := []string{}
	for _, c := range d.Cards() {
		name := imagecache.AssetPath(d.Variant, c.Name)
		if _, err := os.Stat(filepath.Join(v.AssetDir, name)); os.IsNotExist(err) {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		v.warnf("missing pre-generated art (%d of %d): %s", len(missing), d.Len(), strings.Join(missing, ", "))
	}
}
