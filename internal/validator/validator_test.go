package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePack(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pack.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestValidPack(t *testing.T) {
	path := writePack(t, `
[deck]
variant = "TAROT"
name = "Night Garden"
version = "1.0"

[prompt]
prefix = "Watercolor tarot card of "
suffix = ", soft light."

[cards.0]
name = "The Wanderer"
names = { EN = "The Wanderer", ZH_TW = "流浪者" }
`)

	results, err := NewValidator(path, "").Validate()
	require.NoError(t, err)
	assert.True(t, results.OK(), "errors: %v", results.Errors)
}

func TestPackErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing variant", "[deck]\nname = \"x\"\n", "deck.variant is required"},
		{"unknown variant", "[deck]\nvariant = \"RUNES\"\n", `unsupported deck.variant "RUNES"`},
		{"half prompt", "[deck]\nvariant = \"TAROT\"\n[prompt]\nprefix = \"a \"\n", "prompt.suffix is required"},
		{"foreign card", "[deck]\nvariant = \"LENORMAND\"\n[cards.5]\nname = \"x\"\n", "cards not part of the LENORMAND deck: 5"},
		{"bad id", "[deck]\nvariant = \"TAROT\"\n[cards.fool]\nname = \"x\"\n", "invalid card ids: fool"},
		{"duplicate id", "[deck]\nvariant = \"TAROT\"\n[cards.7]\nname = \"a\"\n[cards.07]\nname = \"b\"\n", "both override card 7"},
		{"empty english name", "[deck]\nvariant = \"TAROT\"\n[cards.1]\nnames = { EN = \"\" }\n", "cards.1.names.EN must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := NewValidator(writePack(t, tt.body), "").Validate()
			require.NoError(t, err)
			require.False(t, results.OK())
			assert.Contains(t, results.Errors[0], tt.want)
		})
	}
}

func TestPackWarnings(t *testing.T) {
	path := writePack(t, `
[deck]
variant = "LENORMAND"
colour = "pink"

[cards.200]
reversed = { EN = "Bad news" }
names = { FR = "Cavalier" }
`)

	results, err := NewValidator(path, "").Validate()
	require.NoError(t, err)
	assert.True(t, results.OK(), "errors: %v", results.Errors)
	assert.Contains(t, results.Warnings, "deck.name is empty, the built-in label will be used")
	assert.Contains(t, results.Warnings, "unknown key deck.colour")
	assert.Contains(t, results.Warnings, `cards.200 uses unknown locale "FR"`)
	assert.Contains(t, results.Warnings, "cards.200 sets reversed meanings but LENORMAND cards are never inverted")
}

func TestMissingAssets(t *testing.T) {
	assets := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(assets, "LENORMAND_Rider.png"), []byte("png"), 0o644))

	path := writePack(t, "[deck]\nvariant = \"LENORMAND\"\nname = \"x\"\nversion = \"1\"\n")
	results, err := NewValidator(path, assets).Validate()
	require.NoError(t, err)

	require.Len(t, results.Warnings, 1)
	assert.Contains(t, results.Warnings[0], "missing pre-generated art (35 of 36)")
	assert.NotContains(t, results.Warnings[0], "LENORMAND_Rider.png")
	assert.Contains(t, results.Warnings[0], "LENORMAND_Clover.png")
}

func TestUnreadablePack(t *testing.T) {
	_, err := NewValidator(filepath.Join(t.TempDir(), "nope.toml"), "").Validate()
	assert.Error(t, err)

	_, err = NewValidator(writePack(t, "[deck\n"), "").Validate()
	assert.Error(t, err)
}
