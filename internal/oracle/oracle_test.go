package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/arcanaland/lumen/internal/card"
	"github.com/arcanaland/lumen/internal/deck"
)

type fakeBackend struct {
	json    string
	jsonErr error
	img     *Image
	imgErr  error

	prompts []string
	aspects []string
}

func (f *fakeBackend) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.json, f.jsonErr
}

func (f *fakeBackend) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*Image, error) {
	f.prompts = append(f.prompts, prompt)
	f.aspects = append(f.aspects, aspectRatio)
	return f.img, f.imgErr
}

const validReading = `{
	"summary": "A bright path opens.",
	"keywords": ["Hope", "Renewal"],
	"analysis": "The cards point to renewal.",
	"advice": "Say yes to small invitations.",
	"affirmation": "I welcome what is coming.",
	"luckyColor": "Gold",
	"luckyNumber": "7",
	"flavorText": "The fox smiles."
}`

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		name string
		json string
		err  error
		want Intent
	}{
		{"known category", `{"category":"Love"}`, nil, IntentLove},
		{"unknown category", `{"category":"Pets"}`, nil, IntentGeneral},
		{"malformed json", `{category`, nil, IntentGeneral},
		{"backend error", "", errors.New("boom"), IntentGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(&fakeBackend{json: tt.json, jsonErr: tt.err}, nil)
			assert.Equal(t, tt.want, o.ClassifyIntent(context.Background(), "Will I find love?"))
		})
	}
}

func TestClassifyIntentWithoutBackend(t *testing.T) {
	assert.Equal(t, IntentGeneral, New(nil, nil).ClassifyIntent(context.Background(), "q"))
}

func sampleRequest(t *testing.T) ReadingRequest {
	t.Helper()
	d, err := deck.Load(deck.Tarot)
	require.NoError(t, err)
	fool, _ := d.GetCard(0)
	tower, _ := d.GetCard(16)
	return ReadingRequest{
		Question: "Will I find love?",
		Cards: []deck.DrawnCard{
			{Card: fool, Position: deck.Situation},
			{Card: tower, Position: deck.Challenge, Inverted: true},
		},
		Intent:  IntentLove,
		Spread:  deck.TwoCard,
		Variant: deck.Tarot,
		Locale:  card.LocaleEN,
	}
}

func TestGenerateReading(t *testing.T) {
	b := &fakeBackend{json: validReading}
	o := New(b, nil)

	r, ok := o.GenerateReading(context.Background(), sampleRequest(t))
	require.True(t, ok)
	assert.Equal(t, "A bright path opens.", r.Summary)
	assert.Equal(t, []string{"Hope", "Renewal"}, r.Keywords)

	require.Len(t, b.prompts, 1)
	assert.Contains(t, b.prompts[0], "- [Situation]: The Fool (Upright)")
	assert.Contains(t, b.prompts[0], "- [Challenge]: The Tower (Reversed)")
	assert.Contains(t, b.prompts[0], "Spread: TWO_CARD")
	assert.Contains(t, b.prompts[0], "Category: Love")
}

func TestGenerateReadingFallsBack(t *testing.T) {
	tests := []struct {
		name string
		json string
		err  error
	}{
		{"backend error", "", errors.New("unavailable")},
		{"deadline", "", context.DeadlineExceeded},
		{"malformed", `{"summary":`, nil},
		{"missing field", `{"summary":"x","keywords":["a"],"analysis":"x","advice":"x","affirmation":"x","luckyColor":"x","luckyNumber":"x"}`, nil},
		{"empty keywords", strings.Replace(validReading, `["Hope", "Renewal"]`, `[]`, 1), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(&fakeBackend{json: tt.json, jsonErr: tt.err}, nil)
			r, ok := o.GenerateReading(context.Background(), sampleRequest(t))
			assert.False(t, ok)
			assert.Equal(t, FallbackReading(), r)
		})
	}
}

func TestFallbackReadingIsComplete(t *testing.T) {
	require.NoError(t, FallbackReading().Validate())
}

func TestLenormandPromptIsAlwaysUpright(t *testing.T) {
	d, err := deck.Load(deck.Lenormand)
	require.NoError(t, err)
	rider, _ := d.GetCard(200)

	b := &fakeBackend{json: validReading}
	o := New(b, nil)
	_, ok := o.GenerateReading(context.Background(), ReadingRequest{
		Question: "q",
		Cards:    []deck.DrawnCard{{Card: rider, Position: deck.Single, Inverted: true}},
		Spread:   deck.OneCard,
		Variant:  deck.Lenormand,
		Locale:   card.LocaleZhTW,
	})
	require.True(t, ok)
	assert.Contains(t, b.prompts[0], "- [Single]: Rider (Upright)")
	assert.Contains(t, b.prompts[0], "繁體中文")
}

func TestGenerateImage(t *testing.T) {
	b := &fakeBackend{img: &Image{Data: []byte{0x89, 'P', 'N', 'G'}}}
	o := New(b, nil)

	img, err := o.GenerateImage(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.True(t, strings.HasPrefix(img.DataURI(), "data:image/png;base64,"))
	assert.Equal(t, []string{CardAspectRatio}, b.aspects)

	_, err = New(&fakeBackend{imgErr: errors.New("quota")}, nil).GenerateImage(context.Background(), "p")
	assert.Error(t, err)

	_, err = New(&fakeBackend{img: &Image{}}, nil).GenerateImage(context.Background(), "p")
	assert.Error(t, err)

	_, err = New(nil, nil).GenerateImage(context.Background(), "p")
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestCardPrompt(t *testing.T) {
	style := deck.PromptStyle{Prefix: "Art of ", Suffix: "."}
	assert.Equal(t, "Art of The Sun (Reversed).", CardPrompt(style, "The Sun", true, true))
	assert.Equal(t, "Art of Sun.", CardPrompt(style, "Sun", true, false))
	assert.Equal(t, "Art of The Sun.", CardPrompt(style, "The Sun", false, true))
}

func TestParseIntent(t *testing.T) {
	assert.Equal(t, IntentCareer, ParseIntent(" Career "))
	assert.Equal(t, IntentGeneral, ParseIntent("love"))
}
