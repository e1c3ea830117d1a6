package oracle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/arcanaland/lumen/internal/card"
	"github.com/arcanaland/lumen/internal/deck"
	"github.com/arcanaland/lumen/internal/metrics"
)

// CardAspectRatio is the aspect ratio requested for card art
const CardAspectRatio = "2:3"

// ErrNoBackend is returned when no generation backend is configured
var ErrNoBackend = errors.New("no generation backend configured")

// Backend is the generation capability behind the oracle
type Backend interface {
	// GenerateJSON returns the raw JSON text produced for prompt under schema.
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error)

	// GenerateImage returns a single image for prompt. No retries.
	GenerateImage(ctx context.Context, prompt, aspectRatio string) (*Image, error)
}

// Image is raw generated image data
type Image struct {
	Data     []byte
	MIMEType string
}

// DataURI encodes the image as an inline data URI
func (i *Image) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType, base64.StdEncoding.EncodeToString(i.Data))
}

// ReadingRequest carries everything a reading is generated from
type ReadingRequest struct {
	Question string
	Cards    []deck.DrawnCard
	Intent   Intent
	Spread   deck.Spread
	Variant  deck.Variant
	Locale   card.Locale
}

// Oracle adapts a Backend to the reading contracts. Its methods never return
// backend failures for intents and readings; they substitute fallbacks.
type Oracle struct {
	backend Backend
	logger  *slog.Logger
}

// New creates an oracle. A nil backend makes every call fall back.
func New(backend Backend, logger *slog.Logger) *Oracle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Oracle{backend: backend, logger: logger.With(slog.String("component", "oracle"))}
}

var intentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"category": {Type: genai.TypeString},
	},
	Required: []string{"category"},
}

var readingSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary":     {Type: genai.TypeString},
		"keywords":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"analysis":    {Type: genai.TypeString},
		"advice":      {Type: genai.TypeString},
		"affirmation": {Type: genai.TypeString},
		"luckyColor":  {Type: genai.TypeString},
		"luckyNumber": {Type: genai.TypeString},
		"flavorText":  {Type: genai.TypeString},
	},
	Required: []string{"summary", "keywords", "analysis", "advice", "affirmation", "luckyColor", "luckyNumber", "flavorText"},
}

// ClassifyIntent classifies a question, returning General on any failure
func (o *Oracle) ClassifyIntent(ctx context.Context, question string) Intent {
	if o.backend == nil {
		return IntentGeneral
	}

	start := time.Now()
	text, err := o.backend.GenerateJSON(ctx, intentPrompt(question), intentSchema)
	metrics.ObserveGeneration("intent", time.Since(start), err == nil)
	if err != nil {
		o.logger.Warn("intent classification failed", slog.Any("error", err))
		return IntentGeneral
	}

	var out struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		o.logger.Warn("intent response malformed", slog.Any("error", err))
		return IntentGeneral
	}

	return ParseIntent(out.Category)
}

// GenerateReading produces a reading for req. The second result is false when
// the fallback reading was substituted.
func (o *Oracle) GenerateReading(ctx context.Context, req ReadingRequest) (Reading, bool) {
	if o.backend == nil {
		o.logger.Warn("reading generation skipped", slog.Any("error", ErrNoBackend))
		return FallbackReading(), false
	}

	start := time.Now()
	r, err := o.generateReading(ctx, req)
	metrics.ObserveGeneration("reading", time.Since(start), err == nil)
	if err != nil {
		o.logger.Warn("reading generation failed, using fallback",
			slog.String("deck", string(req.Variant)),
			slog.Int("cards", len(req.Cards)),
			slog.Any("error", err),
		)
		return FallbackReading(), false
	}

	return r, true
}

func (o *Oracle) generateReading(ctx context.Context, req ReadingRequest) (Reading, error) {
	text, err := o.backend.GenerateJSON(ctx, readingPrompt(req), readingSchema)
	if err != nil {
		return Reading{}, err
	}

	var r Reading
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return Reading{}, fmt.Errorf("decode reading: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Reading{}, err
	}

	return r, nil
}

// GenerateImage generates card art for a composed prompt. Single shot.
func (o *Oracle) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	if o.backend == nil {
		return nil, ErrNoBackend
	}

	start := time.Now()
	img, err := o.backend.GenerateImage(ctx, prompt, CardAspectRatio)
	metrics.ObserveGeneration("image", time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}
	if img == nil || len(img.Data) == 0 {
		return nil, errors.New("backend returned no image data")
	}
	if img.MIMEType == "" {
		img.MIMEType = "image/png"
	}
	return img, nil
}

// CardPrompt composes the image prompt for a card of a deck variant
func CardPrompt(style deck.PromptStyle, name string, inverted, supportsInversion bool) string {
	if inverted && supportsInversion {
		name += " (Reversed)"
	}
	return style.Prefix + name + style.Suffix
}

func intentPrompt(question string) string {
	names := make([]string, len(Intents))
	for i, in := range Intents {
		names[i] = string(in)
	}
	return fmt.Sprintf("Classify the intent of this query into one of these categories: %s. Query: %q",
		strings.Join(names, ", "), question)
}
