package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	colorize "github.com/fatih/color"
	"golang.org/x/term"

	"github.com/arcanaland/lumen/internal/ansiart"
	"github.com/arcanaland/lumen/internal/card"
	"github.com/arcanaland/lumen/internal/config"
	"github.com/arcanaland/lumen/internal/deck"
	"github.com/arcanaland/lumen/internal/oracle"
)

// cardView is what displayCard prints next to the art
type cardView struct {
	Card     card.Card
	DeckName string
	Locale   card.Locale
	Position deck.Position
	Inverted bool
	Reversed bool // whether the deck reads cards reversed at all
}

// terminalWidth returns the width of stdout, or 80 when it is not a terminal
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// cardArt renders ref as terminal art, or a blank frame when ref is empty or
// cannot be loaded
func cardArt(ctx context.Context, ref string, inverted bool) string {
	if ref != "" {
		art, err := ansiart.RenderCached(ctx, config.GetCacheDir(), ref, inverted)
		if err == nil {
			return art
		}
		logger.Debug("art unavailable", "error", err)
	}

	w := ansiart.DefaultWidth
	lines := make([]string, 0, ansiart.DefaultHeight)
	lines = append(lines, "┌"+strings.Repeat("─", w-2)+"┐")
	for i := 0; i < ansiart.DefaultHeight-2; i++ {
		mid := strings.Repeat(" ", w-2)
		if i == ansiart.DefaultHeight/2-1 {
			mid = fmt.Sprintf("%-*s", w-2, strings.Repeat(" ", (w-2-1)/2)+"✦")
		}
		lines = append(lines, "│"+mid+"│")
	}
	lines = append(lines, "└"+strings.Repeat("─", w-2)+"┘")
	return strings.Join(lines, "\n")
}

// wrapText wraps text to a specified width
func wrapText(text string, width int) []string {
	if width < 10 {
		width = 40
	}

	var result []string
	var currentLine string
	words := strings.Fields(text)

	if len(words) == 0 {
		return []string{""}
	}

	for _, word := range words {
		if len(currentLine) == 0 {
			currentLine = word
		} else if ansiart.VisibleWidth(currentLine)+1+ansiart.VisibleWidth(word) <= width {
			currentLine += " " + word
		} else {
			result = append(result, currentLine)
			currentLine = word
		}
	}

	if currentLine != "" {
		result = append(result, currentLine)
	}

	return result
}

// displayCard prints the art on the left and the card information on the right
func displayCard(v cardView, art string) {
	ansiLines := strings.Split(strings.TrimRight(art, "\n"), "\n")
	maxAnsiWidth := 0
	for _, line := range ansiLines {
		maxAnsiWidth = max(maxAnsiWidth, ansiart.VisibleWidth(line))
	}

	spacing := 4
	infoStartCol := maxAnsiWidth + spacing
	infoWidth := max(terminalWidth()-infoStartCol-4, 20)

	c := v.Card
	var infoLines []string
	infoLines = append(infoLines, colorize.CyanString("Card: ")+colorize.HiWhiteString("%s", c.LocalizedName(v.Locale)))
	if v.Locale != card.LocaleEN {
		infoLines = append(infoLines, colorize.CyanString("      ")+colorize.WhiteString("%s", c.Name))
	}
	infoLines = append(infoLines, colorize.CyanString("Deck: ")+colorize.HiWhiteString("%s", v.DeckName))
	infoLines = append(infoLines, colorize.CyanString("ID:   ")+colorize.HiWhiteString("%d", c.ID))
	if v.Position != "" {
		infoLines = append(infoLines, colorize.CyanString("Pos:  ")+colorize.HiWhiteString("%s", v.Position))
	}
	if v.Reversed {
		orientation := colorize.GreenString("Upright ▲")
		if v.Inverted {
			orientation = colorize.MagentaString("Reversed ▼")
		}
		infoLines = append(infoLines, colorize.CyanString("Way:  ")+orientation)
	}

	if kw := c.KeywordsFor(v.Locale); len(kw) > 0 {
		infoLines = append(infoLines, "")
		infoLines = append(infoLines, colorize.CyanString("Keywords:"))
		infoLines = append(infoLines, wrapText(colorize.YellowString("%s", strings.Join(kw, " · ")), infoWidth)...)
	}

	if meaning := c.Meaning(v.Locale, v.Inverted); meaning != "" {
		infoLines = append(infoLines, "")
		infoLines = append(infoLines, colorize.CyanString("Meaning:"))
		infoLines = append(infoLines, wrapText(meaning, infoWidth)...)
	}

	fmt.Println()

	maxLines := max(len(ansiLines), len(infoLines))
	for i := 0; i < maxLines; i++ {
		fmt.Print("  ")
		if i < len(ansiLines) {
			fmt.Print(ansiLines[i])
			fmt.Print(strings.Repeat(" ", infoStartCol-ansiart.VisibleWidth(ansiLines[i])))
		} else {
			fmt.Print(strings.Repeat(" ", infoStartCol))
		}

		if i < len(infoLines) {
			fmt.Print(infoLines[i])
		}

		fmt.Println()
	}

	fmt.Println()
}

// displayReading prints a reading below the drawn cards
func displayReading(r oracle.Reading, fallback bool) {
	width := min(terminalWidth()-4, 96)
	section := func(title, body string) {
		fmt.Println("  " + colorize.CyanString(title))
		for _, line := range wrapText(body, width) {
			fmt.Println("  " + line)
		}
		fmt.Println()
	}

	if fallback {
		fmt.Println("  " + colorize.HiBlackString("(the oracle was silent; this reading was not counted against your quota)"))
		fmt.Println()
	}

	fmt.Println("  " + colorize.New(colorize.Bold, colorize.FgHiWhite).Sprint(r.Summary))
	fmt.Println("  " + colorize.YellowString("%s", strings.Join(r.Keywords, " · ")))
	fmt.Println()

	section("Analysis", r.Analysis)
	section("Advice", r.Advice)
	section("Affirmation", colorize.New(colorize.Italic).Sprint(r.Affirmation))

	fmt.Printf("  %s %s    %s %s\n\n",
		colorize.CyanString("Lucky color:"), r.LuckyColor,
		colorize.CyanString("Lucky number:"), r.LuckyNumber)
	fmt.Println("  " + colorize.HiBlackString("%s", r.FlavorText))
	fmt.Println()
}
