package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arcanaland/lumen/internal/deck"
	"github.com/arcanaland/lumen/internal/session"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Ask a question and draw a spread",
	Long: `Read walks through a reading in the terminal: ask a question, shuffle and cut
the deck, pick your cards from the spread-out pile and receive an interpretation.

A reading counts against the quota of --user (default $USER). Readings that fall
back because the oracle is unavailable are not counted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deckFlag, _ := cmd.Flags().GetString("deck")
		count, _ := cmd.Flags().GetInt("count")
		user, _ := cmd.Flags().GetString("user")
		question, _ := cmd.Flags().GetString("question")

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		v, err := a.variant(deckFlag)
		if err != nil {
			return err
		}

		m := a.newMachine()
		defer m.Close()

		r := &ritual{app: a, m: m, in: bufio.NewReader(os.Stdin)}
		return r.run(ctx, v, count, user, question)
	},
}

func init() {
	RootCmd.AddCommand(readCmd)

	readCmd.Flags().StringP("deck", "d", "", "Deck variant (TAROT or LENORMAND)")
	readCmd.Flags().IntP("count", "n", 0, "Number of cards to draw (1-3), defaults to the deck's default")
	readCmd.Flags().StringP("user", "u", os.Getenv("USER"), "User whose quota the reading counts against")
	readCmd.Flags().StringP("question", "q", "", "Question to ask, prompted for when empty")
}

type ritual struct {
	app *app
	m   *session.Machine
	in  *bufio.Reader
}

func (r *ritual) prompt(label string) (string, error) {
	fmt.Print(colorize.CyanString(label))
	line, err := r.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (r *ritual) run(ctx context.Context, v deck.Variant, count int, user, question string) error {
	m := r.m

	if err := m.SelectDeck(v); err != nil {
		return err
	}
	if count > 0 {
		if err := m.SetTargetCount(count); err != nil {
			return err
		}
	}

	for question == "" {
		q, err := r.prompt("What do you wish to ask? ")
		if err != nil {
			return err
		}
		question = q
	}

	if err := m.Submit(ctx, user, question); err != nil {
		switch {
		case errors.Is(err, session.ErrQuotaExhausted):
			return fmt.Errorf("%s has used all %d readings", user, r.app.gate.Limit())
		case errors.Is(err, session.ErrNotSignedIn):
			return fmt.Errorf("a reading needs a user, pass --user")
		}
		return err
	}

	fmt.Println(colorize.HiBlackString("The deck is shuffled..."))
	if err := m.CompleteShuffle(); err != nil {
		return err
	}
	if _, err := r.prompt("Press Enter to cut the deck. "); err != nil {
		return err
	}
	if err := m.CompleteCut(); err != nil {
		return err
	}

	if err := r.draw(ctx); err != nil {
		return err
	}

	fmt.Println(colorize.HiBlackString("The cards turn over..."))
	if err := m.RevealComplete(); err != nil {
		return err
	}

	wait := r.app.cfg.Oracle.ReadingTimeout + r.app.cfg.Session.SettleDelay + 5*time.Second
	readCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	s, err := m.WaitFor(readCtx, func(s session.Snapshot) bool { return s.Phase == session.Reading })
	if err != nil {
		return fmt.Errorf("reading did not arrive: %w", err)
	}

	// Art does not gate the reading, but the terminal can only print once.
	imgCtx, cancelImg := context.WithTimeout(ctx, r.app.cfg.Oracle.ImageTimeout)
	defer cancelImg()
	if withArt, err := m.WaitFor(imgCtx, session.Snapshot.HasAllImages); err == nil {
		s = withArt
	}

	r.show(ctx, s)

	histCtx, cancelHist := context.WithTimeout(ctx, 2*time.Second)
	defer cancelHist()
	if saved, err := m.WaitFor(histCtx, func(s session.Snapshot) bool { return s.HistoryID != "" }); err == nil {
		fmt.Println(colorize.HiBlackString("Saved as %s", saved.HistoryID))
	}
	return nil
}

// draw lets the user pick cards until the spread is complete
func (r *ritual) draw(ctx context.Context) error {
	m := r.m
	for {
		s := m.Snapshot()
		if s.Phase != session.Drawing {
			return nil
		}

		candidates := m.Candidates()
		pos, _ := deck.PositionFor(s.TargetCount, len(s.Cards))
		answer, err := r.prompt(fmt.Sprintf("Draw the %s card: pick 1-%d, or Enter for fate's choice: ", pos, len(candidates)))
		if err != nil {
			return err
		}

		idx := rand.Intn(len(candidates))
		if answer != "" {
			n, err := strconv.Atoi(answer)
			if err != nil || n < 1 || n > len(candidates) {
				fmt.Println(colorize.RedString("Choose a number between 1 and %d.", len(candidates)))
				continue
			}
			idx = n - 1
		}

		if _, err := m.WaitFor(ctx, func(s session.Snapshot) bool { return !s.DrawLocked }); err != nil {
			return err
		}
		drawn, err := m.Confirm(candidates[idx].ID)
		if err != nil {
			return err
		}
		fmt.Printf("  %s %s\n", colorize.CyanString("%s:", drawn.Position), drawn.Card.LocalizedName(r.app.locale()))
	}
}

func (r *ritual) show(ctx context.Context, s session.Snapshot) {
	d := r.app.decks[s.Deck]

	fmt.Println()
	fmt.Printf("  %s %s\n", colorize.CyanString("Question:"), colorize.HiWhiteString("%s", s.Question))
	fmt.Printf("  %s %s    %s %s\n",
		colorize.CyanString("Topic:"), s.Intent,
		colorize.CyanString("Spread:"), s.Spread)

	for _, c := range s.Cards {
		displayCard(cardView{
			Card:     c.Card,
			DeckName: d.Name,
			Locale:   r.app.locale(),
			Position: c.Position,
			Inverted: c.Inverted,
			Reversed: d.Config.SupportsInversion,
		}, cardArt(ctx, c.Image, c.Inverted))
	}

	if s.Reading != nil {
		displayReading(*s.Reading, s.Fallback)
	}
}
