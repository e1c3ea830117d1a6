package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [card_id]",
	Short: "Display a card with ANSI art",
	Long: `Show displays a card's names, keywords and meaning next to its art rendered
as truecolor terminal art. Art is looked up among the pre-generated assets and
previously generated images; show never generates new art.

Examples:
  lumen show 0
  lumen show --deck LENORMAND 24
  lumen show --reversed 16`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cardID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid card id %q", args[0])
		}
		deckFlag, _ := cmd.Flags().GetString("deck")
		reversed, _ := cmd.Flags().GetBool("reversed")

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
		d := a.decks[v]

		c, err := d.GetCard(cardID)
		if err != nil {
			return fmt.Errorf("error getting card: %v", err)
		}

		inverted := reversed && d.Config.SupportsInversion
		ref := a.images.Lookup(ctx, v, c.ID, c.Name)

		displayCard(cardView{
			Card:     c,
			DeckName: d.Name,
			Locale:   a.locale(),
			Inverted: inverted,
			Reversed: d.Config.SupportsInversion,
		}, cardArt(ctx, ref, inverted))

		return nil
	},
}

func init() {
	RootCmd.AddCommand(showCmd)

	showCmd.Flags().StringP("deck", "d", "", "Deck variant (TAROT or LENORMAND)")
	showCmd.Flags().BoolP("reversed", "r", false, "Show the reversed meaning")
}
