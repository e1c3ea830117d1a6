package cmd

import (
	"fmt"
	"strings"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Browse every card of a deck",
	Long: `Library lists the cards of a deck with their localized names and keywords.
Use --search to filter by name or keyword and 'lumen show' for a single card.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deckFlag, _ := cmd.Flags().GetString("deck")
		search, _ := cmd.Flags().GetString("search")

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		v, err := a.variant(deckFlag)
		if err != nil {
			return err
		}
		d := a.decks[v]
		l := a.locale()
		search = strings.ToLower(search)

		label := d.Config.Label[l]
		if label == "" {
			label = d.Name
		}
		fmt.Println(colorize.New(colorize.Bold, colorize.FgHiWhite).Sprint(label))

		for _, c := range d.Cards() {
			kw := strings.Join(c.KeywordsFor(l), " · ")
			if search != "" &&
				!strings.Contains(strings.ToLower(c.LocalizedName(l)), search) &&
				!strings.Contains(strings.ToLower(c.Name), search) &&
				!strings.Contains(strings.ToLower(kw), search) {
				continue
			}
			fmt.Printf("  %s  %-22s %s\n",
				colorize.HiBlackString("%3d", c.ID),
				c.LocalizedName(l),
				colorize.YellowString("%s", kw))
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(libraryCmd)

	libraryCmd.Flags().StringP("deck", "d", "", "Deck variant (TAROT or LENORMAND)")
	libraryCmd.Flags().StringP("search", "s", "", "Filter cards by name or keyword")
}
