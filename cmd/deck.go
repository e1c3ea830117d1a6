package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/arcanaland/lumen/internal/config"
	"github.com/arcanaland/lumen/internal/deck"
	"github.com/spf13/cobra"
)

// deckCmd represents the deck command group
var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Manage decks and deck packs",
	Long: `Commands for managing the decks lumen draws from. Every variant has a built-in
deck; TOML packs in the deck library override its names, meanings and art style.`,
}

// deckListCmd represents the deck list command
var deckListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List available decks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		decks, err := deck.LoadAll(config.GetDeckLibraryPath())
		if err != nil {
			return fmt.Errorf("error loading deck library: %v", err)
		}

		variants := make([]deck.Variant, 0, len(decks))
		for v := range decks {
			variants = append(variants, v)
		}
		sort.Slice(variants, func(i, j int) bool { return variants[i] < variants[j] })

		for _, v := range variants {
			d := decks[v]
			source := "built-in"
			if d.Path != "" {
				source = d.Path
			}
			line := fmt.Sprintf("%-10s %s (%d cards, %s)", v, d.Name, d.Len(), source)
			if string(v) == cfg.DefaultDeck {
				fmt.Printf("* %s [DEFAULT]\n", line)
			} else {
				fmt.Printf("  %s\n", line)
			}
		}
		return nil
	},
}

// deckSetDefaultCmd represents the deck set-default command
var deckSetDefaultCmd = &cobra.Command{
	Use:   "set-default [variant]",
	Short: "Set the default deck",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := deck.ParseVariant(args[0])
		if err != nil {
			return err
		}

		if err := config.SetDefaultDeck(string(v)); err != nil {
			return fmt.Errorf("error setting default deck: %v", err)
		}

		fmt.Printf("Default deck set to: %s\n", v)
		return nil
	},
}

// deckInitCmd represents the deck init command
var deckInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the deck library and config",
	RunE: func(cmd *cobra.Command, args []string) error {
		libraryPath := config.GetDeckLibraryPath()

		if err := os.MkdirAll(libraryPath, 0755); err != nil {
			return fmt.Errorf("error creating deck library: %v", err)
		}

		fmt.Println("Deck library initialized at:", libraryPath)
		fmt.Println("You can now add deck packs by copying .toml files to this directory.")

		if _, err := config.LoadConfig(); err != nil {
			return fmt.Errorf("error initializing config: %v", err)
		}

		fmt.Println("Config file initialized at:", config.GetConfigFilePath())
		return nil
	},
}

// deckValidateCmd validates a pack, the same as the top level validate command
var deckValidateCmd = &cobra.Command{
	Use:   "validate [pack.toml]",
	Short: validateCmd.Short,
	Args:  cobra.ExactArgs(1),
	RunE:  validateCmd.RunE,
}

// initCmd is the top level shortcut for deck init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: deckInitCmd.Short,
	RunE:  deckInitCmd.RunE,
}

func init() {
	RootCmd.AddCommand(deckCmd)
	RootCmd.AddCommand(initCmd)
	deckCmd.AddCommand(deckValidateCmd)
	deckCmd.AddCommand(deckListCmd)
	deckCmd.AddCommand(deckSetDefaultCmd)
	deckCmd.AddCommand(deckInitCmd)

	deckValidateCmd.Flags().String("assets", "", "Directory of pre-generated card art to check")
}
