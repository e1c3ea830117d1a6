package cmd

import (
	"fmt"
	"os"

	"github.com/arcanaland/lumen/internal/validator"
	"github.com/spf13/cobra"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [pack.toml]",
	Short: "Validate a deck pack",
	Long: `Validate checks that a deck pack names a known variant, only overrides cards
of that variant, and carries text for every supported locale. With --assets it
also checks that pre-generated art exists for every card.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		packPath := args[0]
		assetDir, _ := cmd.Flags().GetString("assets")

		if _, err := os.Stat(packPath); os.IsNotExist(err) {
			return fmt.Errorf("deck pack not found: %s", packPath)
		}

		v := validator.NewValidator(packPath, assetDir)
		results, err := v.Validate()
		if err != nil {
			return fmt.Errorf("validation error: %v", err)
		}

		fmt.Println("Validation Results:")
		fmt.Println("-------------------")

		if results.OK() {
			fmt.Printf("✅ Pack '%s' is valid.\n", packPath)
		} else {
			fmt.Printf("❌ Pack '%s' has %d validation errors:\n", packPath, len(results.Errors))
			for i, err := range results.Errors {
				fmt.Printf("%d. %s\n", i+1, err)
			}
		}

		if len(results.Warnings) > 0 {
			fmt.Println("\nWarnings:")
			for i, warn := range results.Warnings {
				fmt.Printf("%d. %s\n", i+1, warn)
			}
		}

		if !results.OK() {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().String("assets", "", "Directory of pre-generated card art to check")
}
