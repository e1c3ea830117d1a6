package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/arcanaland/lumen/internal/imagecache"
)

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Manage pre-generated card art",
}

var assetsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate static art for every card of a deck",
	Long: `Generate writes upright art for every card of a deck as
{VARIANT}_{Card_Name}.png into the asset directory, which defaults to the
configured asset root. Existing files are kept unless --force is given.
Each card is retried with exponential backoff before it is reported as failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deckFlag, _ := cmd.Flags().GetString("deck")
		outDir, _ := cmd.Flags().GetString("out")
		retries, _ := cmd.Flags().GetUint64("retries")
		force, _ := cmd.Flags().GetBool("force")

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.generates {
			return fmt.Errorf("no API key configured, set %s", a.cfg.Oracle.APIKeyEnv)
		}

		v, err := a.variant(deckFlag)
		if err != nil {
			return err
		}
		if outDir == "" {
			outDir = a.cfg.AssetRoot
		}

		res, err := imagecache.GenerateAssets(ctx, a.oracle, a.decks[v], imagecache.BatchOptions{
			OutDir:     outDir,
			MaxRetries: retries,
			Force:      force,
			Logger:     logger,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Generated %d, skipped %d, failed %d\n", len(res.Generated), len(res.Skipped), len(res.Failed))
		if len(res.Failed) > 0 {
			names := make([]string, 0, len(res.Failed))
			for name := range res.Failed {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("  %s: %v\n", name, res.Failed[name])
			}
			return fmt.Errorf("%d assets failed", len(res.Failed))
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(assetsCmd)
	assetsCmd.AddCommand(assetsGenerateCmd)

	assetsGenerateCmd.Flags().StringP("deck", "d", "", "Deck variant (TAROT or LENORMAND)")
	assetsGenerateCmd.Flags().StringP("out", "o", "", "Output directory, defaults to the configured asset root")
	assetsGenerateCmd.Flags().Uint64("retries", imagecache.DefaultMaxRetries, "Retries per card")
	assetsGenerateCmd.Flags().Bool("force", false, "Regenerate existing assets")
}
