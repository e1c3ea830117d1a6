package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arcanaland/lumen/internal/quota"
)

// profileWriter is implemented by every profile store lumen ships
type profileWriter interface {
	UpsertProfile(ctx context.Context, p quota.Profile) error
}

var quotaCmd = &cobra.Command{
	Use:   "quota [user]",
	Short: "Show a user's remaining readings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		u := a.gate.CheckUsage(cmd.Context(), args[0])
		switch {
		case u.Unlimited:
			fmt.Printf("%s: unlimited\n", args[0])
		case u.CanUse:
			fmt.Printf("%s: %d of %d readings left\n", args[0], u.Remaining, a.gate.Limit())
		default:
			fmt.Printf("%s: no readings left (limit %d)\n", args[0], a.gate.Limit())
		}
		return nil
	},
}

var quotaUseCmd = &cobra.Command{
	Use:   "use [user]",
	Short: "Consume one reading from a user's quota",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		ok, err := a.gate.IncrementUsage(cmd.Context(), args[0])
		if errors.Is(err, quota.ErrUsageLimitExceeded) {
			return fmt.Errorf("%s has no readings left", args[0])
		}
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no profile for %s, create one with 'lumen profile set'", args[0])
		}
		fmt.Println("Recorded one reading for", args[0])
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage user profiles",
}

var profileSetCmd = &cobra.Command{
	Use:   "set [user]",
	Short: "Create or update a user profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		usage, _ := cmd.Flags().GetInt("usage")
		unlimited, _ := cmd.Flags().GetBool("unlimited")
		if usage < 0 {
			return fmt.Errorf("usage must not be negative")
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		w, ok := a.profiles.(profileWriter)
		if !ok {
			return fmt.Errorf("the %s profile store is read-only", a.cfg.Quota.Backend)
		}

		p := quota.Profile{UserID: args[0], UsageCount: usage, Unlimited: unlimited}
		if err := w.UpsertProfile(cmd.Context(), p); err != nil {
			return err
		}
		fmt.Printf("Profile %s: usage %d, unlimited %t\n", p.UserID, p.UsageCount, p.Unlimited)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(quotaCmd)
	quotaCmd.AddCommand(quotaUseCmd)

	RootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileSetCmd)

	profileSetCmd.Flags().Int("usage", 0, "Readings already used")
	profileSetCmd.Flags().Bool("unlimited", false, "Exempt the user from the quota")
}
