package cmd

import (
	"fmt"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past readings",
}

var historyListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List past readings, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		entries := a.history.List()
		if len(entries) == 0 {
			fmt.Println("No readings yet. Run 'lumen read' to ask your first question.")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("%s  %s  %-9s %-9s %s\n",
				colorize.HiBlackString(e.ID),
				e.CreatedAt.Local().Format("2006-01-02 15:04"),
				e.Deck, e.Intent,
				colorize.HiWhiteString("%s", e.Question))
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a past reading again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		e, err := a.history.Get(args[0])
		if err != nil {
			return err
		}

		m := a.newMachine()
		defer m.Close()
		if err := m.Recall(e); err != nil {
			return err
		}

		r := &ritual{app: a, m: m}
		r.show(ctx, m.Snapshot())
		fmt.Println(colorize.HiBlackString("Asked %s", e.CreatedAt.Local().Format("Mon Jan 2 2006 15:04")))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
}

