package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	logger    = slog.Default()
	debugFlag bool
	jsonLogs  bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "Tarot and Lenormand readings in the terminal and over HTTP",
	Long: `Lumen draws Tarot and Lenormand spreads and asks a generative model to
interpret them. It can run a reading interactively in the terminal or serve
reading sessions to the web client.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if cmd.Name() == "serve" {
			level = slog.LevelInfo
		}
		if debugFlag || os.Getenv("DEBUG") == "true" {
			level = slog.LevelDebug
		}
		opts := &slog.HandlerOptions{Level: level}

		var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if jsonLogs {
			h = slog.NewJSONHandler(os.Stdout, opts)
		}
		logger = slog.New(h)
		slog.SetDefault(logger)
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	RootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Write structured JSON logs to stdout")

	RootCmd.AddCommand(validateCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}
