package cmd

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arcanaland/lumen/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve reading sessions over HTTP",
	Long: `Serve exposes reading sessions to the web client as a JSON API, along with
/healthz and Prometheus /metrics. The signed-in user is taken from the
X-User-ID header set by the authenticating proxy in front of lumen.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if addr == "" {
			addr = a.cfg.Server.Addr
		}

		logger.Info("starting lumen",
			slog.String("addr", addr),
			slog.String("quota_backend", a.cfg.Quota.Backend),
			slog.Bool("generation", a.generates),
		)

		srv := server.New(server.Config{
			Addr:       addr,
			NewMachine: a.newMachine,
			History:    a.history,
			Usage:      a.gate,
			Logger:     logger,
		})
		err = srv.ListenAndServe(ctx)
		logger.Info("lumen stopped")
		return err
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address, defaults to the configured server address")
}

