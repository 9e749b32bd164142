package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/mesh-intelligence/grove/internal/httpapi"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tree over HTTP",
		Long:  "Serve the REST API under /v1, Prometheus metrics on /metrics and a health check on /healthz.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tree, err := a.open(ctx)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.config.GetString(cfgKeyListenAddr)
			}
			if a.tracer != nil {
				otel.SetTracerProvider(a.tracer)
			}
			if !a.logger.Enabled(ctx, slog.LevelDebug) {
				gin.SetMode(gin.ReleaseMode)
			}

			if err := httpapi.Serve(ctx, addr, httpapi.NewRouter(tree, nil)); err != nil {
				return systemError{err}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: listen_addr from config.yaml, "+defaultListenAddr+")")
	return cmd
}
