package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ostrand/lansweep/internal/api"
	"github.com/ostrand/lansweep/internal/logging"
	"github.com/ostrand/lansweep/internal/metrics"
	"github.com/ostrand/lansweep/internal/scan"
)

var (
	serveListenAddr string
	servePort       int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Start the lansweep HTTP server. The server exposes scan control
and progress endpoints under /api/v1, Prometheus metrics on /metrics,
and serves the static status UI when configured.`,
	Example: `  lansweep serve
  lansweep serve --listen 0.0.0.0 --port 9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListenAddr, "listen", "", "Listen address (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListenAddr != "" {
		cfg.API.ListenAddr = serveListenAddr
	}
	if servePort != 0 {
		cfg.API.Port = servePort
	}

	logger := logging.Default().WithComponent("serve")

	m := metrics.New()
	engine := scan.New(logging.Default(), m)
	server := api.New(cfg, engine, m, getVersion())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Server starting", "address", server.GetAddress())
	if err := server.Start(ctx); err != nil {
		return err
	}

	// A scan may still be draining after shutdown; cancel it so the
	// process exits promptly.
	engine.Cancel()
	logger.Info("Server stopped")
	return nil
}
