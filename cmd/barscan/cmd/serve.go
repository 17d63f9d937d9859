package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/server"
)

var serveFlags = map[string]string{
	"host":                "server.host",
	"port":                "server.port",
	"cors-origin":         "server.cors_origin",
	"max-upload-mb":       "server.max_upload_mb",
	"timeout":             "server.timeout_sec",
	"shutdown-timeout":    "server.shutdown_timeout",
	"overlay-enable":      "server.overlay_enabled",
	"rate-limit":          "server.rate_limit.enabled",
	"requests-per-minute": "server.rate_limit.requests_per_minute",
	"burst":               "server.rate_limit.burst",
}

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the barcode decoding HTTP server",
	Long: `Start an HTTP server that decodes barcodes in uploaded images.

Endpoints:
  POST /decode-barcode     multipart field "image" (alias POST /api/v1/decode)
  POST /api/v1/decode-pdf  multipart field "pdf", optional "pages"
  GET  /ws/decode          websocket, one image per frame
  GET  /health             health check
  GET  /api/v1/info        active pipeline configuration
  GET  /metrics            Prometheus metrics

Examples:
  barscan serve
  barscan serve --port 8080 --step 15
  barscan serve --detector onnx --model detection/barcode_nano.onnx`,
	PreRunE: bindFlags(merge(pipelineFlags, serveFlags)),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		srv, err := server.NewServer(serverConfig(cfg))
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()
		return runServer(ctx, srv, cfg.Server)
	},
}

// serverConfig maps the resolved configuration onto the server.
func serverConfig(cfg *config.Config) server.Config {
	sc := server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		CORSOrigin:     cfg.Server.CORSOrigin,
		MaxUploadMB:    int64(cfg.Server.MaxUploadMB),
		TimeoutSec:     cfg.Server.TimeoutSec,
		OverlayEnabled: cfg.Server.OverlayEnabled,
		PipelineConfig: cfg.ToPipelineConfig(),
	}
	if cfg.Server.RateLimit.Enabled {
		sc.RateLimitPerMinute = cfg.Server.RateLimit.RequestsPerMinute
		sc.RateLimitBurst = cfg.Server.RateLimit.Burst
	}
	return sc
}

// runServer serves until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, srv *server.Server, sc config.ServerConfig) error {
	defer func() {
		if err := srv.Close(); err != nil {
			slog.Error("Server cleanup error", "error", err)
		}
	}()

	timeout := time.Duration(sc.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port)),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		// Leave room to write the 504 after the decode deadline.
		WriteTimeout: timeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting barscan server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(sc.ShutdownTimeout)*time.Second)
	defer cancel()
	slog.Info("Starting graceful shutdown", "timeout", time.Duration(sc.ShutdownTimeout)*time.Second)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	slog.Info("Graceful shutdown completed")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	d := config.DefaultConfig().Server
	fs := serveCmd.Flags()
	fs.StringP("host", "H", d.Host, "server host")
	fs.IntP("port", "p", d.Port, "server port")
	fs.String("cors-origin", d.CORSOrigin, "CORS allowed origin")
	fs.Int("max-upload-mb", d.MaxUploadMB, "maximum upload size in MB")
	fs.Int("timeout", d.TimeoutSec, "per-request decode timeout in seconds")
	fs.Int("shutdown-timeout", d.ShutdownTimeout, "graceful shutdown timeout in seconds")
	fs.Bool("overlay-enable", d.OverlayEnabled, "allow ?format=overlay PNG responses")
	fs.Bool("rate-limit", d.RateLimit.Enabled, "enable per-client rate limiting")
	fs.Int("requests-per-minute", d.RateLimit.RequestsPerMinute, "sustained requests per minute per client")
	fs.Int("burst", d.RateLimit.Burst, "request burst per client")
	addPipelineFlags(fs)
}
