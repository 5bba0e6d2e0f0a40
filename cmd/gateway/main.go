// Command gateway runs the Claude Code HTTP gateway: it loads
// configuration from the environment, wires the RequestCoordinator and
// its collaborators, and serves the native and OpenAI-compatible
// streaming endpoints until signaled to shut down.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/digitallysavvy/claude-code-gateway/internal/config"
	"github.com/digitallysavvy/claude-code-gateway/internal/coordinator"
	"github.com/digitallysavvy/claude-code-gateway/internal/httpapi"
	"github.com/digitallysavvy/claude-code-gateway/internal/mcpconfig"
	"github.com/digitallysavvy/claude-code-gateway/internal/ratelimit"
	"github.com/digitallysavvy/claude-code-gateway/internal/registry"
	"github.com/digitallysavvy/claude-code-gateway/internal/telemetry"
	"github.com/digitallysavvy/claude-code-gateway/internal/workspace"
)

func main() {
	// A missing .env is not an error: the gateway is equally at home
	// reading its configuration straight from the process environment.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "gateway",
		Short: "HTTP gateway exposing a local coding-agent child process over SSE",
		RunE:  runServe,
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	mcp, err := mcpconfig.Load(cfg.MCPConfigPath)
	if err != nil {
		return fmt.Errorf("load mcp config: %w", err)
	}

	telemetrySettings := telemetry.DefaultSettings()
	if cfg.OTELEndpoint != "" {
		shutdown, err := telemetry.InstallExporter(cmd.Context(), cfg.OTELEndpoint, "claude-code-gateway")
		if err != nil {
			return fmt.Errorf("install otel exporter: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
		telemetrySettings.IsEnabled = true
	}

	reg := registry.New()
	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst)
	ws := workspace.New(cfg.WorkspaceBase)

	coord := coordinator.New(coordinator.Deps{
		Workspace: ws,
		MCP:       mcp,
		Registry:  reg,
		Config:    cfg,
		Logger:    logger,
		Telemetry: telemetrySettings,
	})

	router := httpapi.NewRouter(coord, cfg, reg, limiter)

	srv := &http.Server{
		Addr:         cfg.Host + ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.TotalTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("gateway listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Cancel every live child process first: a graceful HTTP shutdown
	// alone would wait forever for in-flight SSE streams, which by
	// design stay open for up to CLAUDE_TOTAL_TIMEOUT_MS.
	reg.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
