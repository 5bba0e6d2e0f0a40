package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/digitallysavvy/claude-code-gateway/internal/config"
	"github.com/digitallysavvy/claude-code-gateway/internal/coordinator"
	"github.com/digitallysavvy/claude-code-gateway/internal/gwerrors"
	"github.com/digitallysavvy/claude-code-gateway/internal/registry"
)

// modelID is the synthetic model name this gateway reports for /v1/models
// and accepts (ignoring any other value) on /v1/chat/completions (§6.1).
const modelID = "claude-code"

var errUnknownRoute = gwerrors.ErrUnknownRoute

// NewRouter builds the gateway's chi router: POST /api/claude, POST
// /v1/chat/completions, and the supporting GET endpoints (§6.1).
func NewRouter(coord *coordinator.Coordinator, cfg *config.Config, reg *registry.Registry, limiter rateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.TotalTimeout + 30*time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}))
	r.Use(authMiddleware(cfg.APIKeys))
	r.Use(rateLimitMiddleware(limiter))

	h := &handlers{coord: coord, cfg: cfg}

	r.Get("/health", handleHealth(reg, cfg))
	r.Get("/v1/models", handleModels)
	r.Post("/api/claude", h.handleNative)
	r.Post("/v1/chat/completions", h.handleOpenAI)

	if cfg.MetricsEnabled || cfg.OTELEndpoint != "" {
		r.Get("/metrics", handleMetrics(reg))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, errUnknownRoute)
	})

	return r
}

// handleHealth implements §4.10: "healthy" with 200 in the ordinary case,
// "unhealthy" with 503 when the workspace base path cannot be written to.
// The distilled spec also describes a "degraded" tier for a failed MCP
// config load, but mcpconfig.Load only ever errors on malformed JSON (a
// missing file yields an empty, valid registry) — this gateway treats a
// malformed MCP config as a startup-fatal error instead (cmd/gateway/main.go),
// so that tier is unreachable by construction and intentionally not
// modeled here.
func handleHealth(reg *registry.Registry, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		code := http.StatusOK
		if !workspaceWritable(cfg.WorkspaceBase) {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":         status,
			"timestamp":      time.Now().UTC().Format(time.RFC3339),
			"activeSessions": reg.Len(),
		})
	}
}

func workspaceWritable(base string) bool {
	probe := filepath.Join(base, ".health-check")
	f, err := os.Create(probe)
	if err != nil {
		return false
	}
	_ = f.Close()
	_ = os.Remove(probe)
	return true
}

// handleMetrics exposes the one gauge the gateway tracks directly (active
// supervisor count) in Prometheus exposition format. NewRouter mounts it
// only when METRICS_ENABLED is true or OTEL_EXPORTER_OTLP_ENDPOINT is set
// (§6.7), so an operator without a scraper pays nothing.
func handleMetrics(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(
			"# HELP claude_gateway_active_sessions Number of currently spawned child processes\n" +
				"# TYPE claude_gateway_active_sessions gauge\n" +
				"claude_gateway_active_sessions " + strconv.Itoa(reg.Len()) + "\n",
		))
	}
}

// handleModels reports a single synthetic model entry so OpenAI-compatible
// clients that call /v1/models before chatting succeed (§6.1).
func handleModels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": modelID, "object": "model", "owned_by": "claude-code-gateway"},
		},
	})
}
