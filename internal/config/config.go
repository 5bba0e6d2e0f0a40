// Package config loads the gateway's environment-variable configuration
// once at startup (§6.5 of the specification).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds every recognized environment option.
type Config struct {
	Port string
	Host string

	TotalTimeout      time.Duration
	InactivityTimeout time.Duration
	KillGrace         time.Duration

	MCPConfigPath    string
	WorkspaceBase    string
	ClaudeExecutable string

	APIKeys []string

	LogLevel string
	NodeEnv  string

	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string

	OTELEndpoint   string
	MetricsEnabled bool

	ChunkSliceSize int
	ShowThinking   bool
}

// Load reads os.Environ() into a Config, applying the defaults from §6.5
// and §6.7. It returns an error for malformed numeric/boolean values so the
// caller can fail fast instead of silently running with nonsense timeouts.
func Load() (*Config, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determine process root: %w", err)
	}

	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		Host:              getEnv("HOST", "0.0.0.0"),
		MCPConfigPath:     getEnv("MCP_CONFIG_PATH", filepath.Join(root, "mcp-config.json")),
		WorkspaceBase:     getEnv("WORKSPACE_BASE_PATH", root),
		ClaudeExecutable:  getEnv("CLAUDE_EXECUTABLE", "claude"),
		LogLevel:          getEnv("LOG_LEVEL", "debug"),
		NodeEnv:           getEnv("NODE_ENV", "development"),
		OTELEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		AllowedOrigins:    splitCSV(getEnv("ALLOWED_ORIGINS", "*")),
	}

	cfg.TotalTimeout, err = getDurationMS("CLAUDE_TOTAL_TIMEOUT_MS", 3_600_000)
	if err != nil {
		return nil, err
	}
	cfg.InactivityTimeout, err = getDurationMS("CLAUDE_INACTIVITY_TIMEOUT_MS", 300_000)
	if err != nil {
		return nil, err
	}
	cfg.KillGrace, err = getDurationMS("PROCESS_KILL_TIMEOUT_MS", 5_000)
	if err != nil {
		return nil, err
	}

	cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 2)
	if err != nil {
		return nil, err
	}
	cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 5)
	if err != nil {
		return nil, err
	}
	cfg.ChunkSliceSize, err = getInt("CHUNK_SLICE_SIZE", 100)
	if err != nil {
		return nil, err
	}
	cfg.MetricsEnabled, err = getBool("METRICS_ENABLED", false)
	if err != nil {
		return nil, err
	}
	// SHOW_THINKING is not part of the source environment surface (§6.5);
	// it is this gateway's ambient toggle for the §4.6 thinking-envelope
	// mode, since the mini-language has no per-session field for it.
	cfg.ShowThinking, err = getBool("SHOW_THINKING", true)
	if err != nil {
		return nil, err
	}

	if keys := getEnv("API_KEYS", getEnv("API_KEY", "")); keys != "" {
		cfg.APIKeys = splitCSV(keys)
	}

	return cfg, nil
}

// AuthEnabled reports whether bearer-token authentication is active.
func (c *Config) AuthEnabled() bool {
	return len(c.APIKeys) > 0
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return f, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return b, nil
}

func getDurationMS(key string, defMS int) (time.Duration, error) {
	ms, err := getInt(key, defMS)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
