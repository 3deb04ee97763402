// Package config loads the engine's own bootstrap configuration: the
// Anthropic API key, step budget, LLM timeout, and optional Redis cache
// URL. This is the core's configuration, not the out-of-scope transport
// front-end's auth/config.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the engine's process-wide bootstrap configuration.
type Config struct {
	// AnthropicAPIKey authenticates the LLM Adapter's Anthropic client.
	AnthropicAPIKey string
	// AnthropicModel is the Claude model identifier the adapter targets.
	AnthropicModel string
	// MaxSteps bounds the Executor's agent-invocation loop (§4.7).
	MaxSteps int
	// LLMTimeout bounds a single inference call (§4.4.4).
	LLMTimeout time.Duration
	// RedisURL, if set, backs the LLM decision cache with Redis instead of
	// the in-process fallback.
	RedisURL string
}

// Default mirrors the spec's defaults: MAX_STEPS=50, a 30s LLM timeout.
func Default() Config {
	return Config{
		AnthropicModel: "claude-sonnet-4-5",
		MaxSteps:       50,
		LLMTimeout:     30 * time.Second,
	}
}

// Load loads .env.local then .env (first file wins on conflicting keys, same
// priority order as the teacher's LoadEnvFiles), then overlays process
// environment variables onto Default(). A missing .env file is not an
// error; a malformed one is.
func Load() (Config, error) {
	cfg := Default()

	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_MODEL"); v != "" {
		cfg.AnthropicModel = v
	}
	if v := os.Getenv("WORKFLOW_MAX_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSteps = n
		}
	}
	if v := os.Getenv("WORKFLOW_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.LLMTimeout = d
		}
	}
	if v := os.Getenv("WORKFLOW_REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	return cfg, nil
}
