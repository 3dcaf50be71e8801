// Package config loads gateway settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Credential names read from the environment and resolvable per session.
var secretNames = []string{
	"ASSEMBLYAI_API_KEY",
	"GEMINI_API_KEY",
	"MURF_API_KEY",
	"TAVILY_API_KEY",
	"MURF_WS_URL",
	"MURF_CONTEXT_ID",
	"AGENT_PERSONA",
}

type Config struct {
	ListenAddr      string
	StaticDir       string
	GeminiModel     string
	SampleRate      int
	ReplyWorkers    int
	HistoryCap      int
	ShutdownTimeout time.Duration

	// Secrets holds the process-wide credential defaults, keyed by
	// upper-case name. Sessions may override entries via set_keys.
	Secrets map[string]string
}

// LoadFromEnv reads configuration, applying defaults for anything unset.
// Tunables use the BUDDY_ prefix; credential names are unprefixed because
// they are shared with the upstream services' conventions.
func LoadFromEnv() Config {
	cfg := Config{
		ListenAddr:      envOr("BUDDY_LISTEN_ADDR", ":8000"),
		StaticDir:       envOr("BUDDY_STATIC_DIR", "static"),
		GeminiModel:     envOr("BUDDY_GEMINI_MODEL", "gemini-1.5-flash"),
		SampleRate:      envIntOr("BUDDY_SAMPLE_RATE", 16000),
		ReplyWorkers:    envIntOr("BUDDY_REPLY_WORKERS", 8),
		HistoryCap:      envIntOr("BUDDY_HISTORY_CAP", 0),
		ShutdownTimeout: envDurationOr("BUDDY_SHUTDOWN_TIMEOUT", 10*time.Second),
		Secrets:         make(map[string]string, len(secretNames)),
	}
	for _, name := range secretNames {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			cfg.Secrets[name] = v
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
