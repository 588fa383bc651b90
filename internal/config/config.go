package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the roundtable service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	AuthSecret   string
	AuthIssuer   string
	AuthTokenTTL time.Duration

	DatabaseURL string

	BrainMode   string
	OpenAIKey   string
	OpenAIModel string

	TTSProvider string
	TTSBaseURL  string
	TTSVoice    string

	ReplyTimeout     time.Duration
	SynthesisTimeout time.Duration
	SendBuffer       int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "roundtable"),
		AllowAnyOrigin:   false,
		AuthSecret:       envOrDefault("AUTH_SECRET", "roundtable-dev-secret"),
		AuthIssuer:       envOrDefault("AUTH_ISSUER", "roundtable"),
		DatabaseURL:      stringsTrimSpace("DATABASE_URL"),
		BrainMode:        envOrDefault("BRAIN_MODE", "auto"),
		OpenAIKey:        stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIModel:      stringsTrimSpace("OPENAI_MODEL"),
		TTSProvider:      envOrDefault("TTS_PROVIDER", "auto"),
		TTSBaseURL:       stringsTrimSpace("TTS_BASE_URL"),
		TTSVoice:         envOrDefault("TTS_VOICE", "Brian"),
		ShutdownTimeout:  15 * time.Second,
		AuthTokenTTL:     24 * time.Hour,
		ReplyTimeout:     10 * time.Second,
		SynthesisTimeout: 8 * time.Second,
		SendBuffer:       64,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AuthTokenTTL, err = durationFromEnv("AUTH_TOKEN_TTL", cfg.AuthTokenTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.ReplyTimeout, err = durationFromEnv("REPLY_TIMEOUT", cfg.ReplyTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SynthesisTimeout, err = durationFromEnv("SYNTHESIS_TIMEOUT", cfg.SynthesisTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SendBuffer, err = intFromEnv("WS_SEND_BUFFER", cfg.SendBuffer)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.AuthSecret == "" {
		return Config{}, fmt.Errorf("AUTH_SECRET must not be empty")
	}
	if cfg.ReplyTimeout < time.Second {
		return Config{}, fmt.Errorf("REPLY_TIMEOUT must be at least 1s")
	}
	if cfg.SynthesisTimeout < time.Second {
		return Config{}, fmt.Errorf("SYNTHESIS_TIMEOUT must be at least 1s")
	}
	if cfg.SendBuffer <= 0 {
		return Config{}, fmt.Errorf("WS_SEND_BUFFER must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
