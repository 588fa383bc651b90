// Package brain exposes the reply-generation capability consumed by the
// reply pipeline: one utterance in, one reply text out. Providers are
// interchangeable behind the Adapter interface; failure handling lives
// in the pipeline, not here.
package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Adapter generates one reply to a spoken-text utterance.
type Adapter interface {
	GenerateReply(ctx context.Context, text, senderID string) (string, error)
}

// Config controls adapter construction.
type Config struct {
	Mode   string
	APIKey string
	Model  string
}

// NewAdapter selects a provider by mode. "auto" prefers OpenAI when an
// API key is configured and falls back to the mock otherwise.
func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewOpenAIAdapter(cfg.APIKey, cfg.Model), nil
		}
		return NewMockAdapter(), nil
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("openai api key is required for openai mode")
		}
		return NewOpenAIAdapter(cfg.APIKey, cfg.Model), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("invalid brain mode: %q (expected auto|openai|mock)", cfg.Mode)
	}
}
