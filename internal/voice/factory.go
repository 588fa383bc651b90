package voice

import (
	"fmt"
	"strings"
)

// NewSynthesizer selects a provider by mode. "auto" currently resolves
// to StreamElements, which needs no credentials.
func NewSynthesizer(mode string, cfg StreamElementsConfig) (Synthesizer, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto", "streamelements":
		return NewStreamElementsProvider(cfg), nil
	case "mock":
		return NewMockSynthesizer(), nil
	default:
		return nil, fmt.Errorf("invalid tts provider: %q (expected auto|streamelements|mock)", mode)
	}
}
