package voice

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/antoniostano/roundtable/internal/reliability"
)

const (
	// The upstream endpoint rejects long inputs; trim rather than fail.
	maxUtteranceChars = 200

	retryBackoffBase = 200 * time.Millisecond
	retryBackoffCap  = 1 * time.Second
)

// StreamElementsConfig configures the hosted TTS provider.
type StreamElementsConfig struct {
	BaseURL string
	Voice   string
}

// StreamElementsProvider synthesizes speech through the StreamElements
// speech endpoint. Responses are mp3 bytes.
type StreamElementsProvider struct {
	baseURL string
	voice   string
	client  *http.Client
}

func NewStreamElementsProvider(cfg StreamElementsConfig) *StreamElementsProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.streamelements.com/kappa/v2/speech"
	}
	voice := cfg.Voice
	if voice == "" {
		voice = "Brian"
	}
	return &StreamElementsProvider{
		baseURL: baseURL,
		voice:   voice,
		client:  &http.Client{},
	}
}

func (p *StreamElementsProvider) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if len(text) > maxUtteranceChars {
		text = text[:maxUtteranceChars]
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(reliability.ExponentialBackoff(attempt, retryBackoffBase, retryBackoffCap)):
			}
		}

		audio, retryable, err := p.fetch(ctx, text)
		if err == nil {
			return audio, "mp3", nil
		}
		lastErr = err
		if !retryable {
			break
		}
		log.Debug().Str("module", "voice.streamelements").Int("attempt", attempt).Err(err).Msg("retrying synthesis")
	}
	return nil, "", lastErr
}

func (p *StreamElementsProvider) fetch(ctx context.Context, text string) ([]byte, bool, error) {
	q := url.Values{}
	q.Set("voice", p.voice)
	q.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("build tts request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, reliability.IsRetryableHTTPStatus(resp.StatusCode),
			fmt.Errorf("tts status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read tts response: %w", err)
	}
	return audio, false, nil
}
