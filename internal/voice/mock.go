package voice

import "context"

// MockSynthesizer is a local fallback provider: the "audio" is just the
// reply text bytes, which keeps the full pipeline exercisable offline.
type MockSynthesizer struct{}

func NewMockSynthesizer() *MockSynthesizer { return &MockSynthesizer{} }

func (s *MockSynthesizer) Synthesize(_ context.Context, text string) ([]byte, string, error) {
	return []byte(text), "mock_text_bytes", nil
}
