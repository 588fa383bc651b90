package brain

import (
	"context"
	"fmt"
	"strings"
)

// MockAdapter is a deterministic local fallback used when no OpenAI key
// is configured.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) GenerateReply(_ context.Context, text, senderID string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "Could you repeat that?", nil
	}
	return fmt.Sprintf("That's an interesting point, %s. Let's hear what the others think about it.", senderID), nil
}
