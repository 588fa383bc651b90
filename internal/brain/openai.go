package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = "You are an AI participant in a group discussion. " +
	"Respond concisely and clearly in spoken English."

// OpenAIAdapter generates replies through the OpenAI Chat Completions
// API using the official client.
type OpenAIAdapter struct {
	client *openai.Client
	model  string
}

func NewOpenAIAdapter(apiKey, model string) *OpenAIAdapter {
	if strings.TrimSpace(model) == "" {
		model = openai.ChatModelGPT4oMini
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIAdapter{client: &client, model: model}
}

func (a *OpenAIAdapter) GenerateReply(ctx context.Context, text, senderID string) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(fmt.Sprintf("%s: %s", senderID, text)),
		},
		Model: a.model,
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
