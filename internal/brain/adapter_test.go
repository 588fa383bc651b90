package brain

import (
	"context"
	"strings"
	"testing"
)

func TestNewAdapterAutoWithoutKeyIsMock(t *testing.T) {
	a, err := NewAdapter(Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	if _, ok := a.(*MockAdapter); !ok {
		t.Fatalf("adapter type = %T, want *MockAdapter", a)
	}
}

func TestNewAdapterAutoWithKeyIsOpenAI(t *testing.T) {
	a, err := NewAdapter(Config{Mode: "auto", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	if _, ok := a.(*OpenAIAdapter); !ok {
		t.Fatalf("adapter type = %T, want *OpenAIAdapter", a)
	}
}

func TestNewAdapterOpenAIRequiresKey(t *testing.T) {
	if _, err := NewAdapter(Config{Mode: "openai"}); err == nil {
		t.Fatalf("NewAdapter(openai) without key must fail")
	}
}

func TestNewAdapterRejectsUnknownMode(t *testing.T) {
	if _, err := NewAdapter(Config{Mode: "oracle"}); err == nil {
		t.Fatalf("NewAdapter accepted unknown mode")
	}
}

func TestMockAdapterReplies(t *testing.T) {
	a := NewMockAdapter()

	reply, err := a.GenerateReply(context.Background(), "What do you all think?", "alice")
	if err != nil {
		t.Fatalf("GenerateReply() error = %v", err)
	}
	if !strings.Contains(reply, "alice") {
		t.Fatalf("reply %q does not address the sender", reply)
	}

	reply, err = a.GenerateReply(context.Background(), "   ", "alice")
	if err != nil {
		t.Fatalf("GenerateReply() error = %v", err)
	}
	if reply != "Could you repeat that?" {
		t.Fatalf("reply to empty utterance = %q", reply)
	}
}
