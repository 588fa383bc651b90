package voice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSynthesizeFetchesAudio(t *testing.T) {
	var gotVoice, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVoice = r.URL.Query().Get("voice")
		gotText = r.URL.Query().Get("text")
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	p := NewStreamElementsProvider(StreamElementsConfig{BaseURL: srv.URL, Voice: "Amy"})
	audio, format, err := p.Synthesize(context.Background(), "Hello there")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("audio = %q", audio)
	}
	if format != "mp3" {
		t.Fatalf("format = %q, want mp3", format)
	}
	if gotVoice != "Amy" || gotText != "Hello there" {
		t.Fatalf("request params = (%q, %q)", gotVoice, gotText)
	}
}

func TestSynthesizeTrimsLongText(t *testing.T) {
	var gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotText = r.URL.Query().Get("text")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	p := NewStreamElementsProvider(StreamElementsConfig{BaseURL: srv.URL})
	long := strings.Repeat("a", 350)
	if _, _, err := p.Synthesize(context.Background(), long); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(gotText) != maxUtteranceChars {
		t.Fatalf("sent %d chars, want %d", len(gotText), maxUtteranceChars)
	}
}

func TestSynthesizeRetriesOnServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	p := NewStreamElementsProvider(StreamElementsConfig{BaseURL: srv.URL})
	audio, _, err := p.Synthesize(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "recovered" {
		t.Fatalf("audio = %q", audio)
	}
	if calls != 2 {
		t.Fatalf("upstream called %d times, want 2", calls)
	}
}

func TestSynthesizeDoesNotRetryClientError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewStreamElementsProvider(StreamElementsConfig{BaseURL: srv.URL})
	if _, _, err := p.Synthesize(context.Background(), "hi"); err == nil {
		t.Fatalf("expected error on 400")
	}
	if calls != 1 {
		t.Fatalf("upstream called %d times, want 1", calls)
	}
}

func TestNewSynthesizerModes(t *testing.T) {
	if s, err := NewSynthesizer("mock", StreamElementsConfig{}); err != nil {
		t.Fatalf("NewSynthesizer(mock) error = %v", err)
	} else if _, ok := s.(*MockSynthesizer); !ok {
		t.Fatalf("synthesizer type = %T, want *MockSynthesizer", s)
	}

	for _, mode := range []string{"", "auto", "StreamElements"} {
		if s, err := NewSynthesizer(mode, StreamElementsConfig{}); err != nil {
			t.Fatalf("NewSynthesizer(%q) error = %v", mode, err)
		} else if _, ok := s.(*StreamElementsProvider); !ok {
			t.Fatalf("NewSynthesizer(%q) type = %T", mode, s)
		}
	}

	if _, err := NewSynthesizer("espeak", StreamElementsConfig{}); err == nil {
		t.Fatalf("NewSynthesizer accepted unknown provider")
	}
}
