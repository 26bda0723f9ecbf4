package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"saphira/server/internal/config"
)

func TestOpenAIClientComplete(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"text\":\"Tell me about yourself.\"}"}}]}`))
	}))
	defer ts.Close()

	client := NewOpenAIClient(config.LLMProviderConfig{APIURL: ts.URL, APIKey: "dummy", Model: "gpt-4o"}, time.Second)
	res, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, &JSONSchema{Name: "turn"})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if res != `{"text":"Tell me about yourself."}` {
		t.Fatalf("unexpected content: %s", res)
	}
	if gotAuth != "Bearer dummy" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if _, ok := gotBody["response_format"]; !ok {
		t.Fatalf("schema should be sent as response_format")
	}
}

func TestOpenAIClientStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer ts.Close()

	client := NewOpenAIClient(config.LLMProviderConfig{APIURL: ts.URL, Model: "gpt-4o"}, time.Second)
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected StatusError 429, got %v", err)
	}
}

func TestOpenAIClientEmptyContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
	}))
	defer ts.Close()

	client := NewOpenAIClient(config.LLMProviderConfig{APIURL: ts.URL, Model: "gpt-5-mini"}, time.Second)
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOpenAIClientMalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway says hello</html>`))
	}))
	defer ts.Close()

	client := NewOpenAIClient(config.LLMProviderConfig{APIURL: ts.URL, Model: "gpt-4o"}, time.Second)
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	var statusErr *StatusError
	if !errors.Is(err, ErrMalformedResponse) || errors.As(err, &statusErr) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestAnthropicClientComplete(t *testing.T) {
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-haiku-4-5-20251001",
  "content": [{"type": "text", "text": "Walk me through your last project?"}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 10, "output_tokens": 8}
}`))
	}))
	defer ts.Close()

	client := NewAnthropicClient(config.LLMProviderConfig{APIURL: ts.URL, APIKey: "dummy", Model: "claude-haiku-4-5-20251001", MaxTokens: 200}, 5*time.Second)
	res, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "You are a panelist."},
		{Role: "user", Content: "Next question please."},
	}, nil)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if res != "Walk me through your last project?" {
		t.Fatalf("unexpected content: %q", res)
	}
	if _, ok := gotBody["system"]; !ok {
		t.Fatalf("system prompt should be sent separately: %v", gotBody)
	}
}

func TestNewClientNoneProvider(t *testing.T) {
	cfg := config.Default()
	client, err := NewClient(cfg)
	if err != nil || client != nil {
		t.Fatalf("expected nil client for provider none, got %v %v", client, err)
	}
	cfg.LLM.Provider = "mystery"
	if _, err := NewClient(cfg); err == nil {
		t.Fatalf("expected error for unsupported provider")
	}
}

func TestMockClientSequence(t *testing.T) {
	m := &MockClient{Responses: []string{"a", "b"}}
	for _, want := range []string{"a", "b", "b"} {
		got, err := m.Complete(context.Background(), nil, nil)
		if err != nil || got != want {
			t.Fatalf("got %q %v, want %q", got, err, want)
		}
	}
	if m.Calls() != 3 {
		t.Fatalf("expected 3 calls, got %d", m.Calls())
	}
}
