package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCreateTranscriptionToken(t *testing.T) {
	var got TranscriptionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/realtime/transcription_sessions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"client_secret":{"value":"ek_123","expires_at":1767225600}}`))
	}))
	defer srv.Close()

	c := &Client{APIKey: "sk-test", BaseURL: srv.URL}
	tok, err := c.CreateTranscriptionToken(context.Background(), NewTranscriptionRequest("gpt-4o-transcribe", "Nigerian English"))
	if err != nil {
		t.Fatalf("CreateTranscriptionToken: %v", err)
	}
	if tok.ClientSecret.Value != "ek_123" || tok.ClientSecret.ExpiresAt == 0 {
		t.Fatalf("unexpected token: %+v", tok)
	}
	if got.InputAudioTranscription.Model != "gpt-4o-transcribe" || got.TurnDetection == nil || got.TurnDetection.Type != "server_vad" {
		t.Fatalf("unexpected request body: %+v", got)
	}
}

func TestCreateTranscriptionTokenErrors(t *testing.T) {
	if _, err := (&Client{}).CreateTranscriptionToken(context.Background(), TranscriptionRequest{}); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()
	_, err := (&Client{APIKey: "x", BaseURL: srv.URL}).CreateTranscriptionToken(context.Background(), TranscriptionRequest{})
	if err == nil || !strings.Contains(err.Error(), "status=401") {
		t.Fatalf("expected status error, got %v", err)
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"client_secret":{"value":""}}`))
	}))
	defer empty.Close()
	if _, err := (&Client{APIKey: "x", BaseURL: empty.URL}).CreateTranscriptionToken(context.Background(), TranscriptionRequest{}); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
