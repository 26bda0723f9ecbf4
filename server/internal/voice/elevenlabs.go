package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"saphira/server/internal/config"
)

const (
	elevenLabsOutputFormat = "mp3_44100_128"

	defaultMaxAttempts    = 3
	defaultInitialBackoff = 1 * time.Second
	defaultBackoffMulti   = 2
	defaultMaxBackoff     = 10 * time.Second
)

// AudioSink 接收合成好的音频（mp3）。为 nil 时丢弃。
type AudioSink func(ctx context.Context, voiceID string, audio []byte) error

// RetryableError 429 与 5xx，可以重试。
type RetryableError struct {
	StatusCode int
	Body       string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

type elevenLabsRequest struct {
	Text          string                 `json:"text"`
	ModelID       string                 `json:"model_id"`
	VoiceSettings *elevenLabsVoiceParams `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceParams struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

// ElevenLabsSpeaker 通过 ElevenLabs TTS 合成语音，再交给 sink 播放或转发。
type ElevenLabsSpeaker struct {
	apiKey     string
	baseURL    string
	modelID    string
	sink       AudioSink
	httpClient *http.Client

	initialBackoff time.Duration
}

func NewElevenLabsSpeaker(cfg config.VoiceConfig, sink AudioSink) *ElevenLabsSpeaker {
	return &ElevenLabsSpeaker{
		apiKey:         cfg.APIKey,
		baseURL:        cfg.BaseURL,
		modelID:        cfg.ModelID,
		sink:           sink,
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		initialBackoff: defaultInitialBackoff,
	}
}

func (s *ElevenLabsSpeaker) Speak(ctx context.Context, text, voiceID string) error {
	var audio []byte
	err := withRetry(ctx, s.initialBackoff, func() error {
		var err error
		audio, err = s.Synthesize(ctx, text, voiceID)
		return err
	})
	if err != nil {
		return err
	}
	if s.sink == nil {
		return nil
	}
	return s.sink(ctx, voiceID, audio)
}

// Synthesize 单次请求，不重试。
func (s *ElevenLabsSpeaker) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if voiceID == "" {
		return nil, fmt.Errorf("voice id is required")
	}
	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: s.modelID,
		VoiceSettings: &elevenLabsVoiceParams{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			UseSpeakerBoost: true,
			Speed:           1.0,
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s?output_format=%s", s.baseURL, voiceID, elevenLabsOutputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError {
		errBody, _ := io.ReadAll(res.Body)
		return nil, &RetryableError{StatusCode: res.StatusCode, Body: string(errBody)}
	}
	if res.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("ElevenLabs API error (status %d): %s", res.StatusCode, string(errBody))
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

// WithRetry 遇到 RetryableError 时指数退避重试。
func WithRetry(ctx context.Context, fn func() error) error {
	return withRetry(ctx, defaultInitialBackoff, fn)
}

func withRetry(ctx context.Context, backoff time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= defaultMaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if _, ok := err.(*RetryableError); !ok {
			return err
		}
		lastErr = err

		if attempt < defaultMaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= defaultBackoffMulti
			if backoff > defaultMaxBackoff {
				backoff = defaultMaxBackoff
			}
		}
	}
	return lastErr
}
