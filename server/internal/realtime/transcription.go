package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoAPIKey 没有配置 OpenAI key，浏览器端转写不可用。
var ErrNoAPIKey = errors.New("realtime: OPENAI_API_KEY is empty")

// TranscriptionToken 浏览器用来直连 OpenAI Realtime 转写的短期凭证。
// 不能替代长期 API Key，服务端的 key 不下发到前端。
type TranscriptionToken struct {
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

// TranscriptionRequest 创建转写会话的请求体。Prompt 用来提示口音与常见词汇。
type TranscriptionRequest struct {
	InputAudioFormat        string                `json:"input_audio_format,omitempty"`
	InputAudioTranscription TranscriptionSettings `json:"input_audio_transcription"`
	TurnDetection           *TurnDetection        `json:"turn_detection,omitempty"`
}

type TranscriptionSettings struct {
	Model    string `json:"model"`
	Prompt   string `json:"prompt,omitempty"`
	Language string `json:"language,omitempty"`
}

// TurnDetection 服务端 VAD，静音超过 SilenceDurationMs 视为一段发言结束。
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
}

// Client 签发转写会话的短期凭证。
type Client struct {
	HTTPClient *http.Client
	APIKey     string
	BaseURL    string // 默认 https://api.openai.com
}

func (c *Client) CreateTranscriptionToken(ctx context.Context, req TranscriptionRequest) (TranscriptionToken, error) {
	if c.APIKey == "" {
		return TranscriptionToken{}, ErrNoAPIKey
	}
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return TranscriptionToken{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/realtime/transcription_sessions", bytes.NewReader(body))
	if err != nil {
		return TranscriptionToken{}, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return TranscriptionToken{}, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		limited, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return TranscriptionToken{}, fmt.Errorf("openai transcription sessions: status=%d body=%s", resp.StatusCode, string(limited))
	}

	var out TranscriptionToken
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return TranscriptionToken{}, fmt.Errorf("decode response: %w", err)
	}
	if out.ClientSecret.Value == "" {
		return TranscriptionToken{}, errors.New("openai returned empty client_secret.value")
	}
	return out, nil
}

// NewTranscriptionRequest 候选人回答的默认转写设置。
func NewTranscriptionRequest(model, prompt string) TranscriptionRequest {
	return TranscriptionRequest{
		InputAudioFormat: "pcm16",
		InputAudioTranscription: TranscriptionSettings{
			Model:    model,
			Prompt:   prompt,
			Language: "en",
		},
		TurnDetection: &TurnDetection{
			Type:              "server_vad",
			Threshold:         0.5,
			SilenceDurationMs: 1200,
		},
	}
}
