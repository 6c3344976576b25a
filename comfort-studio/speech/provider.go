package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/sirupsen/logrus"

	"maro_automation/comfort-studio/clients"
)

// Request is one chunk of narration text
type Request struct {
	Text  string
	Voice string
	Speed float64
}

// Provider turns text into encoded audio (mp3)
type Provider interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// OpenAITTS uses the OpenAI speech endpoint
type OpenAITTS struct {
	apiKey   string
	baseURL  string
	model    string
	client   *http.Client
	executor failsafe.Executor[*http.Response]
}

type openAISpeechRequest struct {
	Model          string  `json:"model"`
	Voice          string  `json:"voice"`
	Input          string  `json:"input"`
	Speed          float64 `json:"speed,omitempty"`
	ResponseFormat string  `json:"response_format"`
}

// NewOpenAITTS creates an OpenAI speech client
func NewOpenAITTS(apiKey, baseURL, model string, retry clients.RetryConfig, logger logrus.FieldLogger) *OpenAITTS {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "tts-1"
	}
	retry.Logger = logger
	retry.Name = "openai-tts"
	return &OpenAITTS{
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		model:    model,
		client:   &http.Client{Timeout: 120 * time.Second},
		executor: clients.NewHTTPExecutor(retry),
	}
}

func (o *OpenAITTS) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	voice := req.Voice
	if voice == "" {
		voice = "alloy"
	}
	jsonData, err := json.Marshal(openAISpeechRequest{
		Model:          o.model,
		Voice:          voice,
		Input:          req.Text,
		Speed:          req.Speed,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	return readAudio(clients.Do(ctx, o.executor, o.client, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/speech", bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("error creating request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
		return httpReq, nil
	}))
}

// ElevenLabs uses the ElevenLabs text-to-speech endpoint
type ElevenLabs struct {
	apiKey   string
	voiceID  string
	baseURL  string
	client   *http.Client
	executor failsafe.Executor[*http.Response]
}

type elevenLabsRequest struct {
	Text          string                 `json:"text"`
	ModelID       string                 `json:"model_id"`
	VoiceSettings map[string]interface{} `json:"voice_settings"`
}

// NewElevenLabs creates an ElevenLabs client. proxy is host:port or
// user:pass@host:port and may be empty.
func NewElevenLabs(apiKey, voiceID, proxy string, retry clients.RetryConfig, logger logrus.FieldLogger) *ElevenLabs {
	client := &http.Client{Timeout: 60 * time.Second}

	if proxy != "" {
		if !strings.Contains(proxy, "://") {
			proxy = "http://" + proxy
		}
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			logger.WithError(err).Warn("invalid ElevenLabs proxy, connecting directly")
		} else {
			client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
			logger.WithField("proxy", proxyURL.Host).Info("using proxy for ElevenLabs")
		}
	}

	retry.Logger = logger
	retry.Name = "elevenlabs"
	return &ElevenLabs{
		apiKey:   apiKey,
		voiceID:  voiceID,
		baseURL:  "https://api.elevenlabs.io/v1",
		client:   client,
		executor: clients.NewHTTPExecutor(retry),
	}
}

func (c *ElevenLabs) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	voiceID := req.Voice
	if voiceID == "" {
		voiceID = c.voiceID
	}
	settings := map[string]interface{}{
		"stability":        0.5,
		"similarity_boost": 0.75,
	}
	if req.Speed > 0 {
		settings["speed"] = req.Speed
	}
	jsonData, err := json.Marshal(elevenLabsRequest{
		Text:          req.Text,
		ModelID:       "eleven_multilingual_v2",
		VoiceSettings: settings,
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", c.baseURL, voiceID)
	return readAudio(clients.Do(ctx, c.executor, c.client, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("error creating request: %w", err)
		}
		httpReq.Header.Set("Accept", "audio/mpeg")
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("xi-api-key", c.apiKey)
		return httpReq, nil
	}))
}

func readAudio(resp *http.Response, err error) ([]byte, error) {
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("provider returned no audio")
	}
	return audio, nil
}
