package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maro_automation/comfort-studio/clients"
)

func fastRetry() clients.RetryConfig {
	return clients.RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond}
}

func TestOpenAITTSSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body openAISpeechRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tts-1", body.Model)
		assert.Equal(t, "alloy", body.Voice)
		assert.Equal(t, "mp3", body.ResponseFormat)
		assert.Equal(t, 0.9, body.Speed)
		assert.Equal(t, "안녕하세요.", body.Input)

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3audio"))
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	tts := NewOpenAITTS("sk-test", server.URL+"/v1", "", fastRetry(), logger)

	audio, err := tts.Synthesize(context.Background(), Request{Text: "안녕하세요.", Speed: 0.9})
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3audio"), audio)
}

func TestOpenAITTSEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	tts := NewOpenAITTS("sk-test", server.URL, "tts-1", fastRetry(), logger)

	_, err := tts.Synthesize(context.Background(), Request{Text: "x"})
	assert.ErrorContains(t, err, "no audio")
}

func TestElevenLabsSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "xi-key", r.Header.Get("xi-api-key"))
		assert.Equal(t, "audio/mpeg", r.Header.Get("Accept"))

		var body elevenLabsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "eleven_multilingual_v2", body.ModelID)

		_, _ = w.Write([]byte("ID3eleven"))
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	client := NewElevenLabs("xi-key", "voice-1", "", fastRetry(), logger)
	client.baseURL = server.URL + "/v1"

	audio, err := client.Synthesize(context.Background(), Request{Text: "안녕"})
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3eleven"), audio)
}

func TestElevenLabsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid key"}`))
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	client := NewElevenLabs("bad", "voice-1", "user:pass@127.0.0.1:1", fastRetry(), logger)
	client.client = server.Client()
	client.baseURL = server.URL

	_, err := client.Synthesize(context.Background(), Request{Text: "안녕"})
	assert.ErrorContains(t, err, "401")
}
