package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maro_automation/comfort-studio/models"
)

func TestSlackPostsWebhook(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	notifier := NewSlack(server.URL, logger)
	require.True(t, notifier.Enabled())

	err := notifier.Notify(context.Background(), Event{
		RunID:       "run-1",
		ContentType: models.HealingSound,
		Title:       "힐링 사운드: 숲",
		VideoID:     "abc123",
	})
	require.NoError(t, err)

	text, _ := got["text"].(string)
	assert.Contains(t, text, "✅")
	assert.Contains(t, text, "힐링 사운드")
	assert.Contains(t, text, "https://youtu.be/abc123")
}

func TestSlackReportsWebhookFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	err := NewSlack(server.URL, logger).Notify(context.Background(), Event{RunID: "run-1", ContentType: models.DailyComfort})
	assert.Error(t, err)
}

func TestSlackWithoutURLIsNoop(t *testing.T) {
	logger, _ := test.NewNullLogger()
	notifier := NewSlack("", logger)
	assert.False(t, notifier.Enabled())
	assert.NoError(t, notifier.Notify(context.Background(), Event{RunID: "run-1"}))
}

func TestMessageForFailure(t *testing.T) {
	msg := Message(Event{
		RunID:       "run-9",
		ContentType: models.OvercomeStory,
		Duration:    95 * time.Second,
		Warnings:    []string{"narration longer than main segment"},
		Err:         errors.New("mux failed"),
	})
	assert.Contains(t, msg, "❌")
	assert.Contains(t, msg, "극복 스토리")
	assert.Contains(t, msg, "1m35s")
	assert.Contains(t, msg, "⚠️ narration longer than main segment")
	assert.Contains(t, msg, "mux failed")
}
