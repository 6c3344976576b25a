package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"maro_automation/comfort-studio/models"
)

// Event describes a finished run
type Event struct {
	RunID       string
	ContentType models.ContentType
	Title       string
	VideoID     string
	VideoPath   string
	Duration    time.Duration
	Warnings    []string
	Err         error
}

// Notifier reports run results somewhere people look
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Slack posts to an incoming webhook. An empty URL turns it into a no-op.
type Slack struct {
	webhookURL string
	client     *http.Client
	logger     logrus.FieldLogger
}

func NewSlack(webhookURL string, logger logrus.FieldLogger) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// Enabled reports whether a webhook is configured
func (s *Slack) Enabled() bool {
	return s.webhookURL != ""
}

func (s *Slack) Notify(ctx context.Context, event Event) error {
	if !s.Enabled() {
		s.logger.WithField("run_id", event.RunID).Debug("Slack webhook not configured, skipping notification")
		return nil
	}

	msg := &slack.WebhookMessage{Text: Message(event)}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, msg); err != nil {
		return fmt.Errorf("failed to post Slack notification: %w", err)
	}
	s.logger.WithField("run_id", event.RunID).Info("📣 Slack notification sent")
	return nil
}

// Message renders the notification text in Slack mrkdwn
func Message(event Event) string {
	var sb strings.Builder
	if event.Err != nil {
		sb.WriteString("❌ *maro 영상 제작 실패*\n")
	} else {
		sb.WriteString("✅ *maro 영상 제작 완료*\n")
	}
	fmt.Fprintf(&sb, "*유형:* `%s`\n", event.ContentType.Label())
	if event.Title != "" {
		fmt.Fprintf(&sb, "*제목:* %s\n", event.Title)
	}
	fmt.Fprintf(&sb, "*실행 ID:* `%s`\n", event.RunID)
	if event.Duration > 0 {
		fmt.Fprintf(&sb, "*소요 시간:* %s\n", event.Duration.Round(time.Second))
	}
	if event.VideoID != "" {
		fmt.Fprintf(&sb, "🎬 <https://youtu.be/%s|YouTube에서 보기>\n", event.VideoID)
	} else if event.VideoPath != "" {
		fmt.Fprintf(&sb, "📂 `%s`\n", event.VideoPath)
	}
	for _, warning := range event.Warnings {
		fmt.Fprintf(&sb, "⚠️ %s\n", warning)
	}
	if event.Err != nil {
		fmt.Fprintf(&sb, "*오류:*\n```\n%v\n```\n", event.Err)
	}
	return sb.String()
}
