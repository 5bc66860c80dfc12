package notify

import (
	"context"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackNotifier announces generated reports to a Slack incoming webhook.
// Notification is best-effort: failures are logged, never propagated.
type SlackNotifier struct {
	webhookURL string
	logger     *zap.Logger
}

// NewSlackNotifier creates a notifier. An empty webhook URL yields a no-op
// notifier, so callers never need a nil check.
func NewSlackNotifier(webhookURL string, logger *zap.Logger) *SlackNotifier {
	return &SlackNotifier{webhookURL: webhookURL, logger: logger}
}

// ReportGenerated posts a short message with the report's name and location.
func (n *SlackNotifier) ReportGenerated(ctx context.Context, filename, blobURL, sessionID string) {
	if n.webhookURL == "" {
		return
	}
	msg := &slack.WebhookMessage{
		Text: "Risk report generated: " + filename,
		Attachments: []slack.Attachment{{
			Title:     filename,
			TitleLink: blobURL,
			Fields: []slack.AttachmentField{
				{Title: "Session", Value: sessionID, Short: true},
			},
		}},
	}
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		n.logger.Warn("slack notification failed", zap.Error(err))
	}
}
