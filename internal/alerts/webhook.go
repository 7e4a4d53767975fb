package alerts

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// WebhookNotifier posts {"content": text} to a webhook URL. Only HTTP 200
// counts as delivered.
type WebhookNotifier struct {
	url    string
	client *resty.Client
}

type webhookPayload struct {
	Content string `json:"content"`
}

// NewWebhookNotifier creates a notifier for url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	client := resty.New()
	client.SetTimeout(DefaultTimeout)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("User-Agent", "gescout/1.0")

	return &WebhookNotifier{
		url:    url,
		client: client,
	}
}

// Notify posts text to the webhook.
func (w *WebhookNotifier) Notify(ctx context.Context, text string) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(webhookPayload{Content: text}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}
