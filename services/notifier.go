package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"inkwell/models"
)

// WebhookNotifier POSTs a small JSON notice to a configured URL whenever a
// post goes live. Delivery is best-effort: errors are logged and dropped,
// the publishing transition never waits on or fails because of it.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookNotifier returns nil when no URL is configured, which disables
// notification entirely.
func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	if url == "" {
		return nil
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// PostPublished implements Notifier.
func (n *WebhookNotifier) PostPublished(ctx context.Context, post models.Post) {
	payload, err := json.Marshal(map[string]any{
		"event":        "post.published",
		"id":           post.ID,
		"slug":         post.Slug,
		"title":        post.Title,
		"published_at": post.PublishedAt,
	})
	if err != nil {
		n.logger.Warn("Failed to encode publish notification", zap.Uint("id", post.ID), zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		n.logger.Warn("Failed to build publish notification request", zap.Uint("id", post.ID), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("Publish notification delivery failed", zap.Uint("id", post.ID), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Warn("Publish notification rejected",
			zap.Uint("id", post.ID),
			zap.Int("status", resp.StatusCode))
	}
}
