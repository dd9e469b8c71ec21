package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/notification/domain"
)

// WebhookSender POSTs each message as JSON to a fixed url
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender uses a client with a 10 second timeout
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	Kind           string `json:"kind"`
	To             string `json:"to,omitempty"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
}

func (w *WebhookSender) Send(ctx context.Context, msg domain.Message) error {
	body, err := json.Marshal(webhookPayload{
		NotificationID: msg.NotificationID.String(),
		UserID:         msg.UserID.String(),
		Kind:           string(msg.Kind),
		To:             msg.To,
		Subject:        msg.Subject,
		Body:           msg.Body,
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (w *WebhookSender) Name() string { return "webhook" }
