package audit

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// WebhookLogger delivers audit events to an external collector over HTTP.
// Each payload is signed with HMAC-SHA256 so the receiver can verify the
// source. Use it behind a MultiLogger; delivery failures must never block
// or change an access answer.
type WebhookLogger struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhookLogger creates a webhook sink. The secret may be empty, in
// which case payloads are unsigned.
func NewWebhookLogger(url, secret string) *WebhookLogger {
	return &WebhookLogger{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Record posts the event as JSON.
func (l *WebhookLogger) Record(ctx context.Context, event *Event) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Lattice-Event-Id", event.EventID)
	if l.secret != "" {
		req.Header.Set("X-Lattice-Signature", Sign(payload, l.secret))
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook delivery failed: status %d", resp.StatusCode)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 of the payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature against the payload.
func VerifySignature(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(signature))
}
