package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Webhook posts the message as JSON to an arbitrary endpoint.
type Webhook struct {
	URL    string
	Client *http.Client
	Now    func() time.Time
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
		Now:    time.Now,
	}
}

type webhookPayload struct {
	Message
	Time time.Time `json:"time"`
}

func (w *Webhook) Send(ctx context.Context, m Message) error {
	body, err := json.Marshal(webhookPayload{Message: m, Time: w.Now().UTC()})
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return postJSON(ctx, w.Client, w.URL, body, "webhook")
}
