package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Slack struct {
	Webhook string
	Client  *http.Client
}

func NewSlack(webhook string) *Slack {
	if webhook == "" {
		return nil
	}
	return &Slack{
		Webhook: webhook,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type slackPayload struct {
	Text string `json:"text"`
}

var slackIcons = map[Event]string{
	EventAnnounce: "🟢",
	EventWithdraw: "🔴",
	EventError:    "⚠️",
	EventInfo:     "ℹ️",
}

func (s *Slack) Send(ctx context.Context, m Message) error {
	if s == nil || s.Webhook == "" {
		return fmt.Errorf("slack disabled")
	}
	title := m.Title
	if icon, ok := slackIcons[m.Event]; ok {
		title = icon + " " + title
	}
	body, _ := json.Marshal(slackPayload{Text: "*" + title + "*\n" + m.Text})
	return postJSON(ctx, s.Client, s.Webhook, body, "slack")
}

func postJSON(ctx context.Context, client *http.Client, url string, body []byte, kind string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s: non-2xx status %d", kind, resp.StatusCode)
	}
	return nil
}
