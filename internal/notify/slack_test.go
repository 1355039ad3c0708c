package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSlack_OK(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		got = payload["text"]
		w.WriteHeader(200)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL)
	if s == nil {
		t.Fatal("expected slack client")
	}
	err := s.Send(context.Background(), Message{Event: EventWithdraw, Check: "web", Title: "web withdrawn", Text: "service failed"})
	if err != nil {
		t.Fatalf("send err: %v", err)
	}
	if got != "*🔴 web withdrawn*\nservice failed" {
		t.Fatalf("payload not as expected: %q", got)
	}
}

func TestSlack_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	err := NewSlack(ts.URL).Send(context.Background(), Message{Title: "X", Text: "Y"})
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected error on non-2xx, got %v", err)
	}
}

func TestSlack_Disabled(t *testing.T) {
	if NewSlack("") != nil {
		t.Fatal("want nil client without webhook")
	}
	var s *Slack
	if err := s.Send(context.Background(), Message{}); err == nil {
		t.Fatal("want error from nil client")
	}
}

func TestWebhook_Payload(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer ts.Close()

	w := NewWebhook(ts.URL)
	w.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	if err := w.Send(context.Background(), Message{Event: EventAnnounce, Check: "dns", Title: "t", Text: "x"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["event"] != "announce" || got["check"] != "dns" || got["time"] != "2024-05-01T12:00:00Z" {
		t.Fatalf("unexpected payload %v", got)
	}
}
