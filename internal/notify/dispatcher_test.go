package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/bgpcheck/internal/config"
)

type recorder struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (r *recorder) Send(ctx context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	r.msgs = append(r.msgs, m)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestTarget_Wants(t *testing.T) {
	all := map[Event]bool{EventAnnounce: true, EventWithdraw: true, EventError: true, EventInfo: true}
	cases := []struct {
		name   string
		target Target
		msg    Message
		want   bool
	}{
		{"no filter gets checks", Target{Events: all}, Message{Event: EventAnnounce, Check: "a"}, true},
		{"no filter skips general", Target{Events: all}, Message{Event: EventInfo}, false},
		{"general opt in", Target{Events: all, General: true}, Message{Event: EventInfo}, true},
		{"check filter hit", Target{Events: all, Checks: map[string]bool{"a": true}}, Message{Event: EventWithdraw, Check: "a"}, true},
		{"check filter miss", Target{Events: all, Checks: map[string]bool{"a": true}}, Message{Event: EventWithdraw, Check: "b"}, false},
		{"event filter", Target{Events: map[Event]bool{EventError: true}}, Message{Event: EventAnnounce, Check: "a"}, false},
	}
	for _, c := range cases {
		if got := c.target.Wants(c.msg); got != c.want {
			t.Fatalf("%s: want %v, got %v", c.name, c.want, got)
		}
	}
}

func TestNewTarget(t *testing.T) {
	tg, err := NewTarget(config.Notification{Name: "ops", Type: "webhook", URL: "https://example.com/h", Checks: []string{"a"}, Events: []string{"error"}})
	if err != nil {
		t.Fatalf("NewTarget: %v", err)
	}
	if _, ok := tg.Notifier.(*Webhook); !ok || !tg.Checks["a"] || !tg.Events[EventError] {
		t.Fatalf("target built wrong: %+v", tg)
	}
	if _, err := NewTarget(config.Notification{Name: "x", Type: "pager"}); err == nil {
		t.Fatal("want error for unknown type")
	}
}

func TestDispatcher_DeliversAfterCallerCancels(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(zap.NewNop(), Target{Name: "r", Notifier: rec, Events: map[Event]bool{EventInfo: true}, General: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Notify(ctx, Message{Event: EventInfo, Title: "bgpcheck terminated"})

	wctx, wcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer wcancel()
	if err := d.Wait(wctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("want 1 delivery, got %d", rec.count())
	}
}

func TestDispatcher_FailuresAreLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	bad := &recorder{err: errors.New("boom")}
	good := &recorder{}
	events := map[Event]bool{EventWithdraw: true}
	d := NewDispatcher(zap.New(core),
		Target{Name: "bad", Notifier: bad, Events: events},
		Target{Name: "good", Notifier: good, Events: events},
		Target{Name: "other", Notifier: &recorder{}, Events: events, Checks: map[string]bool{"other": true}},
	)

	d.Notify(context.Background(), Message{Event: EventWithdraw, Check: "web", Title: "web withdrawn"})
	if err := d.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if good.count() != 1 || bad.count() != 1 {
		t.Fatalf("want both unfiltered targets called, got good=%d bad=%d", good.count(), bad.count())
	}
	entries := logs.FilterMessage("notify_failed").All()
	if len(entries) != 1 {
		t.Fatalf("want one failure log, got %d", len(entries))
	}
	if entries[0].ContextMap()["check"] != "web" {
		t.Fatalf("failure log missing check: %v", entries[0].ContextMap())
	}
}

func TestDispatcher_Configure(t *testing.T) {
	d := NewDispatcher(nil)
	d.Configure([]config.Notification{
		{Name: "a", Type: "slack", URL: "https://hooks.example.com/a", Events: []string{"announce"}},
		{Name: "b", Type: "carrier-pigeon"},
	})
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.targets) != 1 || d.targets[0].Name != "a" {
		t.Fatalf("want only the valid target, got %+v", d.targets)
	}
}

func TestMulti_CombinesErrors(t *testing.T) {
	m := Multi{&recorder{err: errors.New("one")}, nil, &recorder{err: errors.New("two")}}
	err := m.Send(context.Background(), Message{})
	if err == nil || err.Error() != "one; two" {
		t.Fatalf("want combined error, got %v", err)
	}
}
