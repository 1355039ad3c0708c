package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/bgpcheck/internal/config"
)

// DefaultTimeout bounds one delivery to all matching targets.
const DefaultTimeout = 15 * time.Second

// Target is a notifier plus the filter deciding which messages reach it.
type Target struct {
	Name     string
	Notifier Notifier
	Checks   map[string]bool // empty means every check
	Events   map[Event]bool
	General  bool
}

func (t Target) Wants(m Message) bool {
	if !t.Events[m.Event] {
		return false
	}
	if m.Check == "" {
		return t.General
	}
	return len(t.Checks) == 0 || t.Checks[m.Check]
}

// NewTarget builds a target from its configuration.
func NewTarget(n config.Notification) (Target, error) {
	t := Target{Name: n.Name, Checks: map[string]bool{}, Events: map[Event]bool{}, General: n.GeneralEvents}
	switch n.Type {
	case "slack":
		t.Notifier = NewSlack(n.URL)
	case "webhook":
		t.Notifier = NewWebhook(n.URL)
	default:
		return Target{}, fmt.Errorf("notification %s: unknown type %q", n.Name, n.Type)
	}
	for _, c := range n.Checks {
		t.Checks[c] = true
	}
	for _, e := range n.Events {
		t.Events[Event(e)] = true
	}
	return t, nil
}

// Dispatcher routes messages to the matching targets in the background.
// Delivery failures are logged and never reach the caller.
type Dispatcher struct {
	Logger  *zap.Logger
	Timeout time.Duration

	mu      sync.RWMutex
	targets []Target
	wg      sync.WaitGroup
}

func NewDispatcher(logger *zap.Logger, targets ...Target) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{Logger: logger, Timeout: DefaultTimeout, targets: targets}
}

// Configure replaces the targets. Targets that fail to build are skipped.
func (d *Dispatcher) Configure(cfg []config.Notification) {
	targets := make([]Target, 0, len(cfg))
	for _, n := range cfg {
		t, err := NewTarget(n)
		if err != nil {
			d.Logger.Error("notify_target_invalid", zap.String("target", n.Name), zap.Error(err))
			continue
		}
		targets = append(targets, t)
	}
	d.mu.Lock()
	d.targets = targets
	d.mu.Unlock()
	d.Logger.Debug("notify_configured", zap.Int("targets", len(targets)))
}

func (d *Dispatcher) Notify(ctx context.Context, m Message) {
	d.mu.RLock()
	var to Multi
	var names []string
	for _, t := range d.targets {
		if t.Wants(m) {
			to = append(to, t.Notifier)
			names = append(names, t.Name)
		}
	}
	d.mu.RUnlock()

	log := d.Logger.With(zap.String("event", string(m.Event)))
	if m.Check != "" {
		log = log.With(zap.String("check", m.Check))
	}
	if len(to) == 0 {
		log.Debug("notify_skipped")
		return
	}

	// delivery outlives the caller's cancellation, e.g. the shutdown notice
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.Timeout)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		if err := to.Send(ctx, m); err != nil {
			log.Warn("notify_failed", zap.Strings("targets", names), zap.Error(err))
			return
		}
		log.Debug("notify_sent", zap.Strings("targets", names))
	}()
}

// Wait blocks until every pending delivery is done or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
