package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/bgpcheck/internal/config"
	"github.com/hamed0406/bgpcheck/internal/domain"
	"github.com/hamed0406/bgpcheck/internal/notify"
	"github.com/hamed0406/bgpcheck/internal/probe"
	"github.com/hamed0406/bgpcheck/internal/repo"
	"github.com/hamed0406/bgpcheck/internal/route"
	"github.com/hamed0406/bgpcheck/internal/scheduler"
)

// ErrPanic wraps a panic recovered from a worker loop.
var ErrPanic = errors.New("worker panicked")

type Options struct {
	Logger   *zap.Logger
	Out      *route.LineWriter
	Notifier notify.Sink
	Status   repo.StatusStore
	// NewProbe builds the probe for a check; probe.New when nil.
	NewProbe probe.Factory
	Now      func() time.Time
}

// Worker runs the health loop of one check and owns its routes.
type Worker struct {
	check     config.Check
	logger    *zap.Logger
	probe     probe.Checker
	executor  *probe.Executor
	announcer *route.Announcer
	notifier  notify.Sink
	status    repo.StatusStore
	now       func() time.Time

	state domain.CheckState
}

// New prepares a worker. An error means the check cannot be scheduled at all.
func New(c config.Check, opts Options) (*Worker, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("check", c.Name))

	newProbe := opts.NewProbe
	if newProbe == nil {
		newProbe = probe.New
	}
	p, err := newProbe(c.Args, logger)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", c.Name, err)
	}

	w := &Worker{
		check:     c,
		logger:    logger,
		probe:     p,
		executor:  probe.NewExecutor(logger),
		announcer: route.NewAnnouncer(c, opts.Out, logger),
		notifier:  opts.Notifier,
		status:    opts.Status,
		now:       opts.Now,
		state:     domain.Initial(),
	}
	if w.notifier == nil {
		w.notifier = notify.Discard{}
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w, nil
}

func (w *Worker) Check() config.Check { return w.check }

// Run probes the check every interval until ctx is done. On any exit an
// advertised route is withdrawn once, silently. A recovered panic is returned
// wrapped in ErrPanic.
func (w *Worker) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker_panic", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
		w.cleanup()
	}()

	w.logger.Info("worker_started",
		zap.String("method", w.check.Args.Method()),
		zap.Duration("interval", w.check.Interval),
		zap.Int("rise", w.check.Rise),
		zap.Int("fall", w.check.Fall),
	)
	w.publish(ctx)

	for {
		if ctx.Err() != nil {
			return nil
		}
		iv := scheduler.NewInterval(w.check.Interval, w.logger)
		w.tick(ctx)
		iv.Finish()
		w.logger.Debug("worker_sleep", zap.Duration("sleep", iv.SleepTime()), zap.String("state", Detail(w.check, w.state)))
		if err := iv.Sleep(ctx); err != nil {
			return nil
		}
	}
}

// tick runs one probe and applies its result.
func (w *Worker) tick(ctx context.Context) domain.CheckState {
	var res domain.ProbeResult
	if w.disabled() {
		w.logger.Info("check_disabled", zap.String("disable_file", w.check.Disable))
		res = domain.Failure(fmt.Sprintf("Health check is disabled by disable file '%s'", w.check.Disable), "")
		res.Disabled = true
	} else {
		res = w.executor.Execute(ctx, w.probe, w.check.Timeout())
		if ctx.Err() != nil {
			// interrupted by shutdown, not a verdict on the service
			return w.state
		}
	}

	prev := w.state
	next, act := Transition(w.check, prev, res, w.now())
	w.state = next

	if next.State != prev.State {
		w.logger.Info("state_changed",
			zap.String("from", string(prev.State)),
			zap.String("to", Detail(w.check, next)),
		)
	} else {
		w.logger.Debug("state_unchanged", zap.String("state", Detail(w.check, next)))
	}

	switch act.Kind {
	case ActionAnnounce:
		w.announce(ctx, act)
	case ActionWithdraw:
		w.withdraw(ctx, act)
	}
	w.publish(ctx)
	return next
}

func (w *Worker) disabled() bool {
	if w.check.Disable == "" {
		return false
	}
	_, err := os.Stat(w.check.Disable)
	return err == nil
}

func (w *Worker) announce(ctx context.Context, act Action) {
	w.logger.Info("service_up", zap.String("reason", act.Reason))
	// write failures are logged per line by the announcer
	_ = w.announcer.Announce(w.check.Metric)

	w.notifier.Notify(ctx, notify.Message{
		Event: notify.EventAnnounce,
		Check: w.check.Name,
		Title: "Route announcement - " + w.check.Name,
		Text: w.prefixText(
			"Announcing routes for the health check as the service is marked as up.",
			"The following prefixes will be advertised with the next hop address",
		),
	})
}

func (w *Worker) withdraw(ctx context.Context, act Action) {
	w.logger.Warn("service_down", zap.String("reason", act.Reason))
	_ = w.announcer.Withdraw(w.downMetric(), false)

	w.notifier.Notify(ctx, notify.Message{
		Event: notify.EventWithdraw,
		Check: w.check.Name,
		Title: "Route withdrawal - " + w.check.Name,
		Text: w.prefixText(
			"Withdrawing routes for the health check as "+withdrawCause(act.Reason)+".",
			"The following prefixes with the next hop address",
		),
	})
}

func withdrawCause(reason string) string {
	if reason == ReasonDisabled {
		return "the service has been disabled"
	}
	return "the service has failed"
}

func (w *Worker) prefixText(head, lead string) string {
	var b strings.Builder
	b.WriteString(head)
	fmt.Fprintf(&b, "\n\n%s `%s`:\n", lead, w.check.NextHop)
	for _, p := range w.check.PrefixStrings() {
		fmt.Fprintf(&b, "\n- `%s`", p)
	}
	return b.String()
}

func (w *Worker) downMetric() *uint32 {
	if w.check.MetricDown != nil {
		return w.check.MetricDown
	}
	return w.check.Metric
}

func (w *Worker) cleanup() {
	if !w.state.Advertised {
		return
	}
	_ = w.announcer.Withdraw(w.downMetric(), true)
}

func (w *Worker) publish(ctx context.Context) {
	if w.status == nil {
		return
	}
	err := w.status.Put(context.WithoutCancel(ctx), repo.CheckStatus{
		Name:        w.check.Name,
		Description: w.check.Description,
		Method:      w.check.Args.Method(),
		Prefixes:    w.check.PrefixStrings(),
		Detail:      Detail(w.check, w.state),
		CheckState:  w.state,
		UpdatedAt:   w.now().UTC(),
	})
	if err != nil {
		w.logger.Warn("status_publish_failed", zap.Error(err))
	}
}
