package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/bgpcheck/internal/config"
	"github.com/hamed0406/bgpcheck/internal/notify"
	"github.com/hamed0406/bgpcheck/internal/repo"
	"github.com/hamed0406/bgpcheck/internal/scheduler"
	"github.com/hamed0406/bgpcheck/internal/worker"
)

// ConfigSource is the configuration file as seen by the supervisor.
type ConfigSource interface {
	Settings() *config.Settings
	Modified() bool
	Reload() (*config.Settings, error)
}

// Handle is a running worker.
type Handle interface {
	Running() bool
	Stop() error
	Err() error
}

type StartFunc func(ctx context.Context, c config.Check) (Handle, error)

// WorkerStarter starts real workers sharing opts.
func WorkerStarter(opts worker.Options) StartFunc {
	return func(ctx context.Context, c config.Check) (Handle, error) {
		h, err := worker.Start(ctx, c, opts)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
}

// Notifier is the notification dispatcher.
type Notifier interface {
	notify.Sink
	Configure(targets []config.Notification)
	Wait(ctx context.Context) error
}

type Options struct {
	Logger   *zap.Logger
	Source   ConfigSource
	Start    StartFunc
	Notifier Notifier
	Status   repo.StatusStore
}

type entry struct {
	check  config.Check
	handle Handle
}

// Supervisor keeps one worker per configured check alive and applies
// configuration changes.
type Supervisor struct {
	logger   *zap.Logger
	source   ConfigSource
	start    StartFunc
	notifier Notifier
	status   repo.StatusStore

	// workers outlive the Run context; Shutdown stops them explicitly
	workerCtx context.Context

	mu       sync.Mutex
	settings *config.Settings
	workers  map[string]*entry
}

func New(opts Options) (*Supervisor, error) {
	if opts.Source == nil || opts.Start == nil || opts.Notifier == nil {
		return nil, errors.New("supervisor: source, start and notifier are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		logger:   logger.With(zap.String("subsystem", "supervisor")),
		source:   opts.Source,
		start:    opts.Start,
		notifier: opts.Notifier,
		status:   opts.Status,
		workers:  make(map[string]*entry),
	}, nil
}

// Start launches a worker for every configured check. If any cannot be
// created the ones already started are stopped and the error is returned.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workerCtx = context.WithoutCancel(ctx)
	s.settings = s.source.Settings()
	s.notifier.Configure(s.settings.Notifications)

	for _, c := range s.settings.Checks {
		if err := s.spawn(c); err != nil {
			for _, e := range s.workers {
				_ = e.handle.Stop()
			}
			s.workers = make(map[string]*entry)
			return err
		}
	}
	s.logger.Info("supervisor_started", zap.Int("checks", len(s.workers)))
	s.notifier.Notify(ctx, notify.Message{
		Event: notify.EventInfo,
		Title: "bgpcheck started",
		Text:  fmt.Sprintf("bgpcheck started with %d health checks: %s", len(s.workers), strings.Join(s.settings.Names(), ", ")),
	})
	return nil
}

// Run supervises until ctx is done, then shuts down.
func (s *Supervisor) Run(ctx context.Context) error {
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notify.DefaultTimeout)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()
	for {
		iv := scheduler.NewInterval(s.Settings().Daemon.MonitoringInterval, s.logger)
		s.Tick(ctx)
		if err := iv.Sleep(ctx); err != nil {
			return nil
		}
	}
}

// Tick runs one liveness pass and, with live reload on, one reload check.
func (s *Supervisor) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.respawnDead(ctx)
	if !s.settings.Daemon.LiveReload || !s.source.Modified() {
		return
	}
	next, err := s.source.Reload()
	if err != nil {
		// the source logs the failure and waits for the next change
		return
	}
	if err := s.reconcile(ctx, next); err != nil {
		s.logger.Error("reload_incomplete", zap.Error(err))
	}
}

func (s *Supervisor) respawnDead(ctx context.Context) {
	for _, name := range s.names() {
		e := s.workers[name]
		if e.handle.Running() {
			continue
		}
		log := s.logger.With(zap.String("check", name))
		log.Error("worker_dead", zap.Error(e.handle.Err()))

		h, err := s.start(s.workerCtx, e.check)
		if err != nil {
			log.Error("worker_respawn_failed", zap.Error(err))
			continue
		}
		e.handle = h
		log.Info("worker_respawned")
		s.notifier.Notify(ctx, notify.Message{
			Event: notify.EventError,
			Check: name,
			Title: "Health check worker restarted - " + name,
			Text:  fmt.Sprintf("The worker for health check %s stopped unexpectedly and was restarted.", name),
		})
	}
}

// Reconcile applies new settings to the running workers.
func (s *Supervisor) Reconcile(ctx context.Context, next *config.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconcile(ctx, next)
}

func (s *Supervisor) reconcile(ctx context.Context, next *config.Settings) error {
	old := s.settings
	changes := Plan(old.Checks, next.Checks)
	s.logger.Info("config_diff",
		zap.Strings("start", changes.Start),
		zap.Strings("stop", changes.Stop),
		zap.Strings("restart", changes.Restart),
	)

	if !cmp.Equal(old.Notifications, next.Notifications) {
		s.notifier.Configure(next.Notifications)
	}
	s.settings = next

	var errs error
	for _, name := range changes.Stop {
		s.stop(ctx, name)
		s.checkEvent(ctx, name, "removed", fmt.Sprintf("Health check %s was removed from the configuration; its routes were withdrawn.", name))
	}
	for _, name := range changes.Restart {
		s.stop(ctx, name)
		c, _ := next.Lookup(name)
		if err := s.spawn(c); err != nil {
			s.park(c, err)
			errs = multierr.Append(errs, err)
			continue
		}
		s.checkEvent(ctx, name, "restarted", fmt.Sprintf("Health check %s changed and was restarted.", name))
	}
	for _, name := range changes.Start {
		c, _ := next.Lookup(name)
		if err := s.spawn(c); err != nil {
			s.park(c, err)
			errs = multierr.Append(errs, err)
			continue
		}
		s.checkEvent(ctx, name, "added", fmt.Sprintf("Health check %s was added to the configuration.", name))
	}
	return errs
}

func (s *Supervisor) checkEvent(ctx context.Context, name, what, text string) {
	s.notifier.Notify(ctx, notify.Message{
		Event: notify.EventInfo,
		Check: name,
		Title: fmt.Sprintf("Health check %s - %s", what, name),
		Text:  text,
	})
}

func (s *Supervisor) spawn(c config.Check) error {
	h, err := s.start(s.workerCtx, c)
	if err != nil {
		s.logger.Error("worker_start_failed", zap.String("check", c.Name), zap.Error(err))
		return fmt.Errorf("start %s: %w", c.Name, err)
	}
	s.workers[c.Name] = &entry{check: c, handle: h}
	s.logger.Debug("worker_registered", zap.String("check", c.Name))
	return nil
}

// park registers a check whose worker could not be started so the liveness
// pass keeps retrying it.
func (s *Supervisor) park(c config.Check, err error) {
	s.workers[c.Name] = &entry{check: c, handle: failedStart{err: err}}
}

// failedStart stands in for a worker that never started.
type failedStart struct{ err error }

func (failedStart) Running() bool { return false }
func (failedStart) Stop() error   { return nil }
func (f failedStart) Err() error  { return f.err }

func (s *Supervisor) stop(ctx context.Context, name string) {
	e, ok := s.workers[name]
	if !ok {
		return
	}
	delete(s.workers, name)
	if err := e.handle.Stop(); err != nil {
		s.logger.Warn("worker_stop_error", zap.String("check", name), zap.Error(err))
	}
	if s.status != nil {
		if err := s.status.Delete(ctx, name); err != nil && !errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("status_delete_failed", zap.String("check", name), zap.Error(err))
		}
	}
	s.logger.Info("worker_stopped", zap.String("check", name))
}

// Shutdown stops every worker, each withdrawing its own routes, then sends
// the termination notice and waits for pending notifications.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	var errs error
	for _, name := range s.names() {
		if err := s.workers[name].handle.Stop(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("stop %s: %w", name, err))
		}
	}
	s.workers = make(map[string]*entry)
	s.mu.Unlock()

	s.logger.Info("supervisor_stopped")
	s.notifier.Notify(ctx, notify.Message{
		Event: notify.EventInfo,
		Title: "bgpcheck terminated",
		Text:  "bgpcheck is shutting down; all routes have been withdrawn.",
	})
	return multierr.Append(errs, s.notifier.Wait(ctx))
}

func (s *Supervisor) Settings() *config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Checks lists the supervised check names.
func (s *Supervisor) Checks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.names()
}

func (s *Supervisor) names() []string {
	out := make([]string, 0, len(s.workers))
	for n := range s.workers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
