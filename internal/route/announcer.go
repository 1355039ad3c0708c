package route

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/bgpcheck/internal/config"
)

// Announcer sends a check's routes to the routing daemon.
type Announcer struct {
	templates []Template
	out       *LineWriter
	logger    *zap.Logger
}

func NewAnnouncer(c config.Check, out *LineWriter, logger *zap.Logger) *Announcer {
	if out == nil {
		out = Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Announcer{templates: Templates(c), out: out, logger: logger}
	logger.Debug("routes_generated", zap.Strings("routes", a.Lines(Announce, c.Metric)))
	return a
}

// Lines renders every route of the check for cmd.
func (a *Announcer) Lines(cmd Command, metric *uint32) []string {
	out := make([]string, 0, len(a.templates))
	for _, t := range a.templates {
		out = append(out, Render(t, cmd, metric))
	}
	return out
}

func (a *Announcer) Announce(metric *uint32) error {
	a.logger.Info("route_announce", zap.Int("routes", len(a.templates)))
	return a.send(Announce, metric, false)
}

// Withdraw removes the routes. A silent withdraw logs nothing, not even
// write failures.
func (a *Announcer) Withdraw(metric *uint32, silent bool) error {
	if !silent {
		a.logger.Info("route_withdraw", zap.Int("routes", len(a.templates)))
	}
	return a.send(Withdraw, metric, silent)
}

// send writes every line even when earlier ones fail.
func (a *Announcer) send(cmd Command, metric *uint32, silent bool) error {
	var errs error
	for _, line := range a.Lines(cmd, metric) {
		if !silent {
			a.logger.Debug("route_command", zap.String("line", line))
		}
		if err := a.out.WriteLine(line); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("write %q: %w", line, err))
			if !silent {
				a.logger.Error("route_write_error", zap.String("line", line), zap.Error(err))
			}
		}
	}
	return errs
}
