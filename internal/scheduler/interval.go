package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// MinSleep is the shortest pause between two iterations of a loop.
const MinSleep = time.Second

// Interval paces one iteration of a fixed-period loop: it measures how long
// the work took and sleeps only for what is left of the period.
type Interval struct {
	Period time.Duration
	Logger *zap.Logger
	Now    func() time.Time

	start    time.Time
	sleep    time.Duration
	finished bool
}

// NewInterval returns a started Interval for a single loop iteration.
func NewInterval(period time.Duration, logger *zap.Logger) *Interval {
	if logger == nil {
		logger = zap.NewNop()
	}
	iv := &Interval{Period: period, Logger: logger, Now: time.Now}
	iv.Start()
	return iv
}

func (i *Interval) Start() {
	i.start = i.Now()
	i.sleep = 0
	i.finished = false
}

// Finish records the end of the work and returns the time left to sleep.
func (i *Interval) Finish() time.Duration {
	elapsed := i.Now().Sub(i.start)
	sleep := i.Period - elapsed
	if elapsed > i.Period {
		i.Logger.Warn("interval_overrun",
			zap.Duration("period", i.Period),
			zap.Duration("elapsed", elapsed),
		)
		sleep = MinSleep
	}
	if sleep < MinSleep {
		sleep = MinSleep
	}
	i.sleep = sleep
	i.finished = true
	return sleep
}

func (i *Interval) SleepTime() time.Duration {
	return i.sleep
}

// Sleep blocks for the remainder of the period, or until ctx is done.
func (i *Interval) Sleep(ctx context.Context) error {
	if !i.finished {
		i.Finish()
	}
	t := time.NewTimer(i.sleep)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
