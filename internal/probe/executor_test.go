package probe

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/bgpcheck/internal/domain"
)

func TestExecutor_PassesResultThrough(t *testing.T) {
	e := NewExecutor(nil)
	res := e.Execute(context.Background(), CheckerFunc(func(context.Context) (domain.ProbeResult, error) {
		return domain.Success("fine"), nil
	}), time.Second)
	if !res.Success || res.Message != "fine" {
		t.Fatalf("want success passthrough, got %+v", res)
	}
}

func TestExecutor_TimesOutHungProbe(t *testing.T) {
	e := NewExecutor(nil)
	release := make(chan struct{})
	defer close(release)

	hang := CheckerFunc(func(context.Context) (domain.ProbeResult, error) {
		<-release // ignores its context on purpose
		return domain.Success("late"), nil
	})

	start := time.Now()
	res := e.Execute(context.Background(), hang, 100*time.Millisecond)
	elapsed := time.Since(start)

	if res.Success {
		t.Fatalf("want failure, got %+v", res)
	}
	if res.Message != "timed out after 0.1s" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if elapsed < 100*time.Millisecond || elapsed > time.Second {
		t.Fatalf("want ~100ms, took %v", elapsed)
	}
	if !errors.Is(res.Cause, context.DeadlineExceeded) {
		t.Fatalf("want deadline cause, got %v", res.Cause)
	}

	// the previous deadline must not leak into the next call
	slow := CheckerFunc(func(ctx context.Context) (domain.ProbeResult, error) {
		select {
		case <-time.After(150 * time.Millisecond):
			return domain.Success("ok"), nil
		case <-ctx.Done():
			return domain.ProbeResult{}, ctx.Err()
		}
	})
	if res := e.Execute(context.Background(), slow, 500*time.Millisecond); !res.Success {
		t.Fatalf("second call misfired: %+v", res)
	}
}

func TestExecutor_WholeSecondTimeoutMessage(t *testing.T) {
	if got := formatSeconds(10 * time.Second); got != "10s" {
		t.Fatalf("want 10s, got %q", got)
	}
}

func TestExecutor_ConvertsPanic(t *testing.T) {
	e := NewExecutor(nil)
	res := e.Execute(context.Background(), CheckerFunc(func(context.Context) (domain.ProbeResult, error) {
		panic("boom")
	}), time.Second)
	if res.Success || res.Message != "Unexpected error while running health check" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(res.Error, "boom") {
		t.Fatalf("want panic text in error, got %q", res.Error)
	}
}

func TestExecutor_ConvertsErrors(t *testing.T) {
	e := NewExecutor(nil)
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"resolution", &ResolutionError{Host: "nope.invalid", Err: errors.New("no such host")}, "Could not resolve hostname into an IP address"},
		{"wrapped resolution", errors.Join(errors.New("ctx"), &ResolutionError{Host: "x", Err: errors.New("y")}), "Could not resolve hostname into an IP address"},
		{"other", errors.New("socket exploded"), "Unexpected error while running health check"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res := e.Execute(context.Background(), CheckerFunc(func(context.Context) (domain.ProbeResult, error) {
				return domain.ProbeResult{}, c.err
			}), time.Second)
			if res.Success || res.Message != c.want {
				t.Fatalf("want %q, got %+v", c.want, res)
			}
			if res.Cause != c.err {
				t.Fatalf("cause not kept: %v", res.Cause)
			}
			if res.Time.IsZero() {
				t.Fatal("result has no timestamp")
			}
		})
	}
}
