package probe

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/bgpcheck/internal/config"
	"github.com/hamed0406/bgpcheck/internal/domain"
)

// Checker performs a single health probe. An error return means the probe
// itself broke (as opposed to the service being unhealthy); the Executor
// turns it into a failed result.
type Checker interface {
	Check(ctx context.Context) (domain.ProbeResult, error)
}

// CheckerFunc adapts a plain function to the Checker interface.
type CheckerFunc func(ctx context.Context) (domain.ProbeResult, error)

func (f CheckerFunc) Check(ctx context.Context) (domain.ProbeResult, error) { return f(ctx) }

// Factory builds the Checker for one method's arguments.
type Factory func(args config.ProbeArgs, logger *zap.Logger) (Checker, error)

var registry = map[string]Factory{
	config.MethodDNS:   newDNS,
	config.MethodFile:  newFile,
	config.MethodHTTP:  newHTTP,
	config.MethodICMP:  newICMP,
	config.MethodNTP:   newNTP,
	config.MethodShell: newShell,
	config.MethodTCP:   newTCP,
}

// New returns the Checker registered for the arguments' method.
func New(args config.ProbeArgs, logger *zap.Logger) (Checker, error) {
	if args == nil {
		return nil, fmt.Errorf("probe: no arguments")
	}
	f, ok := registry[args.Method()]
	if !ok {
		return nil, fmt.Errorf("probe: unknown method %q", args.Method())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return f(args, logger.With(zap.String("method", args.Method())))
}

func argsAs[T config.ProbeArgs](args config.ProbeArgs) (T, error) {
	a, ok := args.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("probe: %s: unexpected argument type %T", args.Method(), args)
	}
	return a, nil
}
