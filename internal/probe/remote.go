package probe

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"go.uber.org/zap"

	"github.com/hamed0406/bgpcheck/internal/config"
	"github.com/hamed0406/bgpcheck/internal/domain"
)

// ResolutionError reports that a probe's host could not be turned into an
// address of the requested family.
type ResolutionError struct {
	Host   string
	Family string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Family != "" {
		return fmt.Sprintf("could not resolve an %s address for host %q: %v", e.Family, e.Host, e.Err)
	}
	return fmt.Sprintf("could not resolve host %q: %v", e.Host, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolver is the subset of *net.Resolver used by remote probes.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// remote carries the host handling shared by every probe that talks to
// another machine.
type remote struct {
	args     config.Remote
	logger   *zap.Logger
	resolver Resolver
}

func newRemote(args config.Remote, logger *zap.Logger) remote {
	return remote{args: args, logger: logger, resolver: net.DefaultResolver}
}

func (r remote) network() string {
	switch r.args.AddressFamily {
	case "ipv4":
		return "ip4"
	case "ipv6":
		return "ip6"
	}
	return "ip"
}

func (r remote) resolve(ctx context.Context) ([]netip.Addr, error) {
	if addr, err := netip.ParseAddr(r.args.Host); err == nil {
		return []netip.Addr{addr.Unmap()}, nil
	}
	found, err := r.resolver.LookupNetIP(ctx, r.network(), r.args.Host)
	if err != nil {
		return nil, &ResolutionError{Host: r.args.Host, Family: r.args.AddressFamily, Err: err}
	}
	seen := make(map[netip.Addr]bool, len(found))
	addrs := make([]netip.Addr, 0, len(found))
	for _, a := range found {
		a = a.Unmap()
		if seen[a] {
			continue
		}
		seen[a] = true
		addrs = append(addrs, a)
	}
	if len(addrs) == 0 {
		return nil, &ResolutionError{Host: r.args.Host, Family: r.args.AddressFamily, Err: fmt.Errorf("no addresses returned")}
	}
	r.logger.Debug("host_resolved", zap.String("host", r.args.Host), zap.Stringers("addrs", addrs))
	return addrs, nil
}

// each probes every resolved address. Without all_valid the first success
// wins; with it the first failure does.
func (r remote) each(ctx context.Context, one func(ctx context.Context, addr netip.Addr) domain.ProbeResult) (domain.ProbeResult, error) {
	addrs, err := r.resolve(ctx)
	if err != nil {
		return domain.ProbeResult{}, err
	}
	tested := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		res := one(ctx, addr)
		tested = append(tested, addr.String())
		r.logger.Debug("probe_addr_result",
			zap.Stringer("addr", addr),
			zap.Bool("success", res.Success),
			zap.String("message", res.Message),
		)
		if r.args.AllValid != res.Success {
			return res, nil
		}
	}

	output := "Tested IP addresses: " + strings.Join(tested, ", ")
	if r.args.AllValid {
		res := domain.Success("Health check for all resolved IP addresses successful")
		res.Output = output
		return res, nil
	}
	res := domain.Failure("Health check for one or more IP addresses failed", "")
	res.Output = output
	return res, nil
}
