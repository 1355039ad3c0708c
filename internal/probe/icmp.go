package probe

import (
	"context"
	"fmt"
	"net/netip"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hamed0406/bgpcheck/internal/config"
	"github.com/hamed0406/bgpcheck/internal/domain"
)

// CommandRunner runs an external program and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type icmpProbe struct {
	remote
	args *config.ICMPArgs
	run  CommandRunner
}

func newICMP(a config.ProbeArgs, logger *zap.Logger) (Checker, error) {
	args, err := argsAs[*config.ICMPArgs](a)
	if err != nil {
		return nil, err
	}
	return &icmpProbe{remote: newRemote(args.Remote, logger), args: args, run: runCommand}, nil
}

func (p *icmpProbe) Check(ctx context.Context) (domain.ProbeResult, error) {
	return p.each(ctx, p.ping)
}

// userMinInterval is the shortest packet interval ping accepts from a user
// without raw socket privileges.
const userMinInterval = 0.2

func (p *icmpProbe) argv(addr netip.Addr) []string {
	family := "-4"
	if addr.Is6() {
		family = "-6"
	}
	interval := p.args.Interval
	if !p.args.Privileged && interval < userMinInterval {
		interval = userMinInterval
	}
	return []string{
		family, "-n",
		"-c", strconv.Itoa(p.args.Count),
		"-i", strconv.FormatFloat(interval, 'f', -1, 64),
		"-W", strconv.FormatFloat(p.args.ICMPTimeout, 'f', -1, 64),
		addr.String(),
	}
}

func (p *icmpProbe) ping(ctx context.Context, addr netip.Addr) domain.ProbeResult {
	p.logger.Debug("icmp_ping",
		zap.Stringer("addr", addr),
		zap.Int("count", p.args.Count),
		zap.Bool("privileged", p.args.Privileged),
	)
	out, runErr := p.run(ctx, "ping", p.argv(addr)...)
	stats, err := parsePing(string(out))
	if err != nil {
		detail := err.Error()
		if runErr != nil {
			detail = runErr.Error() + ": " + strings.TrimSpace(string(out))
		}
		res := domain.Failure(fmt.Sprintf("Failed to ping host %s", p.args.Host), detail)
		res.Output = "Ping was sent to IP " + addr.String()
		res.Cause = runErr
		return res
	}
	return p.evaluate(addr, stats)
}

func (p *icmpProbe) evaluate(addr netip.Addr, s pingStats) domain.ProbeResult {
	if s.Received == 0 {
		return domain.Failure(fmt.Sprintf("No ICMP response from %s with IP %s", p.args.Host, addr), "")
	}

	var problems []string
	if lost := s.Transmitted - s.Received; lost > p.args.MaxLoss {
		problems = append(problems, fmt.Sprintf("Packets lost (%d) exceeds maximum limit of %d", lost, p.args.MaxLoss))
	}
	if p.args.MaxLatency > 0 && s.Max > p.args.MaxLatency {
		problems = append(problems, fmt.Sprintf("Maximum latency (%gms) exceeds maximum limit of %gms", s.Max, p.args.MaxLatency))
	}
	if p.args.MaxJitter > 0 && s.Received > 1 && s.Jitter > p.args.MaxJitter {
		problems = append(problems, fmt.Sprintf("Jitter (%gms) exceeds limit of %gms", s.Jitter, p.args.MaxJitter))
	}

	output := fmt.Sprintf("Packets:%d Received:%d Loss:%g%% Interval:%g Min:%gms Max:%gms Avg:%gms",
		s.Transmitted, s.Received, s.Loss, p.args.Interval, s.Min, s.Max, s.Avg)
	if len(problems) > 0 {
		res := domain.Failure(fmt.Sprintf("ICMP test to %s failed", addr), strings.Join(problems, ", "))
		res.Output = output
		return res
	}
	res := domain.Success(fmt.Sprintf("ICMP test to %s successful", addr))
	res.Output = output
	return res
}

type pingStats struct {
	Transmitted, Received int
	Loss                  float64 // percent
	Min, Avg, Max, Jitter float64 // milliseconds
}

var (
	pingCountRe = regexp.MustCompile(`(\d+) packets transmitted, (\d+) (?:packets )?received`)
	pingLossRe  = regexp.MustCompile(`([0-9.]+)% packet loss`)
	pingRttRe   = regexp.MustCompile(`= ([0-9.]+)/([0-9.]+)/([0-9.]+)/([0-9.]+) ms`)
)

// parsePing reads the summary printed by iputils and BSD ping. The rtt line
// is missing when nothing came back.
func parsePing(out string) (pingStats, error) {
	var s pingStats
	m := pingCountRe.FindStringSubmatch(out)
	if m == nil {
		return s, fmt.Errorf("no ping summary in output")
	}
	s.Transmitted, _ = strconv.Atoi(m[1])
	s.Received, _ = strconv.Atoi(m[2])
	if m := pingLossRe.FindStringSubmatch(out); m != nil {
		s.Loss, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := pingRttRe.FindStringSubmatch(out); m != nil {
		s.Min, _ = strconv.ParseFloat(m[1], 64)
		s.Avg, _ = strconv.ParseFloat(m[2], 64)
		s.Max, _ = strconv.ParseFloat(m[3], 64)
		s.Jitter, _ = strconv.ParseFloat(m[4], 64)
	}
	return s, nil
}
