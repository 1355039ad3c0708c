package probe

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/beevik/ntp"
	"go.uber.org/zap"

	"github.com/hamed0406/bgpcheck/internal/config"
	"github.com/hamed0406/bgpcheck/internal/domain"
)

// NTPQuery sends one NTP request; it matches ntp.QueryWithOptions.
type NTPQuery func(address string, opt ntp.QueryOptions) (*ntp.Response, error)

type ntpProbe struct {
	remote
	args  *config.NTPArgs
	query NTPQuery
}

func newNTP(a config.ProbeArgs, logger *zap.Logger) (Checker, error) {
	args, err := argsAs[*config.NTPArgs](a)
	if err != nil {
		return nil, err
	}
	return &ntpProbe{remote: newRemote(args.Remote, logger), args: args, query: ntp.QueryWithOptions}, nil
}

func (p *ntpProbe) Check(ctx context.Context) (domain.ProbeResult, error) {
	return p.each(ctx, p.request)
}

func (p *ntpProbe) request(_ context.Context, addr netip.Addr) domain.ProbeResult {
	server := netip.AddrPortFrom(addr, uint16(p.args.Port)).String()
	p.logger.Debug("ntp_query", zap.String("server", server), zap.Int("version", p.args.Version))

	resp, err := p.query(server, ntp.QueryOptions{
		Timeout: config.Seconds(p.args.NTPTimeout),
		Version: p.args.Version,
	})
	if err != nil {
		res := domain.Failure(fmt.Sprintf("NTP connection to %s:%d failed", p.args.Host, p.args.Port), err.Error())
		res.Output = "Failed connection to IP " + server
		res.Cause = err
		return res
	}
	return p.evaluate(server, resp)
}

func (p *ntpProbe) evaluate(server string, resp *ntp.Response) domain.ProbeResult {
	output := fmt.Sprintf("Server:%s Stratum:%d Offset:%s RTT:%s Reference:%s Leap:%d",
		server, resp.Stratum, resp.ClockOffset, resp.RTT, resp.ReferenceString(), resp.Leap)

	var problems []string
	if err := resp.Validate(); err != nil {
		problems = append(problems, "Invalid response: "+err.Error())
	}
	if limit := config.Seconds(p.args.MaxOffset); limit > 0 && resp.ClockOffset.Abs() > limit {
		problems = append(problems, fmt.Sprintf("Offset %s exceeds maximum offset of %s compared to local time",
			resp.ClockOffset.Round(time.Microsecond), limit))
	}
	if p.args.MaxStratum != nil && int(resp.Stratum) > *p.args.MaxStratum {
		problems = append(problems, fmt.Sprintf("Stratum %d exceeds maximum stratum of %d", resp.Stratum, *p.args.MaxStratum))
	}

	if len(problems) > 0 {
		res := domain.Failure(fmt.Sprintf("NTP check to %s failed", server), strings.Join(problems, ", "))
		res.Output = output
		return res
	}
	res := domain.Success(fmt.Sprintf("NTP check to %s successful", server))
	res.Output = output
	return res
}
