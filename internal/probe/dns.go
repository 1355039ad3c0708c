package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"regexp"
	"strings"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/hamed0406/bgpcheck/internal/config"
	"github.com/hamed0406/bgpcheck/internal/domain"
)

type dnsProbe struct {
	remote
	args    *config.DNSArgs
	qtype   uint16
	pattern *regexp.Regexp
}

func newDNS(a config.ProbeArgs, logger *zap.Logger) (Checker, error) {
	args, err := argsAs[*config.DNSArgs](a)
	if err != nil {
		return nil, err
	}
	qtype, ok := dns.StringToType[strings.ToUpper(args.QueryType)]
	if !ok {
		return nil, fmt.Errorf("probe: dns: unsupported query type %q", args.QueryType)
	}
	p := &dnsProbe{remote: newRemote(args.Remote, logger), args: args, qtype: qtype}
	if args.Response != "" {
		if p.pattern, err = regexp.Compile(args.Response); err != nil {
			return nil, fmt.Errorf("probe: dns: response pattern: %w", err)
		}
	}
	return p, nil
}

func (p *dnsProbe) Check(ctx context.Context) (domain.ProbeResult, error) {
	return p.each(ctx, p.query)
}

func (p *dnsProbe) query(ctx context.Context, addr netip.Addr) domain.ProbeResult {
	server := netip.AddrPortFrom(addr, uint16(p.args.Port)).String()
	target := fmt.Sprintf("%s:%d", p.args.Host, p.args.Port)

	client := &dns.Client{Net: "udp", Timeout: config.Seconds(p.args.DNSTimeout)}
	if p.args.TCP {
		client.Net = "tcp"
	}
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(p.args.Query), p.qtype)

	p.logger.Debug("dns_query",
		zap.String("server", server),
		zap.String("query", p.args.Query),
		zap.String("type", p.args.QueryType),
	)
	resp, _, err := client.ExchangeContext(ctx, msg, server)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			res := domain.Failure(fmt.Sprintf("DNS request to %s timed out", target), "DNS query timed out")
			res.Output = "Connection was initiated to IP " + server
			return res
		}
		res := domain.Failure(fmt.Sprintf("DNS query to %s returned an error", target), err.Error())
		res.Output = "The DNS query to IP address " + server + " failed"
		res.Cause = err
		return res
	}

	answers := p.answers(resp)
	switch {
	case resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError:
		res := domain.Failure(fmt.Sprintf("DNS query to %s returned %s", target, dns.RcodeToString[resp.Rcode]), "")
		res.Output = "The query response from IP address " + addr.String() + " indicated a server failure"
		return res
	case len(answers) == 0:
		if p.args.RequireResolve || p.pattern != nil {
			res := domain.Failure(fmt.Sprintf("DNS query to %s returned no answers", target), dns.RcodeToString[resp.Rcode])
			res.Output = "The query response from IP address " + addr.String() + " returned no answer for the requested name"
			return res
		}
		res := domain.Success(fmt.Sprintf("DNS query to %s succeeded", target))
		res.Output = "The query response from IP address " + addr.String() + " did not require validation"
		return res
	case p.pattern == nil:
		res := domain.Success(fmt.Sprintf("DNS query to %s returned a response", target))
		res.Output = "The query response from IP address " + addr.String() + " returned a response for the requested name"
		return res
	}

	for _, a := range answers {
		if p.pattern.MatchString(a) {
			res := domain.Success(fmt.Sprintf("DNS query to %s returned a validated response", target))
			res.Output = "The query response from IP address " + addr.String() + " matched the response pattern: " + a
			return res
		}
	}
	res := domain.Failure(fmt.Sprintf("DNS query to %s returned a response without matches", target),
		fmt.Sprintf("no answer matched the pattern %s", p.pattern))
	res.Output = "Answers: " + strings.Join(answers, ", ")
	return res
}

// answers returns the record data of the answers matching the query type.
func (p *dnsProbe) answers(resp *dns.Msg) []string {
	var out []string
	for _, rr := range resp.Answer {
		if p.qtype != dns.TypeANY && rr.Header().Rrtype != p.qtype {
			continue
		}
		data := strings.TrimPrefix(rr.String(), rr.Header().String())
		out = append(out, strings.TrimSuffix(strings.TrimSpace(data), "."))
	}
	return out
}
