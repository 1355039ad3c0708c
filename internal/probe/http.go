package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/bgpcheck/internal/config"
	"github.com/hamed0406/bgpcheck/internal/domain"
)

// maxBody caps how much of a response is searched for the response pattern.
const maxBody = 1 << 20

type httpProbe struct {
	remote
	args    *config.HTTPArgs
	url     *url.URL
	pattern *regexp.Regexp
}

func newHTTP(a config.ProbeArgs, logger *zap.Logger) (Checker, error) {
	args, err := argsAs[*config.HTTPArgs](a)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(args.URL)
	if err != nil {
		return nil, fmt.Errorf("probe: http: %w", err)
	}
	p := &httpProbe{remote: newRemote(args.Remote, logger), args: args, url: u}
	if args.Response != "" {
		if p.pattern, err = regexp.Compile(args.Response); err != nil {
			return nil, fmt.Errorf("probe: http: response pattern: %w", err)
		}
	}
	return p, nil
}

func (p *httpProbe) Check(ctx context.Context) (domain.ProbeResult, error) {
	return p.each(ctx, p.request)
}

func (p *httpProbe) port() string {
	if port := p.url.Port(); port != "" {
		return port
	}
	if strings.EqualFold(p.url.Scheme, "https") {
		return "443"
	}
	return "80"
}

// client pins every connection to addr while keeping the URL's host name
// for the Host header and TLS server name.
func (p *httpProbe) client(addr netip.Addr) *http.Client {
	target := net.JoinHostPort(addr.String(), p.port())
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, target)
		},
		TLSClientConfig:   &tls.Config{InsecureSkipVerify: !p.args.VerifySSL},
		ForceAttemptHTTP2: true,
		DisableKeepAlives: true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   config.Seconds(p.args.HTTPTimeout),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (p *httpProbe) newRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if len(p.args.Data) > 0 {
		form := url.Values{}
		for k, v := range p.args.Data {
			form.Set(k, v)
		}
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, p.args.RequestMethod, p.url.String(), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("User-Agent", p.args.UserAgent)
	for k, v := range p.args.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (p *httpProbe) request(ctx context.Context, addr netip.Addr) domain.ProbeResult {
	req, err := p.newRequest(ctx)
	if err != nil {
		return domain.Failure("HTTP request could not be built", err.Error())
	}

	start := time.Now()
	resp, err := p.client(addr).Do(req)
	if err != nil {
		var oe *net.OpError
		if errors.As(err, &oe) && oe.Op == "dial" {
			return domain.Failure("HTTP request connection error", fmt.Sprintf("Connection error to %s: %v", addr, err))
		}
		return domain.Failure(fmt.Sprintf("HTTP request failed: %v", err), "")
	}
	defer resp.Body.Close()

	var body []byte
	if p.pattern != nil {
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return domain.Failure("HTTP response body could not be read", err.Error())
		}
	}
	elapsed := time.Since(start)

	p.logger.Debug("http_response",
		zap.Stringer("addr", addr),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
	)
	return p.validate(resp.StatusCode, body, elapsed)
}

func (p *httpProbe) validate(status int, body []byte, elapsed time.Duration) domain.ProbeResult {
	if len(p.args.ExpectedStatus) > 0 && !slices.Contains(p.args.ExpectedStatus, status) {
		codes := make([]string, 0, len(p.args.ExpectedStatus))
		for _, c := range p.args.ExpectedStatus {
			codes = append(codes, fmt.Sprint(c))
		}
		return domain.Failure(
			fmt.Sprintf("HTTP status code %d does not match expected status code(s)", status),
			fmt.Sprintf("%d not listed in the status codes: %s", status, strings.Join(codes, ", ")))
	}
	if p.args.RequireStatus && status != http.StatusOK {
		return domain.Failure(
			fmt.Sprintf("HTTP status code %d does not match expected status code(s)", status),
			fmt.Sprintf("%d could not be confirmed as a valid status code", status))
	}
	if p.pattern != nil && !p.pattern.Match(body) {
		return domain.Failure("Response pattern not found in response body",
			fmt.Sprintf("The response pattern %q did not match the response body", p.pattern.String()))
	}
	res := domain.Success("HTTP response was valid and passed all checks")
	res.Output = fmt.Sprintf("HTTP response received in %.3f seconds", elapsed.Seconds())
	return res
}
