package config

import (
	"errors"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

const validYAML = `
bgpcheck:
  live_reload: true
  monitoring_interval: 5
checks:
  - name: web
    prefixes: 192.0.2.10
    nexthop: self
    metric: 100
    metric_down: 200
    as_path: 65001
    path_id: 10.0.0.1
    communities: ["65000:100", "65000:100:5"]
    neighbors: [198.51.100.1]
    args:
      method: http
      url: https://www.example.com/health
      expected_status: [200, 204]
  - name: dns
    prefixes: ["2001:db8::/64"]
    nexthop: "2001:db8::1"
    interval: 2.5
    rise: 0
    args:
      method: dns
      host: 2001:db8::53
      query: example.com
      query_type: AAAA
notifications:
  - name: ops
    url: https://hooks.slack.com/services/T/B/X
    checks: [web]
logging:
  - method: file
    destination: /tmp/bgpcheck-test.log
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoad_YAMLAppliesDefaults(t *testing.T) {
	s, err := Load(writeFile(t, "bgpcheck.yaml", validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !s.Daemon.LiveReload || s.Daemon.MonitoringInterval != 5*time.Second {
		t.Fatalf("daemon settings wrong: %+v", s.Daemon)
	}
	if len(s.Checks) != 2 {
		t.Fatalf("want 2 checks, got %d", len(s.Checks))
	}

	web, ok := s.Lookup("web")
	if !ok {
		t.Fatal("web check missing")
	}
	if web.Interval != DefaultInterval || web.Rise != DefaultRise || web.Fall != DefaultFall {
		t.Fatalf("defaults not applied: interval=%v rise=%d fall=%d", web.Interval, web.Rise, web.Fall)
	}
	if len(web.Prefixes) != 1 || web.Prefixes[0] != netip.MustParsePrefix("192.0.2.10/32") {
		t.Fatalf("bare address should become a host prefix, got %v", web.Prefixes)
	}
	if web.ASPath != "65001" || web.PathID != "10.0.0.1" {
		t.Fatalf("as_path/path_id wrong: %q %q", web.ASPath, web.PathID)
	}
	if web.Metric == nil || *web.Metric != 100 || web.MetricDown == nil || *web.MetricDown != 200 {
		t.Fatalf("metrics wrong: %v %v", web.Metric, web.MetricDown)
	}
	if len(web.Neighbors) != 1 || web.Neighbors[0] != netip.MustParseAddr("198.51.100.1") {
		t.Fatalf("neighbors wrong: %v", web.Neighbors)
	}
	if web.Timeout() != 10*time.Second {
		t.Fatalf("want default probe timeout 10s, got %v", web.Timeout())
	}
	h, ok := web.Args.(*HTTPArgs)
	if !ok {
		t.Fatalf("want *HTTPArgs, got %T", web.Args)
	}
	if h.Host != "www.example.com" || h.RequireStatus || h.RequestMethod != "GET" {
		t.Fatalf("http args derived wrong: %+v", h)
	}

	d, _ := s.Lookup("dns")
	if d.Interval != 2500*time.Millisecond || d.Rise != 0 {
		t.Fatalf("interval/rise wrong: %v %d", d.Interval, d.Rise)
	}
	if a := d.Args.(*DNSArgs); a.QueryType != "aaaa" || a.Port != 53 || !a.RequireResolve {
		t.Fatalf("dns args wrong: %+v", a)
	}

	if got := s.Notifications[0]; got.Type != "slack" || len(got.Events) != 4 {
		t.Fatalf("notification defaults wrong: %+v", got)
	}
	if got := s.Logging[0]; got.Level != "info" || got.MaxSizeMB != 10 || !got.Compress {
		t.Fatalf("log defaults wrong: %+v", got)
	}
}

func TestLoad_JSON(t *testing.T) {
	body := `{"checks":[{"name":"ssh","prefixes":["10.1.0.0/24"],"nexthop":"10.0.0.1",
		"args":{"method":"tcp","host":"127.0.0.1","port":22,"timeout":3,"tcp_timeout":1.5}}]}`
	s, err := Load(writeFile(t, "bgpcheck.json", body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a := s.Checks[0].Args.(*TCPArgs)
	if a.Port != 22 || a.TCPTimeout != 1.5 || a.ProbeTimeout() != 3*time.Second {
		t.Fatalf("tcp args wrong: %+v", a)
	}
	if s.Daemon.MonitoringInterval != DefaultMonitoringInterval {
		t.Fatalf("want default monitoring interval, got %v", s.Daemon.MonitoringInterval)
	}
}

func TestLoad_Rejects(t *testing.T) {
	base := func(check string) string {
		return "checks:\n" + check
	}
	cases := []struct {
		name, body, want string
	}{
		{"family mismatch", base(`  - {name: a, prefixes: ["2001:db8::/64"], nexthop: 10.0.0.1, args: {method: file, path: /tmp/x}}`), "nexthop"},
		{"bad community", base(`  - {name: a, prefixes: [10.0.0.0/24], nexthop: self, communities: ["65000 100"], args: {method: file, path: /tmp/x}}`), "communities"},
		{"as path range", base(`  - {name: a, prefixes: [10.0.0.0/24], nexthop: self, as_path: "65000 0", args: {method: file, path: /tmp/x}}`), "as_path"},
		{"host bits", base(`  - {name: a, prefixes: [10.0.0.1/24], nexthop: self, args: {method: file, path: /tmp/x}}`), "host bits"},
		{"unknown method", base(`  - {name: a, prefixes: [10.0.0.0/24], nexthop: self, args: {method: carrier-pigeon}}`), "unknown method"},
		{"sub timeout", base(`  - {name: a, prefixes: [10.0.0.0/24], nexthop: self, args: {method: tcp, host: 127.0.0.1, port: 80, timeout: 2, tcp_timeout: 5}}`), "tcp_timeout"},
		{"unknown key", base(`  - {name: a, prefixes: [10.0.0.0/24], nexthop: self, colour: blue, args: {method: file, path: /tmp/x}}`), "colour"},
		{"duplicate", base("  - {name: a, prefixes: [10.0.0.0/24], nexthop: self, args: {method: file, path: /tmp/x}}\n  - {name: a, prefixes: [10.0.1.0/24], nexthop: self, args: {method: file, path: /tmp/y}}"), "duplicate"},
		{"filter", base(`  - {name: a, prefixes: [10.0.0.0/24], nexthop: self, args: {method: file, path: /tmp/x}}`) + "\nnotifications:\n  - {name: n, url: https://example.com/hook, checks: [ghost]}", "ghost"},
		{"negative rise", base(`  - {name: a, prefixes: [10.0.0.0/24], nexthop: self, rise: -1, args: {method: file, path: /tmp/x}}`), "rise"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bgpcheck.yaml", c.body))
			if err == nil {
				t.Fatalf("want error containing %q, got nil", c.want)
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Fatalf("want error containing %q, got %v", c.want, err)
			}
		})
	}
}

func TestLoad_NoChecks(t *testing.T) {
	_, err := Load(writeFile(t, "bgpcheck.yaml", "bgpcheck:\n  live_reload: true\n"))
	if !errors.Is(err, ErrNoChecks) {
		t.Fatalf("want ErrNoChecks, got %v", err)
	}
}

func TestLoad_BadExtension(t *testing.T) {
	if _, err := Load(writeFile(t, "bgpcheck.toml", "")); err == nil {
		t.Fatal("want extension error")
	}
}

func TestSource_ReloadTracksModification(t *testing.T) {
	path := writeFile(t, "bgpcheck.yaml", validYAML)
	src, err := Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if src.Modified() {
		t.Fatal("fresh source should not be modified")
	}

	touch := func(body string, at time.Time) {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, at, at); err != nil {
			t.Fatal(err)
		}
	}

	// broken file: reload fails, old settings stay, change is consumed
	touch("checks: [", time.Now().Add(time.Minute))
	if !src.Modified() {
		t.Fatal("want modified after write")
	}
	old := src.Settings()
	if _, err := src.Reload(); err == nil {
		t.Fatal("want reload error for broken file")
	}
	if src.Settings() != old {
		t.Fatal("settings replaced by failed reload")
	}
	if src.Modified() {
		t.Fatal("failed reload should wait for the next change")
	}

	// fixed file: reload succeeds
	touch(strings.Replace(validYAML, "name: web", "name: web2", 1), time.Now().Add(2*time.Minute))
	next, err := src.Reload()
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, ok := next.Lookup("web2"); !ok || src.Settings() != next {
		t.Fatalf("reloaded settings not applied: %v", next.Names())
	}
}
