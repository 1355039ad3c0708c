package route

import (
	"bytes"
	"errors"
	"net/netip"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/bgpcheck/internal/config"
)

func u32(v uint32) *uint32 { return &v }

func TestCommunities_Order(t *testing.T) {
	got := Communities([]string{"65000:999000000", "65000:100:5", "65000:100"})
	want := "community [65000:100] large-community [65000:100:5] extended-community [65000:999000000]"
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
	for _, clause := range []string{"community [", "large-community [", "extended-community ["} {
		if n := strings.Count(" "+got, " "+clause); n != 1 {
			t.Fatalf("%q appears %d times in %q", clause, n, got)
		}
	}
}

func TestCommunities_WellKnownAndExtended(t *testing.T) {
	got := Communities([]string{"no-export", "target:65000:1", "65536:1"})
	want := "community [no-export] extended-community [target:65000:1 65536:1]"
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
	if Communities(nil) != "" {
		t.Fatal("want empty clause for no communities")
	}
}

func TestRender_FullGrammar(t *testing.T) {
	c := config.Check{
		Prefixes:        []netip.Prefix{netip.MustParsePrefix("192.0.2.0/24"), netip.MustParsePrefix("198.51.100.7/32")},
		NextHop:         "self",
		Metric:          u32(100),
		MetricDown:      u32(500),
		LocalPreference: u32(200),
		ASPath:          "65001 65002",
		PathID:          "10.0.0.1",
		Neighbors:       []netip.Addr{netip.MustParseAddr("10.0.0.2"), netip.MustParseAddr("10.0.0.3")},
		Communities:     []string{"65000:1"},
	}
	ts := Templates(c)
	if len(ts) != 2 {
		t.Fatalf("want one template per prefix, got %d", len(ts))
	}

	got := Render(ts[0], Announce, c.Metric)
	want := "neighbor 10.0.0.2, neighbor 10.0.0.3 announce route 192.0.2.0/24 next-hop self med 100 " +
		"local-preference 200 community [65000:1] as-path 65001 65002 path-information 10.0.0.1"
	if got != want {
		t.Fatalf("\nwant %q\n got %q", want, got)
	}

	got = Render(ts[1], Withdraw, c.MetricDown)
	want = "neighbor 10.0.0.2, neighbor 10.0.0.3 withdraw route 198.51.100.7/32 next-hop self med 500 " +
		"local-preference 200 community [65000:1] as-path 65001 65002 path-information 10.0.0.1"
	if got != want {
		t.Fatalf("\nwant %q\n got %q", want, got)
	}
}

func TestRender_MetricSlot(t *testing.T) {
	c := config.Check{Prefixes: []netip.Prefix{netip.MustParsePrefix("2001:db8::/48")}, NextHop: "2001:db8::1"}
	tpl := Templates(c)[0]

	// no metric configured: no slot even if a value is passed
	if got := Render(tpl, Announce, u32(5)); got != "announce route 2001:db8::/48 next-hop 2001:db8::1" {
		t.Fatalf("unexpected %q", got)
	}

	c.MetricDown = u32(0)
	tpl = Templates(c)[0]
	if got := Render(tpl, Announce, nil); got != "announce route 2001:db8::/48 next-hop 2001:db8::1" {
		t.Fatalf("nil metric should drop med: %q", got)
	}
	if got := Render(tpl, Withdraw, c.MetricDown); got != "withdraw route 2001:db8::/48 next-hop 2001:db8::1 med 0" {
		t.Fatalf("explicit zero med dropped: %q", got)
	}
}

type failingWriter struct {
	mu    sync.Mutex
	lines []string
	fail  string
}

func (f *failingWriter) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.Contains(string(p), f.fail) {
		return 0, errors.New("broken pipe")
	}
	f.lines = append(f.lines, string(p))
	return len(p), nil
}

func TestAnnouncer_ContinuesAfterWriteError(t *testing.T) {
	fw := &failingWriter{fail: "192.0.2.0/24"}
	core, logs := observer.New(zapcore.DebugLevel)
	c := config.Check{
		Prefixes: []netip.Prefix{netip.MustParsePrefix("192.0.2.0/24"), netip.MustParsePrefix("192.0.2.128/25")},
		NextHop:  "self",
	}
	a := NewAnnouncer(c, NewLineWriter(fw), zap.New(core))

	if err := a.Announce(nil); err == nil {
		t.Fatal("want combined write error")
	}
	if len(fw.lines) != 1 || fw.lines[0] != "announce route 192.0.2.128/25 next-hop self\n" {
		t.Fatalf("second route not written: %q", fw.lines)
	}
	if logs.FilterMessage("route_write_error").Len() != 1 {
		t.Fatalf("want one write error logged, got %d", logs.FilterMessage("route_write_error").Len())
	}

	logs.TakeAll()
	_ = a.Withdraw(nil, true)
	if logs.Len() != 0 {
		t.Fatalf("silent withdraw logged %d entries", logs.Len())
	}
	if fw.lines[len(fw.lines)-1] != "withdraw route 192.0.2.128/25 next-hop self\n" {
		t.Fatalf("withdraw not written: %q", fw.lines)
	}
}

func TestLineWriter_ConcurrentLinesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	lw := NewLineWriter(&buf)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = lw.WriteLine("announce route 192.0.2.0/24 next-hop self")
			}
		}()
	}
	wg.Wait()
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 1000 {
		t.Fatalf("want 1000 lines, got %d", len(lines))
	}
	for _, l := range lines {
		if l != "announce route 192.0.2.0/24 next-hop self" {
			t.Fatalf("interleaved line %q", l)
		}
	}
}
