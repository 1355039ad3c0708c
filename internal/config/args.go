package config

import (
	"fmt"
	"net/netip"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// ProbeArgs is the probe configuration of a check. The concrete type is
// selected by the "method" key.
type ProbeArgs interface {
	Method() string
	ProbeTimeout() time.Duration
	Validate() error
}

const (
	MethodDNS   = "dns"
	MethodFile  = "file"
	MethodHTTP  = "http"
	MethodICMP  = "icmp"
	MethodNTP   = "ntp"
	MethodShell = "shell"
	MethodTCP   = "tcp"
)

// Base holds the fields shared by every probe method.
type Base struct {
	Timeout int `mapstructure:"timeout"` // seconds
}

func (b Base) ProbeTimeout() time.Duration { return time.Duration(b.Timeout) * time.Second }

// Remote holds the fields shared by probes that talk to another host.
type Remote struct {
	Host          string `mapstructure:"host"`
	AddressFamily string `mapstructure:"address_family"` // ipv4, ipv6 or empty
	AllValid      bool   `mapstructure:"all_valid"`
}

type DNSArgs struct {
	Base           `mapstructure:",squash"`
	Remote         `mapstructure:",squash"`
	Query          string  `mapstructure:"query"`
	QueryType      string  `mapstructure:"query_type"`
	Response       string  `mapstructure:"response"`
	TCP            bool    `mapstructure:"tcp"`
	Port           int     `mapstructure:"port"`
	DNSTimeout     float64 `mapstructure:"dns_timeout"`
	RequireResolve bool    `mapstructure:"require_resolve"`
}

type FileArgs struct {
	Base   `mapstructure:",squash"`
	Path   string `mapstructure:"path"`
	Exists bool   `mapstructure:"exists"`
}

type HTTPArgs struct {
	Base           `mapstructure:",squash"`
	Remote         `mapstructure:",squash"`
	URL            string            `mapstructure:"url"`
	Response       string            `mapstructure:"response"`
	ExpectedStatus []int             `mapstructure:"expected_status"`
	RequireStatus  bool              `mapstructure:"require_status"`
	HTTPTimeout    float64           `mapstructure:"http_timeout"`
	UserAgent      string            `mapstructure:"user_agent"`
	Headers        map[string]string `mapstructure:"headers"`
	VerifySSL      bool              `mapstructure:"verify_ssl"`
	RequestMethod  string            `mapstructure:"request_method"`
	Data           map[string]string `mapstructure:"data"`
}

type ICMPArgs struct {
	Base        `mapstructure:",squash"`
	Remote      `mapstructure:",squash"`
	Count       int     `mapstructure:"count"`
	Interval    float64 `mapstructure:"interval"`     // seconds between packets
	ICMPTimeout float64 `mapstructure:"icmp_timeout"` // seconds per packet
	Privileged  bool    `mapstructure:"privileged"`
	MaxLoss     int     `mapstructure:"max_loss"`
	MaxLatency  float64 `mapstructure:"max_latency"` // milliseconds, 0 disables
	MaxJitter   float64 `mapstructure:"max_jitter"`  // milliseconds, 0 disables
}

type NTPArgs struct {
	Base       `mapstructure:",squash"`
	Remote     `mapstructure:",squash"`
	Port       int     `mapstructure:"port"`
	Version    int     `mapstructure:"version"`
	NTPTimeout float64 `mapstructure:"ntp_timeout"`
	MaxOffset  float64 `mapstructure:"max_offset"` // seconds, 0 disables
	MaxStratum *int    `mapstructure:"max_stratum"`
}

type ShellArgs struct {
	Base        `mapstructure:",squash"`
	Command     string   `mapstructure:"command"`
	Environment []string `mapstructure:"environment"` // KEY=value
}

type TCPArgs struct {
	Base       `mapstructure:",squash"`
	Remote     `mapstructure:",squash"`
	Port       int     `mapstructure:"port"`
	TCPTimeout float64 `mapstructure:"tcp_timeout"`
}

func (*DNSArgs) Method() string   { return MethodDNS }
func (*FileArgs) Method() string  { return MethodFile }
func (*HTTPArgs) Method() string  { return MethodHTTP }
func (*ICMPArgs) Method() string  { return MethodICMP }
func (*NTPArgs) Method() string   { return MethodNTP }
func (*ShellArgs) Method() string { return MethodShell }
func (*TCPArgs) Method() string   { return MethodTCP }

// Seconds converts a fractional seconds value from the configuration file.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

var (
	dnsQueryTypes   = []any{"a", "aaaa", "any", "cname", "mx", "ns", "ptr", "soa", "srv", "txt"}
	httpMethods     = []any{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"}
	headerName      = regexp.MustCompile(`^[\w+\-=]+$`)
	envAssignment   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)
	httpURL         = regexp.MustCompile(`^(?i)https?://`)
	addressFamilies = []any{"ipv4", "ipv6"}
)

func timeoutRules() []validation.Rule {
	return []validation.Rule{validation.Required, validation.Min(1)}
}

func (r *Remote) rules(hostRequired bool) []*validation.FieldRules {
	host := []validation.Rule{validation.By(r.familyMatchesHost)}
	if hostRequired {
		host = append([]validation.Rule{validation.Required}, host...)
	}
	return []*validation.FieldRules{
		validation.Field(&r.Host, host...),
		validation.Field(&r.AddressFamily, validation.In(addressFamilies...)),
	}
}

func (r *Remote) familyMatchesHost(any) error {
	addr, err := netip.ParseAddr(r.Host)
	if err != nil {
		return nil
	}
	switch {
	case addr.Is4() && r.AddressFamily == "ipv6":
		return validation.NewError("validation_family", "address family must be ipv4 for an IPv4 host")
	case addr.Is6() && r.AddressFamily == "ipv4":
		return validation.NewError("validation_family", "address family must be ipv6 for an IPv6 host")
	}
	return nil
}

// notAbove rejects sub-timeouts that exceed the overall probe timeout.
func notAbove(limit int) validation.Rule {
	return validation.By(func(v any) error {
		f, _ := v.(float64)
		if f <= 0 {
			return validation.NewError("validation_timeout", "must be greater than zero")
		}
		if f > float64(limit) {
			return validation.NewError("validation_timeout",
				fmt.Sprintf("must not exceed the check timeout of %d seconds", limit))
		}
		return nil
	})
}

var validRegexp = validation.By(func(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, err := regexp.Compile(s); err != nil {
		return validation.NewError("validation_regexp", "must be a valid regular expression")
	}
	return nil
})

func (a *DNSArgs) Validate() error {
	fields := []*validation.FieldRules{
		validation.Field(&a.Timeout, timeoutRules()...),
		validation.Field(&a.Query, validation.Required),
		validation.Field(&a.QueryType, validation.Required, validation.In(dnsQueryTypes...)),
		validation.Field(&a.Response, validRegexp),
		validation.Field(&a.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&a.DNSTimeout, notAbove(a.Timeout)),
		validation.Field(&a.RequireResolve, validation.By(func(any) error {
			if a.Response != "" && !a.RequireResolve {
				return validation.NewError("validation_require_resolve", "must be true when a response pattern is set")
			}
			return nil
		})),
	}
	return validation.ValidateStruct(a, append(fields, a.Remote.rules(true)...)...)
}

func (a *FileArgs) Validate() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Timeout, timeoutRules()...),
		validation.Field(&a.Path, validation.Required),
	)
}

func (a *HTTPArgs) Validate() error {
	fields := []*validation.FieldRules{
		validation.Field(&a.Timeout, timeoutRules()...),
		validation.Field(&a.URL, validation.Required, is.URL, validation.By(httpScheme)),
		validation.Field(&a.Response, validRegexp),
		validation.Field(&a.ExpectedStatus, validation.Each(validation.Min(100), validation.Max(599))),
		validation.Field(&a.RequireStatus, validation.By(func(any) error {
			if a.RequireStatus && len(a.ExpectedStatus) > 0 {
				return validation.NewError("validation_require_status", "cannot be true when expected_status is set")
			}
			return nil
		})),
		validation.Field(&a.HTTPTimeout, notAbove(a.Timeout)),
		validation.Field(&a.RequestMethod, validation.Required, validation.In(httpMethods...)),
		validation.Field(&a.Headers, validation.By(func(any) error {
			for name := range a.Headers {
				if !headerName.MatchString(name) {
					return validation.NewError("validation_header", fmt.Sprintf("invalid header name %q", name))
				}
			}
			return nil
		})),
		validation.Field(&a.Data, validation.By(func(any) error {
			if len(a.Data) > 0 && a.RequestMethod != "POST" {
				return validation.NewError("validation_data", "request data requires the POST method")
			}
			return nil
		})),
	}
	return validation.ValidateStruct(a, append(fields, a.Remote.rules(true)...)...)
}

func httpScheme(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if !httpURL.MatchString(s) {
		return validation.NewError("validation_scheme", "must use http or https")
	}
	return nil
}

func (a *ICMPArgs) Validate() error {
	fields := []*validation.FieldRules{
		validation.Field(&a.Timeout, timeoutRules()...),
		validation.Field(&a.Count, validation.Required, validation.Min(1), validation.Max(a.Timeout)),
		validation.Field(&a.Interval, validation.Min(0.0), validation.By(func(any) error {
			if float64(a.Count)*a.Interval > float64(a.Timeout) {
				return validation.NewError("validation_interval", "count * interval must not exceed the check timeout")
			}
			return nil
		})),
		validation.Field(&a.ICMPTimeout, validation.Required, validation.By(func(any) error {
			worst := float64(a.Count)*a.ICMPTimeout + a.Interval*float64(a.Count-1)
			if worst > float64(a.Timeout) {
				return validation.NewError("validation_timeout", "worst case ping duration exceeds the check timeout")
			}
			return nil
		})),
		validation.Field(&a.MaxLoss, validation.Min(0), validation.By(func(any) error {
			if a.MaxLoss >= a.Count {
				return validation.NewError("validation_max_loss", "must be less than the packet count")
			}
			return nil
		})),
		validation.Field(&a.MaxLatency, validation.Min(0.0), validation.By(func(any) error {
			if a.MaxLatency > 0 && a.MaxLatency >= a.ICMPTimeout*1000 {
				return validation.NewError("validation_max_latency", "must be below the per-packet timeout")
			}
			return nil
		})),
		validation.Field(&a.MaxJitter, validation.Min(0.0), validation.By(func(any) error {
			if a.MaxJitter > 0 && a.Count < 2 {
				return validation.NewError("validation_max_jitter", "needs at least two packets")
			}
			return nil
		})),
	}
	return validation.ValidateStruct(a, append(fields, a.Remote.rules(true)...)...)
}

func (a *NTPArgs) Validate() error {
	fields := []*validation.FieldRules{
		validation.Field(&a.Timeout, timeoutRules()...),
		validation.Field(&a.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&a.Version, validation.In(2, 3, 4)),
		validation.Field(&a.NTPTimeout, notAbove(a.Timeout)),
		validation.Field(&a.MaxOffset, validation.Min(0.0)),
		validation.Field(&a.MaxStratum, validation.Min(0), validation.Max(15)),
	}
	return validation.ValidateStruct(a, append(fields, a.Remote.rules(true)...)...)
}

func (a *ShellArgs) Validate() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Timeout, timeoutRules()...),
		validation.Field(&a.Command, validation.Required),
		validation.Field(&a.Environment, validation.Each(validation.Match(envAssignment))),
	)
}

func (a *TCPArgs) Validate() error {
	fields := []*validation.FieldRules{
		validation.Field(&a.Timeout, timeoutRules()...),
		validation.Field(&a.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&a.TCPTimeout, notAbove(a.Timeout)),
	}
	return validation.ValidateStruct(a, append(fields, a.Remote.rules(true)...)...)
}
