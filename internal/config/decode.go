package config

import (
	"fmt"
	"maps"
	"net/netip"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

var (
	checkType        = reflect.TypeOf(Check{})
	logTargetType    = reflect.TypeOf(LogTarget{})
	notificationType = reflect.TypeOf(Notification{})
	probeArgsType    = reflect.TypeOf((*ProbeArgs)(nil)).Elem()
	prefixType       = reflect.TypeOf(netip.Prefix{})
	durationType     = reflect.TypeOf(time.Duration(0))
)

// probeDefaults holds the per-method defaults applied before decoding.
var probeDefaults = map[string]map[string]any{
	MethodDNS:   {"query_type": "soa", "port": 53, "dns_timeout": 5, "require_resolve": true},
	MethodFile:  {"exists": true},
	MethodHTTP:  {"http_timeout": 5, "user_agent": "bgpcheck HTTP health check", "request_method": "GET", "verify_ssl": true},
	MethodICMP:  {"count": 3, "interval": 0.25, "icmp_timeout": 2},
	MethodNTP:   {"port": 123, "version": 3, "ntp_timeout": 5},
	MethodShell: {},
	MethodTCP:   {"tcp_timeout": 5},
}

func newProbeArgs(method string) (ProbeArgs, bool) {
	switch method {
	case MethodDNS:
		return &DNSArgs{}, true
	case MethodFile:
		return &FileArgs{}, true
	case MethodHTTP:
		return &HTTPArgs{}, true
	case MethodICMP:
		return &ICMPArgs{}, true
	case MethodNTP:
		return &NTPArgs{}, true
	case MethodShell:
		return &ShellArgs{}, true
	case MethodTCP:
		return &TCPArgs{}, true
	}
	return nil, false
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		defaultsHook,
		probeArgsHook,
		singleToSliceHook,
		numberToStringHook,
		prefixHook,
		secondsHook,
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

func decoderConfig(c *mapstructure.DecoderConfig) {
	c.DecodeHook = decodeHook()
	c.WeaklyTypedInput = false
	c.ErrorUnused = true
}

func decode(input, out any) error {
	cfg := &mapstructure.DecoderConfig{Result: out}
	decoderConfig(cfg)
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// defaultsHook fills in missing keys for list items, which viper defaults
// cannot reach.
func defaultsHook(from, to reflect.Type, data any) (any, error) {
	m, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	var defaults map[string]any
	switch to {
	case checkType:
		defaults = map[string]any{"interval": DefaultInterval, "rise": DefaultRise, "fall": DefaultFall}
	case logTargetType:
		defaults = map[string]any{"level": "info", "size": 10, "count": 5, "max_age": 14, "compress": true, "port": 514, "protocol": "udp", "general": true}
		switch m["method"] {
		case "file":
			defaults["destination"] = "/var/log/bgpcheck.log"
		case "syslog":
			defaults["destination"] = "/dev/log"
		}
	case notificationType:
		defaults = map[string]any{"type": "slack", "events": []any{"announce", "error", "info", "withdraw"}}
	default:
		return data, nil
	}
	out := maps.Clone(m)
	for k, v := range defaults {
		if _, set := out[k]; !set {
			out[k] = v
		}
	}
	return out, nil
}

// probeArgsHook selects the ProbeArgs implementation from the "method" key.
func probeArgsHook(from, to reflect.Type, data any) (any, error) {
	if to != probeArgsType {
		return data, nil
	}
	m, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("args: expected a mapping, got %T", data)
	}
	method, _ := m["method"].(string)
	method = strings.ToLower(method)
	args, ok := newProbeArgs(method)
	if !ok {
		return nil, fmt.Errorf("args: unknown method %q", m["method"])
	}

	in := maps.Clone(m)
	delete(in, "method")
	if _, set := in["timeout"]; !set {
		in["timeout"] = DefaultTimeout
	}
	for k, v := range probeDefaults[method] {
		if _, set := in[k]; !set {
			in[k] = v
		}
	}
	if err := fixupProbe(method, in); err != nil {
		return nil, err
	}
	if err := decode(in, args); err != nil {
		return nil, fmt.Errorf("args (%s): %w", method, err)
	}
	return args, nil
}

func fixupProbe(method string, in map[string]any) error {
	switch method {
	case MethodDNS:
		if s, ok := in["query_type"].(string); ok {
			in["query_type"] = strings.ToLower(s)
		}
	case MethodHTTP:
		if s, ok := in["request_method"].(string); ok {
			in["request_method"] = strings.ToUpper(s)
		}
		if _, set := in["require_status"]; !set {
			_, expected := in["expected_status"]
			in["require_status"] = !expected
		}
		if h, _ := in["host"].(string); h == "" {
			raw, _ := in["url"].(string)
			u, err := url.Parse(raw)
			if err != nil {
				return fmt.Errorf("args (http): cannot derive host from url %q; set host explicitly", raw)
			}
			in["host"] = u.Hostname()
		}
	}
	return nil
}

// singleToSliceHook lets a scalar stand in for a one element list.
func singleToSliceHook(from, to reflect.Type, data any) (any, error) {
	if data == nil || to.Kind() != reflect.Slice {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Slice, reflect.Array:
		return data, nil
	}
	return []any{data}, nil
}

func numberToStringHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}
	return data, nil
}

// prefixHook accepts both CIDR notation and bare addresses (host routes).
func prefixHook(from, to reflect.Type, data any) (any, error) {
	if to != prefixType {
		return data, nil
	}
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	return ParsePrefix(s)
}

func ParsePrefix(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid prefix %q: %w", s, err)
		}
		return netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()), nil
	}
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid prefix %q: %w", s, err)
	}
	if p.Masked() != p {
		return netip.Prefix{}, fmt.Errorf("invalid prefix %q: host bits set", s)
	}
	return p, nil
}

// secondsHook reads durations as (fractional) seconds. Go duration strings
// such as "1m30s" are accepted too.
func secondsHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch v := data.(type) {
	case time.Duration:
		return v, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case uint64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return Seconds(v), nil
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return Seconds(f), nil
		}
		return time.ParseDuration(v)
	}
	return data, nil
}
