package config

import (
	"fmt"
	"net"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

func init() {
	// report errors with the file's key names
	validation.ErrorTag = "mapstructure"
}

var (
	checkName = regexp.MustCompile(`^[^"']+$`)
	community = regexp.MustCompile(`^[^\s\[\]]+$`)
)

func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Daemon),
		validation.Field(&s.Checks, validation.Required, validation.By(uniqueNames)),
		validation.Field(&s.Logging, validation.By(s.uniqueLogFiles), validation.By(s.logFiltersExist)),
		validation.Field(&s.Notifications, validation.By(s.notificationFiltersExist)),
		validation.Field(&s.Status),
	)
}

func (d Daemon) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.MonitoringInterval, validation.Required, validation.Min(time.Duration(0)).Exclusive()),
	)
}

func (c Check) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Match(checkName)),
		validation.Field(&c.Prefixes, validation.Required, validation.Each(validation.By(validPrefix))),
		validation.Field(&c.NextHop, validation.Required, validation.By(c.nextHopMatchesPrefixes)),
		validation.Field(&c.ASPath, validation.By(validASPath)),
		validation.Field(&c.PathID, validation.By(validPathID)),
		validation.Field(&c.Communities, validation.Each(validation.Match(community))),
		validation.Field(&c.Interval, validation.Required, validation.Min(time.Duration(0)).Exclusive()),
		validation.Field(&c.Rise, validation.Min(0)),
		validation.Field(&c.Fall, validation.Min(0)),
		validation.Field(&c.Args, validation.Required),
	)
}

func (l LogTarget) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Method, validation.Required, validation.In("file", "syslog")),
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Destination, validation.Required),
		validation.Field(&l.MaxSizeMB, validation.Min(1)),
		validation.Field(&l.MaxBackups, validation.Min(0)),
		validation.Field(&l.Port, validation.Min(1), validation.Max(65535)),
		validation.Field(&l.Protocol, validation.In("udp", "tcp")),
	)
}

func (n Notification) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Name, validation.Required, validation.Match(checkName)),
		validation.Field(&n.Type, validation.Required, validation.In("slack", "webhook")),
		validation.Field(&n.URL, validation.Required, is.URL),
		validation.Field(&n.Events, validation.Required, validation.Each(validation.In("announce", "error", "info", "withdraw"))),
	)
}

func (s Status) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Listen, validation.By(func(v any) error {
			if s.Listen == "" {
				return nil
			}
			if _, _, err := net.SplitHostPort(s.Listen); err != nil {
				return validation.NewError("validation_listen", "must be host:port")
			}
			return nil
		})),
		validation.Field(&s.RateLimit, validation.Min(0)),
		validation.Field(&s.Burst, validation.Min(0)),
	)
}

func validPrefix(v any) error {
	p, _ := v.(netip.Prefix)
	if !p.IsValid() {
		return validation.NewError("validation_prefix", "must be a valid prefix")
	}
	return nil
}

func (c Check) nextHopMatchesPrefixes(any) error {
	if c.NextHop == "self" {
		return nil
	}
	nh, err := netip.ParseAddr(c.NextHop)
	if err != nil {
		return validation.NewError("validation_nexthop", "must be an IP address or \"self\"")
	}
	for _, p := range c.Prefixes {
		if p.Addr().Is4() != nh.Unmap().Is4() {
			return validation.NewError("validation_nexthop",
				fmt.Sprintf("next hop %s does not match the address family of prefix %s", c.NextHop, p))
		}
	}
	return nil
}

func validASPath(v any) error {
	s, _ := v.(string)
	for _, asn := range strings.Fields(s) {
		n, err := strconv.ParseUint(asn, 10, 64)
		if err != nil || n < 1 || n > 4294967295 {
			return validation.NewError("validation_as_path",
				fmt.Sprintf("invalid AS number %q: must be in the range 1-4294967295", asn))
		}
	}
	return nil
}

func validPathID(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, err := strconv.ParseUint(s, 10, 32); err == nil {
		return nil
	}
	if a, err := netip.ParseAddr(s); err == nil && a.Is4() {
		return nil
	}
	return validation.NewError("validation_path_id", "must be an integer in the range 0-4294967295 or an IPv4 address")
}

func uniqueNames(v any) error {
	checks, _ := v.([]Check)
	seen := make(map[string]bool, len(checks))
	for _, c := range checks {
		if seen[c.Name] {
			return validation.NewError("validation_unique", fmt.Sprintf("duplicate check name %q", c.Name))
		}
		seen[c.Name] = true
	}
	return nil
}

func (s *Settings) uniqueLogFiles(any) error {
	seen := map[string]bool{}
	for _, l := range s.Logging {
		if l.Method != "file" {
			continue
		}
		if seen[l.Destination] {
			return validation.NewError("validation_unique", fmt.Sprintf("duplicate log file %s", l.Destination))
		}
		seen[l.Destination] = true
	}
	return nil
}

func (s *Settings) logFiltersExist(any) error {
	for _, l := range s.Logging {
		if missing := s.undefined(l.Checks); len(missing) > 0 {
			return validation.NewError("validation_filter",
				fmt.Sprintf("%s log %s references undefined checks: %s", l.Method, l.Destination, strings.Join(missing, ", ")))
		}
	}
	return nil
}

func (s *Settings) notificationFiltersExist(any) error {
	for _, n := range s.Notifications {
		if missing := s.undefined(n.Checks); len(missing) > 0 {
			return validation.NewError("validation_filter",
				fmt.Sprintf("notification %s references undefined checks: %s", n.Name, strings.Join(missing, ", ")))
		}
	}
	return nil
}

func (s *Settings) undefined(names []string) []string {
	var out []string
	for _, n := range names {
		if _, ok := s.Lookup(n); !ok {
			out = append(out, n)
		}
	}
	return out
}
