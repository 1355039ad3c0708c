package config

import (
	"net/netip"
	"time"
)

const (
	DefaultInterval           = 15 * time.Second
	DefaultRise               = 3
	DefaultFall               = 3
	DefaultTimeout            = 10 // seconds
	DefaultMonitoringInterval = 30 * time.Second
)

// Settings is the validated configuration tree. It is never modified after
// Load returns it; a reload produces a new value.
type Settings struct {
	File          string         `mapstructure:"-"`
	Daemon        Daemon         `mapstructure:"bgpcheck"`
	Checks        []Check        `mapstructure:"checks"`
	Logging       []LogTarget    `mapstructure:"logging"`
	Notifications []Notification `mapstructure:"notifications"`
	Status        Status         `mapstructure:"status"`
}

type Daemon struct {
	LiveReload         bool          `mapstructure:"live_reload"`
	MonitoringInterval time.Duration `mapstructure:"monitoring_interval"`
}

// Check describes one monitored service and the routes it controls.
type Check struct {
	Name            string         `mapstructure:"name"`
	Description     string         `mapstructure:"description"`
	Prefixes        []netip.Prefix `mapstructure:"prefixes"`
	NextHop         string         `mapstructure:"nexthop"` // address or "self"
	Metric          *uint32        `mapstructure:"metric"`
	MetricDown      *uint32        `mapstructure:"metric_down"`
	LocalPreference *uint32        `mapstructure:"local_preference"`
	ASPath          string         `mapstructure:"as_path"`
	PathID          string         `mapstructure:"path_id"` // integer or IPv4 address
	Neighbors       []netip.Addr   `mapstructure:"neighbors"`
	Communities     []string       `mapstructure:"communities"`
	Disable         string         `mapstructure:"disable"`
	Interval        time.Duration  `mapstructure:"interval"`
	Rise            int            `mapstructure:"rise"`
	Fall            int            `mapstructure:"fall"`
	Args            ProbeArgs      `mapstructure:"args"`
}

type LogTarget struct {
	Method      string   `mapstructure:"method"` // file | syslog
	Level       string   `mapstructure:"level"`
	Destination string   `mapstructure:"destination"`
	Checks      []string `mapstructure:"checks"`
	General     bool     `mapstructure:"general"` // keep entries not tied to a check

	// file
	MaxSizeMB  int  `mapstructure:"size"`
	MaxBackups int  `mapstructure:"count"`
	MaxAgeDays int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`

	// syslog
	Port     int    `mapstructure:"port"`
	Protocol string `mapstructure:"protocol"`
}

type Notification struct {
	Name          string   `mapstructure:"name"`
	Description   string   `mapstructure:"description"`
	Type          string   `mapstructure:"type"` // slack | webhook
	URL           string   `mapstructure:"url"`
	Checks        []string `mapstructure:"checks"`
	Events        []string `mapstructure:"events"`
	GeneralEvents bool     `mapstructure:"general_events"`
}

type Status struct {
	Listen    string   `mapstructure:"listen"`
	APIKeys   []string `mapstructure:"api_keys"`
	RateLimit int      `mapstructure:"rate_limit"` // requests per minute, 0 disables
	Burst     int      `mapstructure:"burst"`
}

// Lookup returns the check with the given name.
func (s *Settings) Lookup(name string) (Check, bool) {
	for _, c := range s.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

// Names lists the configured check names in file order.
func (s *Settings) Names() []string {
	out := make([]string, 0, len(s.Checks))
	for _, c := range s.Checks {
		out = append(out, c.Name)
	}
	return out
}

// Timeout is the hard ceiling for a single probe of this check.
func (c Check) Timeout() time.Duration {
	if c.Args == nil {
		return time.Duration(DefaultTimeout) * time.Second
	}
	return c.Args.ProbeTimeout()
}

func (c Check) PrefixStrings() []string {
	out := make([]string, 0, len(c.Prefixes))
	for _, p := range c.Prefixes {
		out = append(out, p.String())
	}
	return out
}
