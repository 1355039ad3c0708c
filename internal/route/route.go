// Package route renders announce and withdraw commands in the text grammar
// read by ExaBGP's process API.
package route

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/hamed0406/bgpcheck/internal/config"
)

type Command string

const (
	Announce Command = "announce"
	Withdraw Command = "withdraw"
)

// Template is one prefix's route line with the command and med left open.
type Template struct {
	Prefix     netip.Prefix
	neighbors  string
	nextHop    string
	metricSlot bool
	attrs      string
}

// Templates returns one template per configured prefix, in order.
func Templates(c config.Check) []Template {
	var neighbors []string
	for _, n := range c.Neighbors {
		neighbors = append(neighbors, "neighbor "+n.String())
	}

	var attrs []string
	if c.LocalPreference != nil {
		attrs = append(attrs, "local-preference "+strconv.FormatUint(uint64(*c.LocalPreference), 10))
	}
	if s := Communities(c.Communities); s != "" {
		attrs = append(attrs, s)
	}
	if c.ASPath != "" {
		attrs = append(attrs, "as-path "+c.ASPath)
	}
	if c.PathID != "" {
		attrs = append(attrs, "path-information "+c.PathID)
	}

	out := make([]Template, 0, len(c.Prefixes))
	for _, p := range c.Prefixes {
		out = append(out, Template{
			Prefix:     p,
			neighbors:  strings.Join(neighbors, ", "),
			nextHop:    c.NextHop,
			metricSlot: c.Metric != nil || c.MetricDown != nil,
			attrs:      strings.Join(attrs, " "),
		})
	}
	return out
}

// Render fills in the command and, when the template has a metric slot and
// metric is non-nil, the med clause.
func Render(t Template, cmd Command, metric *uint32) string {
	parts := make([]string, 0, 8)
	if t.neighbors != "" {
		parts = append(parts, t.neighbors)
	}
	parts = append(parts, string(cmd), "route", t.Prefix.String(), "next-hop", t.nextHop)
	if t.metricSlot && metric != nil {
		parts = append(parts, fmt.Sprintf("med %d", *metric))
	}
	if t.attrs != "" {
		parts = append(parts, t.attrs)
	}
	return strings.Join(parts, " ")
}

var wellKnown = map[string]bool{
	"no-export":           true,
	"no-advertise":        true,
	"no-export-subconfed": true,
	"internet":            true,
	"local-as":            true,
}

// Communities groups communities into standard, large and extended clauses.
// Standard communities are two 16 bit values (or a well-known name), large
// communities three 32 bit values; anything else is passed through as
// extended.
func Communities(list []string) string {
	var standard, large, extended []string
	for _, c := range list {
		switch {
		case wellKnown[strings.ToLower(c)] || fitsParts(c, 2, 16):
			standard = append(standard, c)
		case fitsParts(c, 3, 32):
			large = append(large, c)
		default:
			extended = append(extended, c)
		}
	}

	var clauses []string
	if len(standard) > 0 {
		clauses = append(clauses, "community ["+strings.Join(standard, " ")+"]")
	}
	if len(large) > 0 {
		clauses = append(clauses, "large-community ["+strings.Join(large, " ")+"]")
	}
	if len(extended) > 0 {
		clauses = append(clauses, "extended-community ["+strings.Join(extended, " ")+"]")
	}
	return strings.Join(clauses, " ")
}

func fitsParts(s string, n, bits int) bool {
	parts := strings.Split(s, ":")
	if len(parts) != n {
		return false
	}
	for _, p := range parts {
		if p == "" || len(p) > 10 {
			return false
		}
		if _, err := strconv.ParseUint(p, 10, bits); err != nil {
			return false
		}
	}
	return true
}
