// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/hamed0406/bgpcheck/internal/config"
)

func main() {
	os.Exit(preflight(os.Args[1:], os.Stdout, os.Stderr))
}

type report struct {
	out, errOut *os.File
	failed      bool
}

func (r *report) fail(msg string) {
	fmt.Fprintln(r.errOut, "✖", msg)
	r.failed = true
}
func (r *report) warn(msg string) { fmt.Fprintln(r.errOut, "⚠", msg) }
func (r *report) ok(msg string)   { fmt.Fprintln(r.out, "✔", msg) }

func preflight(args []string, out, errOut *os.File) int {
	r := &report{out: out, errOut: errOut}

	path := strings.TrimSpace(os.Getenv("BGPCHECK_CONFIG"))
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		path = "/etc/bgpcheck/bgpcheck.yaml"
	}

	s, err := config.Load(path)
	if err != nil {
		r.fail(err.Error())
		return 1
	}
	r.ok(fmt.Sprintf("%s is valid (%d checks)", path, len(s.Checks)))

	for _, c := range s.Checks {
		if c.Args.Method() == config.MethodICMP {
			if p, err := exec.LookPath("ping"); err != nil {
				r.fail("icmp checks configured but ping is not in PATH")
			} else {
				r.ok("ping found at " + p)
			}
			break
		}
	}
	for _, c := range s.Checks {
		if c.Disable == "" {
			continue
		}
		if _, err := os.Stat(c.Disable); err == nil {
			r.warn(fmt.Sprintf("check %s is disabled by %s; its routes will not be announced", c.Name, c.Disable))
		}
	}

	if s.Status.Listen != "" && len(s.Status.APIKeys) == 0 {
		r.warn("status API on " + s.Status.Listen + " has no api_keys; anyone who can reach it can read check state")
	}
	if len(s.Notifications) == 0 {
		r.warn("no notifications configured; route changes will only be logged")
	}

	// ExaBGP reads route commands from our stdout through a pipe
	if st, err := os.Stdout.Stat(); err == nil && st.Mode()&os.ModeCharDevice != 0 {
		r.warn("stdout is a terminal; bgpcheck is meant to run as an ExaBGP process")
	}

	if r.failed {
		return 1
	}
	r.ok("preflight passed")
	return 0
}
