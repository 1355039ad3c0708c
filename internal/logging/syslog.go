//go:build !windows && !plan9

package logging

import (
	"io"
	"log/syslog"
	"net"
	"strconv"
	"strings"

	"github.com/hamed0406/bgpcheck/internal/config"
)

// dialSyslog connects to a local socket when the destination is a path and
// to a remote collector otherwise.
func dialSyslog(t config.LogTarget) (io.Writer, error) {
	const prio = syslog.LOG_INFO | syslog.LOG_DAEMON
	if strings.HasPrefix(t.Destination, "/") {
		return syslog.Dial("unixgram", t.Destination, prio, "bgpcheck")
	}
	return syslog.Dial(t.Protocol, net.JoinHostPort(t.Destination, strconv.Itoa(t.Port)), prio, "bgpcheck")
}
