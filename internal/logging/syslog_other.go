//go:build windows || plan9

package logging

import (
	"errors"
	"io"

	"github.com/hamed0406/bgpcheck/internal/config"
)

func dialSyslog(config.LogTarget) (io.Writer, error) {
	return nil, errors.New("syslog is not supported on this platform")
}
