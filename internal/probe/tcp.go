package probe

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"go.uber.org/zap"

	"github.com/hamed0406/bgpcheck/internal/config"
	"github.com/hamed0406/bgpcheck/internal/domain"
)

type tcpProbe struct {
	remote
	args *config.TCPArgs
}

func newTCP(a config.ProbeArgs, logger *zap.Logger) (Checker, error) {
	args, err := argsAs[*config.TCPArgs](a)
	if err != nil {
		return nil, err
	}
	return &tcpProbe{remote: newRemote(args.Remote, logger), args: args}, nil
}

func (p *tcpProbe) Check(ctx context.Context) (domain.ProbeResult, error) {
	return p.each(ctx, p.connect)
}

func (p *tcpProbe) connect(ctx context.Context, addr netip.Addr) domain.ProbeResult {
	target := netip.AddrPortFrom(addr, uint16(p.args.Port)).String()
	d := net.Dialer{Timeout: config.Seconds(p.args.TCPTimeout)}

	conn, err := d.DialContext(ctx, "tcp", target)
	if err != nil {
		p.logger.Debug("tcp_connect_failed", zap.String("target", target), zap.Error(err))
		res := domain.Failure(fmt.Sprintf("TCP connection to %s:%d failed", p.args.Host, p.args.Port), err.Error())
		res.Output = "Connection was initiated to IP " + target
		return res
	}
	_ = conn.Close()

	res := domain.Success(fmt.Sprintf("TCP connection to %s:%d succeeded", p.args.Host, p.args.Port))
	res.Output = "Connection was initiated to IP " + target
	return res
}
