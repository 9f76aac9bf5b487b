package activerecon

import (
	"context"
	"fmt"

	psnet "github.com/shirou/gopsutil/v4/net"
)

// Connection is one local socket.
type Connection struct {
	Proto  string `json:"proto"`
	Local  string `json:"local"`
	Remote string `json:"remote,omitempty"`
	Status string `json:"status,omitempty"`
	PID    int32  `json:"pid,omitempty"`
}

// ConnectionReport groups current connections by protocol.
type ConnectionReport struct {
	TCP []Connection `json:"tcp"`
	UDP []Connection `json:"udp"`
}

// psutilLister enumerates sockets through gopsutil.
type psutilLister struct{}

func (psutilLister) Connections(ctx context.Context, kind string) ([]Connection, error) {
	stats, err := psnet.ConnectionsWithContext(ctx, kind)
	if err != nil {
		return nil, err
	}
	conns := make([]Connection, 0, len(stats))
	for _, s := range stats {
		c := Connection{
			Proto:  kind,
			Local:  fmt.Sprintf("%s:%d", s.Laddr.IP, s.Laddr.Port),
			Status: s.Status,
			PID:    s.Pid,
		}
		if s.Raddr.IP != "" {
			c.Remote = fmt.Sprintf("%s:%d", s.Raddr.IP, s.Raddr.Port)
		}
		conns = append(conns, c)
	}
	return conns, nil
}
