package activerecon

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// Hop is one responding gateway on the path. Distance is the TTL that
// elicited the response; unresponsive TTLs produce no Hop, which shows
// up as a distance gap in the formatted report.
type Hop struct {
	Distance    int     `json:"distance"`
	Address     string  `json:"address"`
	AvgRTTms    float64 `json:"avg_rtt_ms"`
	PacketsSent int     `json:"packets_sent"`
}

// TraceReport bundles the raw hops with the formatted rendering.
type TraceReport struct {
	Host   string `json:"host"`
	Hops   []Hop  `json:"hops"`
	Report string `json:"report"`
}

// FormatHops renders the hop table, flagging every gap in hop
// distances with a no-response line.
func FormatHops(hops []Hop) string {
	var b strings.Builder
	b.WriteString("Distance/TTL \tAddress \tAverage round-trip time \tPackets Sent\n")
	lastDistance := 0
	for _, hop := range hops {
		if lastDistance+1 != hop.Distance {
			b.WriteString("No response from gateway\n")
		}
		fmt.Fprintf(&b, "%-15d %-15s %.3f ms \t\t\t%-5d\n",
			hop.Distance, hop.Address, hop.AvgRTTms, hop.PacketsSent)
		lastDistance = hop.Distance
	}
	return b.String()
}

// icmpTracer sends echo requests with increasing TTLs over a raw ICMP
// socket. Needs CAP_NET_RAW or root; permission errors are reported
// like any other provider failure.
type icmpTracer struct {
	timeout time.Duration
}

func (tr *icmpTracer) Trace(ctx context.Context, host string, maxHops int) ([]Hop, error) {
	dst, err := net.ResolveIPAddr("ip4", host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}

	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("open icmp socket: %w", err)
	}
	defer conn.Close()

	id := os.Getpid() & 0xffff
	var hops []Hop

	for ttl := 1; ttl <= maxHops; ttl++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := conn.IPv4PacketConn().SetTTL(ttl); err != nil {
			return nil, fmt.Errorf("set ttl %d: %w", ttl, err)
		}

		msg := icmp.Message{
			Type: ipv4.ICMPTypeEcho,
			Body: &icmp.Echo{ID: id, Seq: ttl, Data: []byte("recontk-trace")},
		}
		wb, err := msg.Marshal(nil)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		if _, err := conn.WriteTo(wb, dst); err != nil {
			return nil, fmt.Errorf("send probe ttl %d: %w", ttl, err)
		}

		_ = conn.SetReadDeadline(time.Now().Add(tr.timeout))
		rb := make([]byte, 1500)
		n, peer, err := conn.ReadFrom(rb)
		if err != nil {
			// No answer for this TTL; the gap stays visible in the
			// formatted report.
			continue
		}
		rtt := time.Since(start)

		rm, err := icmp.ParseMessage(ipv4.ICMPTypeEcho.Protocol(), rb[:n])
		if err != nil {
			continue
		}
		switch rm.Type {
		case ipv4.ICMPTypeTimeExceeded:
			hops = append(hops, Hop{
				Distance:    ttl,
				Address:     peer.String(),
				AvgRTTms:    float64(rtt.Microseconds()) / 1000.0,
				PacketsSent: 1,
			})
		case ipv4.ICMPTypeEchoReply:
			hops = append(hops, Hop{
				Distance:    ttl,
				Address:     peer.String(),
				AvgRTTms:    float64(rtt.Microseconds()) / 1000.0,
				PacketsSent: 1,
			})
			return hops, nil
		}
	}
	if len(hops) == 0 {
		return nil, fmt.Errorf("no gateway responded within %d hops", maxHops)
	}
	return hops, nil
}
