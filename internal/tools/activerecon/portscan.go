package activerecon

import (
	"context"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"
)

// PortStatus is one probed port.
type PortStatus struct {
	Port    int    `json:"port"`
	State   string `json:"state"` // "open" or "closed"
	Service string `json:"service,omitempty"`
}

// ScanReport is the outcome of a ranged scan.
type ScanReport struct {
	Host  string       `json:"host"`
	From  int          `json:"from"`
	To    int          `json:"to"`
	Ports []PortStatus `json:"ports"`
}

// OpenPorts filters the report down to open ports.
func (r *ScanReport) OpenPorts() []PortStatus {
	var open []PortStatus
	for _, p := range r.Ports {
		if p.State == "open" {
			open = append(open, p)
		}
	}
	return open
}

// tcpScanner probes ports with bounded-concurrency connect scans.
type tcpScanner struct {
	timeout time.Duration
}

const scanConcurrency = 128

func (s *tcpScanner) Scan(ctx context.Context, host string, from, to int) ([]PortStatus, error) {
	sem := make(chan struct{}, scanConcurrency)
	out := make(chan PortStatus, to-from+1)
	var wg sync.WaitGroup

	dialer := &net.Dialer{Timeout: s.timeout}
	for port := from; port <= to; port++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			defer func() { <-sem }()
			out <- probe(ctx, dialer, host, port)
		}(port)
	}

	wg.Wait()
	close(out)

	results := make([]PortStatus, 0, to-from+1)
	for r := range out {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Port < results[j].Port })
	return results, nil
}

func probe(ctx context.Context, dialer *net.Dialer, host string, port int) PortStatus {
	res := PortStatus{Port: port, State: "closed", Service: wellKnownService(port)}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return res
	}
	conn.Close()
	res.State = "open"
	return res
}

// wellKnownService names common ports; everything else reports empty.
func wellKnownService(port int) string {
	switch port {
	case 20, 21:
		return "ftp"
	case 22:
		return "ssh"
	case 23:
		return "telnet"
	case 25, 465, 587:
		return "smtp"
	case 53:
		return "dns"
	case 80:
		return "http"
	case 110:
		return "pop3"
	case 123:
		return "ntp"
	case 143:
		return "imap"
	case 161:
		return "snmp"
	case 389:
		return "ldap"
	case 443:
		return "https"
	case 445:
		return "microsoft-ds"
	case 636:
		return "ldaps"
	case 993:
		return "imaps"
	case 995:
		return "pop3s"
	case 1433:
		return "mssql"
	case 1521:
		return "oracle"
	case 3306:
		return "mysql"
	case 3389:
		return "rdp"
	case 5432:
		return "postgres"
	case 5900:
		return "vnc"
	case 6379:
		return "redis"
	case 8000, 8080:
		return "http-alt"
	case 8443:
		return "https-alt"
	case 27017:
		return "mongodb"
	default:
		return ""
	}
}
