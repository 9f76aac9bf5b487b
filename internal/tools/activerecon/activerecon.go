// Package activerecon implements the active probing tool: local
// connection enumeration, ICMP traceroute and ranged TCP port
// scanning. These touch raw sockets and privileged interfaces;
// permission and reachability failures surface as ordinary provider
// failures like any API error.
package activerecon

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"recontk/internal/config"
	"recontk/internal/querycache"
	"recontk/internal/toolkit"
)

// ToolName is the registry identifier.
const ToolName = "active_recon"

// Providers are the system-level capability boundaries.
type Providers struct {
	Connections ConnLister
	Tracer      Tracer
	Scanner     PortScanner
}

// ConnLister enumerates current local network connections.
type ConnLister interface {
	Connections(ctx context.Context, kind string) ([]Connection, error)
}

// Tracer performs a hop-by-hop path trace.
type Tracer interface {
	Trace(ctx context.Context, host string, maxHops int) ([]Hop, error)
}

// PortScanner probes a TCP port range.
type PortScanner interface {
	Scan(ctx context.Context, host string, from, to int) ([]PortStatus, error)
}

// Tool is the active reconnaissance tool.
type Tool struct {
	*toolkit.Base
	providers Providers
	cfg       *config.Config
}

// New builds the tool with its production providers.
func New(cfg *config.Config, logger *slog.Logger, recorder toolkit.Recorder) *Tool {
	return NewWithProviders(cfg, logger, recorder, Providers{
		Connections: &psutilLister{},
		Tracer:      &icmpTracer{timeout: cfg.ScanTimeout},
		Scanner:     &tcpScanner{timeout: cfg.ScanTimeout},
	})
}

// NewWithProviders builds the tool over explicit providers.
func NewWithProviders(cfg *config.Config, logger *slog.Logger, recorder toolkit.Recorder, p Providers) *Tool {
	t := &Tool{providers: p, cfg: cfg}
	cache := querycache.New(cfg.CacheMaxEntries, cfg.CacheTTL)
	t.Base = toolkit.NewBase(ToolName, logger, recorder, cache, map[string]toolkit.Handler{
		"net_connections": {Call: t.netConnections},
		"traceroute":      {Key: t.tracerouteKey, Call: t.traceroute},
		"port_scan":       {Key: t.portScanKey, Call: t.portScan},
	})
	return t
}

func (t *Tool) tracerouteKey(target string, opts toolkit.Options) string {
	hops := opts.Int("max_hops", t.cfg.TracerouteMaxHops)
	return toolkit.Fingerprint("traceroute", target, "max_hops="+strconv.Itoa(hops))
}

func (t *Tool) portScanKey(target string, opts toolkit.Options) string {
	from := opts.Int("from", t.cfg.ScanFromPort)
	to := opts.Int("to", t.cfg.ScanToPort)
	return toolkit.Fingerprint("port_scan", target,
		"from="+strconv.Itoa(from), "to="+strconv.Itoa(to))
}

// netConnections lists current TCP and UDP connections. The target is
// unused; the subject is the local host.
func (t *Tool) netConnections(ctx context.Context, _ string, _ toolkit.Options) (any, error) {
	tcp, err := t.providers.Connections.Connections(ctx, "tcp")
	if err != nil {
		return nil, toolkit.ProviderFailuref("Failed to retrieve network connections: %v", err)
	}
	udp, err := t.providers.Connections.Connections(ctx, "udp")
	if err != nil {
		return nil, toolkit.ProviderFailuref("Failed to retrieve network connections: %v", err)
	}
	return &ConnectionReport{TCP: tcp, UDP: udp}, nil
}

// traceroute traces the path to target up to max_hops.
func (t *Tool) traceroute(ctx context.Context, target string, opts toolkit.Options) (any, error) {
	maxHops := opts.Int("max_hops", t.cfg.TracerouteMaxHops)
	if maxHops < 1 {
		return nil, fmt.Errorf("traceroute failed for %s: max_hops must be positive", target)
	}
	hops, err := t.providers.Tracer.Trace(ctx, target, maxHops)
	if err != nil {
		return nil, toolkit.ProviderFailuref("Failed to retrieve traceroute for %s: %v", target, err)
	}
	return &TraceReport{Host: target, Hops: hops, Report: FormatHops(hops)}, nil
}

// portScan probes the requested port range on target.
func (t *Tool) portScan(ctx context.Context, target string, opts toolkit.Options) (any, error) {
	from := opts.Int("from", t.cfg.ScanFromPort)
	to := opts.Int("to", t.cfg.ScanToPort)
	if from < 1 || to > 65535 || to < from {
		return nil, fmt.Errorf("port scan failed for %s: invalid range %d-%d", target, from, to)
	}
	ports, err := t.providers.Scanner.Scan(ctx, target, from, to)
	if err != nil {
		return nil, toolkit.ProviderFailuref("Failed to perform port scan for %s: %v", target, err)
	}
	return &ScanReport{Host: target, From: from, To: to, Ports: ports}, nil
}
