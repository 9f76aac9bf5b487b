// Package network implements the DNS and WHOIS tool: forward
// resolution, registration lookup, record-type queries against a
// configurable upstream resolver, and reverse PTR lookup.
package network

import (
	"context"
	"log/slog"
	"net"
	"strings"

	"recontk/internal/config"
	"recontk/internal/querycache"
	"recontk/internal/toolkit"
)

// ToolName is the registry identifier.
const ToolName = "network"

// Providers are the capability boundaries the tool calls out to. Tests
// substitute doubles; production uses the defaults from providers.go.
type Providers struct {
	Resolver Resolver
	Whois    WhoisClient
	Dig      DigClient
}

// Resolver is the forward/reverse DNS boundary.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// WhoisClient fetches a raw WHOIS record.
type WhoisClient interface {
	Whois(ctx context.Context, target string) (string, error)
}

// DigClient answers a record-type query.
type DigClient interface {
	Query(ctx context.Context, domain, recordType string) ([]string, error)
}

// Tool is the network analysis tool.
type Tool struct {
	*toolkit.Base
	providers Providers
}

// New builds the tool with its production providers.
func New(cfg *config.Config, logger *slog.Logger, recorder toolkit.Recorder) *Tool {
	return NewWithProviders(cfg, logger, recorder, Providers{
		Resolver: &net.Resolver{},
		Whois:    &whoisClient{},
		Dig:      &digClient{server: cfg.DNSServer, timeout: cfg.DNSTimeout},
	})
}

// NewWithProviders builds the tool over explicit providers.
func NewWithProviders(cfg *config.Config, logger *slog.Logger, recorder toolkit.Recorder, p Providers) *Tool {
	t := &Tool{providers: p}
	cache := querycache.New(cfg.CacheMaxEntries, cfg.CacheTTL)
	t.Base = toolkit.NewBase(ToolName, logger, recorder, cache, map[string]toolkit.Handler{
		"nslookup":       {Call: t.nslookup},
		"whois":          {Call: t.whois},
		"dig":            {Key: digKey, Call: t.dig},
		"reverse_lookup": {Call: t.reverseLookup},
	})
	return t
}

func digKey(target string, opts toolkit.Options) string {
	rtype := strings.ToUpper(opts.String("type", "A"))
	return toolkit.Fingerprint("dig", target, "type="+rtype)
}

// nslookup resolves a domain to its first address, preferring IPv4.
func (t *Tool) nslookup(ctx context.Context, target string, _ toolkit.Options) (any, error) {
	addrs, err := t.providers.Resolver.LookupHost(ctx, target)
	if err != nil {
		return nil, toolkit.ProviderFailuref("DNS lookup failed for %s: %v", target, err)
	}
	if len(addrs) == 0 {
		return nil, toolkit.ProviderFailuref("DNS lookup failed for %s: no addresses found", target)
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			return a, nil
		}
	}
	return addrs[0], nil
}

// whois returns the structured registration record for a domain, or
// the raw record text for an IP target (the registry-style records of
// RIRs do not fit the domain parser).
func (t *Tool) whois(ctx context.Context, target string, _ toolkit.Options) (any, error) {
	raw, err := t.providers.Whois.Whois(ctx, target)
	if err != nil {
		return nil, toolkit.ProviderFailuref("WHOIS lookup failed for %s: %v", target, err)
	}
	if net.ParseIP(target) != nil {
		return strings.ReplaceAll(raw, "\r\n", "\n"), nil
	}
	info, err := parseRegistration(raw)
	if err != nil {
		return nil, toolkit.Malformedf("WHOIS response for %s not parseable: %v", target, err)
	}
	return info, nil
}

// dig answers a raw DNS query for the record type in option "type".
func (t *Tool) dig(ctx context.Context, target string, opts toolkit.Options) (any, error) {
	rtype := strings.ToUpper(opts.String("type", "A"))
	records, err := t.providers.Dig.Query(ctx, target, rtype)
	if err != nil {
		return nil, toolkit.ProviderFailuref("DIG query failed for %s with type %s: %v", target, rtype, err)
	}
	return records, nil
}

// reverseLookup resolves an address to its PTR name.
func (t *Tool) reverseLookup(ctx context.Context, target string, _ toolkit.Options) (any, error) {
	names, err := t.providers.Resolver.LookupAddr(ctx, target)
	if err != nil || len(names) == 0 {
		return nil, toolkit.ProviderFailuref("Reverse lookup failed for %s: no PTR record (%v)", target, err)
	}
	return strings.TrimSuffix(names[0], "."), nil
}
