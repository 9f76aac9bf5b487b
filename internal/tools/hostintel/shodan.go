package hostintel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"recontk/internal/config"
	"recontk/internal/querycache"
	"recontk/internal/toolkit"
)

// ShodanToolName is the registry identifier.
const ShodanToolName = "shodan"

const shodanBaseURL = "https://api.shodan.io"

// ShodanHost is the intelligence record returned for a host.
type ShodanHost struct {
	IP        string          `json:"ip_str"`
	Org       string          `json:"org,omitempty"`
	OS        string          `json:"os,omitempty"`
	Ports     []int           `json:"ports,omitempty"`
	Hostnames []string        `json:"hostnames,omitempty"`
	Country   string          `json:"country_name,omitempty"`
	City      string          `json:"city,omitempty"`
	Services  []ShodanService `json:"data,omitempty"`
}

// ShodanService describes one observed open service.
type ShodanService struct {
	Port      int    `json:"port"`
	Transport string `json:"transport,omitempty"`
	Product   string `json:"product,omitempty"`
	Banner    string `json:"data,omitempty"`
}

// ShodanTool wraps the Shodan host API.
type ShodanTool struct {
	*toolkit.Base
	client HostClient
}

// NewShodan builds the tool. A missing API key fails construction;
// lazily discovering it on first use would hide a misconfiguration
// until deep into a run.
func NewShodan(cfg *config.Config, logger *slog.Logger, recorder toolkit.Recorder) (*ShodanTool, error) {
	if cfg.ShodanAPIKey == "" {
		return nil, toolkit.MissingCredentialf("Shodan API key is missing (set SHODAN_API_KEY)")
	}
	return NewShodanWithClient(cfg, logger, recorder, &shodanClient{
		base:   shodanBaseURL,
		key:    cfg.ShodanAPIKey,
		client: newHTTPClient(),
	}), nil
}

// NewShodanWithClient builds the tool over an explicit client.
func NewShodanWithClient(cfg *config.Config, logger *slog.Logger, recorder toolkit.Recorder, client HostClient) *ShodanTool {
	t := &ShodanTool{client: client}
	cache := querycache.New(cfg.CacheMaxEntries, cfg.CacheTTL)
	t.Base = toolkit.NewBase(ShodanToolName, logger, recorder, cache, map[string]toolkit.Handler{
		Operation: {Call: t.hostDetails},
	})
	return t
}

func (t *ShodanTool) hostDetails(ctx context.Context, target string, _ toolkit.Options) (any, error) {
	rec, err := t.client.HostDetails(ctx, target)
	if err != nil {
		var mal errMalformed
		if errors.As(err, &mal) {
			return nil, toolkit.Malformedf("Shodan response for %s not decodable: %v", target, err)
		}
		return nil, toolkit.ProviderFailuref("Shodan query failed for %s: %v", target, err)
	}
	return rec, nil
}

type shodanClient struct {
	base   string
	key    string
	client *http.Client
}

func (c *shodanClient) HostDetails(ctx context.Context, host string) (any, error) {
	u := fmt.Sprintf("%s/shodan/host/%s?key=%s", c.base, url.PathEscape(host), url.QueryEscape(c.key))
	var rec ShodanHost
	if err := fetchJSON(ctx, c.client, u, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
