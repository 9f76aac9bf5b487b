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

// IPInfoToolName is the registry identifier.
const IPInfoToolName = "ipinfo"

const ipinfoBaseURL = "https://ipinfo.io"

// IPInfoRecord is the geolocation record for a host.
type IPInfoRecord struct {
	IP       string `json:"ip"`
	Hostname string `json:"hostname,omitempty"`
	City     string `json:"city,omitempty"`
	Region   string `json:"region,omitempty"`
	Country  string `json:"country,omitempty"`
	Loc      string `json:"loc,omitempty"`
	Org      string `json:"org,omitempty"`
	Postal   string `json:"postal,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// IPInfoTool wraps the IPinfo API.
type IPInfoTool struct {
	*toolkit.Base
	client HostClient
}

// NewIPInfo builds the tool; a missing access token fails construction.
func NewIPInfo(cfg *config.Config, logger *slog.Logger, recorder toolkit.Recorder) (*IPInfoTool, error) {
	if cfg.IPInfoToken == "" {
		return nil, toolkit.MissingCredentialf("IPinfo access token is missing (set IPINFO_ACCESS_TOKEN)")
	}
	return NewIPInfoWithClient(cfg, logger, recorder, &ipinfoClient{
		base:   ipinfoBaseURL,
		token:  cfg.IPInfoToken,
		client: newHTTPClient(),
	}), nil
}

// NewIPInfoWithClient builds the tool over an explicit client.
func NewIPInfoWithClient(cfg *config.Config, logger *slog.Logger, recorder toolkit.Recorder, client HostClient) *IPInfoTool {
	t := &IPInfoTool{client: client}
	cache := querycache.New(cfg.CacheMaxEntries, cfg.CacheTTL)
	t.Base = toolkit.NewBase(IPInfoToolName, logger, recorder, cache, map[string]toolkit.Handler{
		Operation: {Call: t.hostDetails},
	})
	return t
}

func (t *IPInfoTool) hostDetails(ctx context.Context, target string, _ toolkit.Options) (any, error) {
	rec, err := t.client.HostDetails(ctx, target)
	if err != nil {
		var mal errMalformed
		if errors.As(err, &mal) {
			return nil, toolkit.Malformedf("IPinfo response for %s not decodable: %v", target, err)
		}
		return nil, toolkit.ProviderFailuref("IPinfo query failed for %s: %v", target, err)
	}
	return rec, nil
}

type ipinfoClient struct {
	base   string
	token  string
	client *http.Client
}

func (c *ipinfoClient) HostDetails(ctx context.Context, host string) (any, error) {
	u := fmt.Sprintf("%s/%s?token=%s", c.base, url.PathEscape(host), url.QueryEscape(c.token))
	var rec IPInfoRecord
	if err := fetchJSON(ctx, c.client, u, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
