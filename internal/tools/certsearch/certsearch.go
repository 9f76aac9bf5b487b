// Package certsearch implements the certificate-transparency tool
// backed by crt.sh. One operation, cert_query, returns the set of
// certificates observed for a domain.
package certsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"recontk/internal/config"
	"recontk/internal/querycache"
	"recontk/internal/toolkit"
)

// ToolName is the registry identifier.
const ToolName = "crtsh"

const crtshBaseURL = "https://crt.sh"

// Certificate is one crt.sh log entry.
type Certificate struct {
	ID           int64  `json:"id"`
	IssuerName   string `json:"issuer_name"`
	CommonName   string `json:"common_name"`
	NameValue    string `json:"name_value"`
	SerialNumber string `json:"serial_number"`
	NotBefore    string `json:"not_before"`
	NotAfter     string `json:"not_after"`
	LoggedAt     string `json:"entry_timestamp"`
}

// CertClient is the capability boundary.
type CertClient interface {
	Search(ctx context.Context, domain string) ([]Certificate, error)
}

// Tool queries certificate-transparency logs.
type Tool struct {
	*toolkit.Base
	client CertClient
}

// New builds the tool with the production crt.sh client.
func New(cfg *config.Config, logger *slog.Logger, recorder toolkit.Recorder) *Tool {
	return NewWithClient(cfg, logger, recorder, &crtshClient{
		base:   crtshBaseURL,
		client: &http.Client{Timeout: 30 * time.Second},
	})
}

// NewWithClient builds the tool over an explicit client.
func NewWithClient(cfg *config.Config, logger *slog.Logger, recorder toolkit.Recorder, client CertClient) *Tool {
	t := &Tool{client: client}
	cache := querycache.New(cfg.CacheMaxEntries, cfg.CacheTTL)
	t.Base = toolkit.NewBase(ToolName, logger, recorder, cache, map[string]toolkit.Handler{
		"cert_query": {Call: t.certQuery},
	})
	return t
}

func (t *Tool) certQuery(ctx context.Context, target string, _ toolkit.Options) (any, error) {
	certs, err := t.client.Search(ctx, target)
	if err != nil {
		return nil, toolkit.ProviderFailuref("Crtsh query failed for %s: %v", target, err)
	}
	return certs, nil
}

// crtshClient queries crt.sh's JSON endpoint, wildcarded to include
// subdomain certificates like the upstream web UI does.
type crtshClient struct {
	base   string
	client *http.Client
}

func (c *crtshClient) Search(ctx context.Context, domain string) ([]Certificate, error) {
	u := fmt.Sprintf("%s/?q=%s&output=json", c.base, url.QueryEscape("%."+domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, err
	}
	var certs []Certificate
	if err := json.Unmarshal(body, &certs); err != nil {
		return nil, toolkit.Malformedf("unexpected crt.sh payload: %v", err)
	}
	return certs, nil
}
