// Package hostintel implements the two host-intelligence tools. Both
// wrap an HTTP API keyed by a credential resolved at construction:
// Shodan for open services and banners, IPinfo for geolocation and
// organization data. They are independent tools with the same shape so
// callers can query both backends for one target in parallel.
package hostintel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Operation is the single operation both tools expose.
const Operation = "get_host_details"

// HostClient is the capability boundary shared by both backends.
type HostClient interface {
	HostDetails(ctx context.Context, host string) (any, error)
}

// fetchJSON performs a GET and decodes the body into out. A non-200
// status is a provider failure reported with the body's first line for
// context; both backends return their error messages that way.
func fetchJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, firstLine(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errMalformed{err}
	}
	return nil
}

// errMalformed tags a decode failure so the handler can map it to the
// malformed-response kind instead of a generic provider failure.
type errMalformed struct{ err error }

func (e errMalformed) Error() string { return e.err.Error() }
func (e errMalformed) Unwrap() error { return e.err }

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' || i > 160 {
			return string(b[:i])
		}
	}
	return string(b)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}
