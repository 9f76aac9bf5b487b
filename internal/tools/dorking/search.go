package dorking

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const searchBaseURL = "https://html.duckduckgo.com/html/"

// searchClient scrapes the HTML search endpoint. A global limiter
// spaces its requests so ad-hoc searches cannot hammer the engine even
// outside the batch path's own delays.
type searchClient struct {
	base    string
	client  *http.Client
	limiter *rate.Limiter
}

func newSearchClient() *searchClient {
	return &searchClient{
		base:    searchBaseURL,
		client:  &http.Client{Timeout: 20 * time.Second},
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 1),
	}
}

// Search fetches one result page and extracts up to max result links.
func (s *searchClient) Search(ctx context.Context, query string, max int) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := s.base + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; recontk/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var urls []string
	doc.Find("a.result__a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		if resolved := resolveResultLink(href); resolved != "" {
			urls = append(urls, resolved)
		}
		return max <= 0 || len(urls) < max
	})
	return urls, nil
}

// resolveResultLink unwraps the engine's redirect links, which carry
// the destination in a uddg query parameter.
func resolveResultLink(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if dest := u.Query().Get("uddg"); dest != "" {
		if decoded, err := url.QueryUnescape(dest); err == nil {
			return decoded
		}
		return dest
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return href
	}
	return ""
}
