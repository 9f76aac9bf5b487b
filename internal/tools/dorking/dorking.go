// Package dorking implements the search-engine tool: a batch of
// pre-defined dork queries run against a domain with randomized
// inter-query delays, plus a single ad-hoc search. The batch is
// deliberately slow; its sleeps are local to the call so other tools
// keep dispatching while it runs.
package dorking

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"recontk/internal/config"
	"recontk/internal/querycache"
	"recontk/internal/toolkit"
)

// ToolName is the registry identifier.
const ToolName = "dorking"

// defaultDorks is the built-in query list, used when the configuration
// supplies none.
var defaultDorks = []string{
	`inurl:"/admin/login"`,
	`intitle:"index of" "parent directory"`,
	`filetype:sql "insert into"`,
	`filetype:env "DB_PASSWORD"`,
	`inurl:wp-content filetype:log`,
	`intitle:"phpinfo()" "PHP Version"`,
	`filetype:bak inurl:backup`,
	`inurl:".git" -github.com`,
}

// SearchProvider runs one search query and returns up to max result
// URLs.
type SearchProvider interface {
	Search(ctx context.Context, query string, max int) ([]string, error)
}

// Tool is the dorking tool.
type Tool struct {
	*toolkit.Base
	provider   SearchProvider
	dorks      []string
	minDelay   time.Duration
	maxDelay   time.Duration
	maxResults int
	sleep      func(ctx context.Context, d time.Duration) error
}

// New builds the tool with the production search provider.
func New(cfg *config.Config, logger *slog.Logger, recorder toolkit.Recorder) *Tool {
	return NewWithProvider(cfg, logger, recorder, newSearchClient())
}

// NewWithProvider builds the tool over an explicit provider.
func NewWithProvider(cfg *config.Config, logger *slog.Logger, recorder toolkit.Recorder, provider SearchProvider) *Tool {
	dorks := cfg.Dorks
	if len(dorks) == 0 {
		dorks = defaultDorks
	}
	t := &Tool{
		provider:   provider,
		dorks:      dorks,
		minDelay:   cfg.DorkMinDelay,
		maxDelay:   cfg.DorkMaxDelay,
		maxResults: cfg.DorkMaxResults,
		sleep:      sleepContext,
	}
	cache := querycache.New(cfg.CacheMaxEntries, cfg.CacheTTL)
	t.Base = toolkit.NewBase(ToolName, logger, recorder, cache, map[string]toolkit.Handler{
		"process_dorks":  {Call: t.processDorks},
		"process_search": {Key: searchKey, Call: t.processSearch},
	})
	return t
}

const defaultSearchMax = 5

func searchKey(target string, opts toolkit.Options) string {
	return toolkit.Fingerprint("process_search", target,
		"query="+opts.String("query", ""),
		"max="+strconv.Itoa(opts.Int("max", defaultSearchMax)))
}

// processDorks runs every configured dork against the domain,
// sequentially, sleeping a random duration in [minDelay, maxDelay]
// between queries.
func (t *Tool) processDorks(ctx context.Context, target string, _ toolkit.Options) (any, error) {
	matches := make(map[string][]string, len(t.dorks))
	for i, dork := range t.dorks {
		if i > 0 {
			if err := t.sleep(ctx, t.delay()); err != nil {
				return nil, toolkit.ProviderFailuref("Dork processing aborted for %s: %v", target, err)
			}
		}
		urls, err := t.provider.Search(ctx, target+" "+dork, t.maxResults)
		if err != nil {
			return nil, toolkit.ProviderFailuref("Dork search failed for %s (%s): %v", target, dork, err)
		}
		matches[dork] = urls
	}
	return matches, nil
}

// processSearch runs one ad-hoc query concatenated with the target.
func (t *Tool) processSearch(ctx context.Context, target string, opts toolkit.Options) (any, error) {
	query := opts.String("query", "")
	if query == "" {
		return nil, fmt.Errorf("search failed for %s: missing required option %q", target, "query")
	}
	max := opts.Int("max", defaultSearchMax)
	urls, err := t.provider.Search(ctx, target+" "+query, max)
	if err != nil {
		return nil, toolkit.ProviderFailuref("Search failed for %s: %v", target, err)
	}
	return urls, nil
}

func (t *Tool) delay() time.Duration {
	if t.maxDelay <= t.minDelay {
		return t.minDelay
	}
	return t.minDelay + time.Duration(rand.Int63n(int64(t.maxDelay-t.minDelay)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
