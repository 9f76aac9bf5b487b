// Package toolkit is the orchestration core: the Result envelope, the
// per-tool dispatch contract and the Toolkit registry that routes
// requests to the right tool. Capability providers (DNS, WHOIS, the
// Shodan and IPinfo APIs, crt.sh, search engines, raw sockets) live in
// the internal/tools packages and are reached only through handlers
// registered here.
package toolkit

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"recontk/internal/querycache"
)

// Recorder receives one structured record per successful dispatch.
// Implementations must not panic; dispatch additionally shields itself
// so a misbehaving sink can never change the returned Result.
type Recorder interface {
	Record(ctx context.Context, operation string, details map[string]any)
}

// Handler binds one operation name to its cache-key derivation and its
// capability-provider call.
type Handler struct {
	// Key derives the cache fingerprint for a request. When nil the
	// operation name and target alone form the key, which is only
	// correct for handlers whose output depends on nothing else.
	Key func(target string, opts Options) string

	// Call invokes the capability provider. Errors should carry a
	// taxonomy kind (ProviderFailuref, Malformedf) and name the
	// operation and target.
	Call func(ctx context.Context, target string, opts Options) (any, error)
}

// Tool is one capability area: a named set of operations sharing a
// private cache.
type Tool interface {
	Name() string
	Operations() []string
	Dispatch(ctx context.Context, operation, target string, opts Options) Result
}

// Base implements the dispatch contract shared by every tool. Concrete
// tools embed it and contribute only their operation table and
// providers.
type Base struct {
	name     string
	ops      map[string]Handler
	order    []string
	cache    *querycache.Cache
	group    singleflight.Group
	recorder Recorder
	logger   *slog.Logger
}

// NewBase builds the shared dispatch core for a tool. The operation
// table is fixed at construction; there is no way to register handlers
// afterwards.
func NewBase(name string, logger *slog.Logger, recorder Recorder, cache *querycache.Cache, ops map[string]Handler) *Base {
	order := make([]string, 0, len(ops))
	for op := range ops {
		order = append(order, op)
	}
	return &Base{
		name:     name,
		ops:      ops,
		order:    order,
		cache:    cache,
		recorder: recorder,
		logger:   logger.With("tool", name),
	}
}

// Name returns the tool-type identifier used by the registry.
func (b *Base) Name() string { return b.name }

// Operations lists the operation names this tool accepts.
func (b *Base) Operations() []string {
	return append([]string(nil), b.order...)
}

// Cache exposes the tool's private cache so callers can invalidate or
// clear entries; default flows never do.
func (b *Base) Cache() *querycache.Cache { return b.cache }

// Dispatch routes an operation to its handler: unknown operations fail
// softly, cache hits skip the provider entirely, provider failures are
// normalized into the envelope and never cached, successes are cached
// and audited. Concurrent misses on the same fingerprint are collapsed
// into a single provider call.
func (b *Base) Dispatch(ctx context.Context, operation, target string, opts Options) Result {
	h, ok := b.ops[operation]
	if !ok {
		return Errorf("Unsupported operation: %s", operation)
	}

	key := Fingerprint(operation, target)
	if h.Key != nil {
		key = h.Key(target, opts)
	}

	if v, hit := b.cache.Get(key); hit {
		b.record(ctx, operation, map[string]any{"target": target, "cached": true})
		return Ok(v)
	}

	v, err, _ := b.group.Do(key, func() (any, error) {
		// A concurrent dispatch may have stored the entry while this
		// call waited on the flight group.
		if v, hit := b.cache.Get(key); hit {
			return v, nil
		}
		data, err := h.Call(ctx, target, opts)
		if err != nil {
			return nil, err
		}
		b.cache.Put(key, data)
		return data, nil
	})
	if err != nil {
		b.logger.Error("operation failed",
			"operation", operation, "target", target,
			"kind", string(KindOf(err)), "error", err)
		return Err(err)
	}

	b.record(ctx, operation, map[string]any{"target": target})
	return Ok(v)
}

// record emits the audit entry for a successful dispatch. The sink is
// best-effort: a panicking recorder is logged and swallowed.
func (b *Base) record(ctx context.Context, operation string, details map[string]any) {
	if b.recorder == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("audit recorder panicked", "operation", operation, "panic", r)
		}
	}()
	b.recorder.Record(ctx, operation, details)
}
