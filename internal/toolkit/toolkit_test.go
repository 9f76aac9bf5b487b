package toolkit

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"

	"recontk/internal/log"
	"recontk/internal/querycache"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingProvider stands in for a capability provider and counts
// invocations per fingerprint-relevant input.
type countingProvider struct {
	mu    sync.Mutex
	calls map[string]int
	fail  bool
}

func newCountingProvider() *countingProvider {
	return &countingProvider{calls: make(map[string]int)}
}

func (p *countingProvider) call(key, value string) (any, error) {
	p.mu.Lock()
	p.calls[key]++
	p.mu.Unlock()
	if p.fail {
		return nil, ProviderFailuref("lookup failed for %s: boom", key)
	}
	return value, nil
}

func (p *countingProvider) count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[key]
}

// newNetworkStub builds a tool shaped like the network tool with a
// stubbed resolution provider.
func newNetworkStub(p *countingProvider) *Base {
	return NewBase("network", log.NewNop(), nil, querycache.New(0, 0), map[string]Handler{
		"nslookup": {
			Call: func(_ context.Context, target string, _ Options) (any, error) {
				return p.call("nslookup|"+target, "93.184.216.34")
			},
		},
		"dig": {
			Key: func(target string, opts Options) string {
				return Fingerprint("dig", target, "type="+opts.String("type", "A"))
			},
			Call: func(_ context.Context, target string, opts Options) (any, error) {
				rtype := opts.String("type", "A")
				return p.call("dig|"+target+"|"+rtype, "record:"+rtype)
			},
		},
	})
}

func TestExecuteUnknownToolType(t *testing.T) {
	p := newCountingProvider()
	tk := New(log.NewNop(), newNetworkStub(p))

	res := tk.Execute(context.Background(), "quantum", "nslookup", "example.com", nil)
	if res.Success {
		t.Fatal("expected failure for unknown tool type")
	}
	if !strings.Contains(res.Error, "Unsupported tool type: quantum") {
		t.Errorf("error should name the tool type, got %q", res.Error)
	}
	if got := len(p.calls); got != 0 {
		t.Errorf("provider invoked %d times for unknown tool type", got)
	}
}

func TestDispatchUnsupportedOperation(t *testing.T) {
	p := newCountingProvider()
	tk := New(log.NewNop(), newNetworkStub(p))

	res := tk.Execute(context.Background(), "network", "teleport", "example.com", nil)
	if res.Success {
		t.Fatal("expected failure for unknown operation")
	}
	if !strings.Contains(res.Error, "Unsupported operation: teleport") {
		t.Errorf("error should name the operation, got %q", res.Error)
	}
	if got := len(p.calls); got != 0 {
		t.Errorf("provider invoked %d times for unknown operation", got)
	}
}

func TestExecuteEndToEndWithMemoization(t *testing.T) {
	p := newCountingProvider()
	tk := New(log.NewNop(), newNetworkStub(p))
	ctx := context.Background()

	first := tk.Execute(ctx, "network", "nslookup", "example.com", Options{})
	if !first.Success {
		t.Fatalf("first call failed: %s", first.Error)
	}
	if first.Data != "93.184.216.34" {
		t.Fatalf("data = %v, want 93.184.216.34", first.Data)
	}

	second := tk.Execute(ctx, "network", "nslookup", "example.com", Options{})
	if !second.Success || second.Data != first.Data {
		t.Fatalf("second call mismatch: %+v", second)
	}
	if got := p.count("nslookup|example.com"); got != 1 {
		t.Errorf("provider invoked %d times, want 1 (second call must be a cache hit)", got)
	}
}

func TestCacheKeyDiscriminatesOptions(t *testing.T) {
	p := newCountingProvider()
	tk := New(log.NewNop(), newNetworkStub(p))
	ctx := context.Background()

	a := tk.Execute(ctx, "network", "dig", "example.com", Options{"type": "A"})
	ns := tk.Execute(ctx, "network", "dig", "example.com", Options{"type": "NS"})
	if !a.Success || !ns.Success {
		t.Fatalf("dig calls failed: %v / %v", a, ns)
	}
	if a.Data == ns.Data {
		t.Errorf("A and NS results must not share a cache entry: both %v", a.Data)
	}

	// Each variant is cached independently.
	tk.Execute(ctx, "network", "dig", "example.com", Options{"type": "A"})
	tk.Execute(ctx, "network", "dig", "example.com", Options{"type": "NS"})
	if got := p.count("dig|example.com|A"); got != 1 {
		t.Errorf("A queries hit the provider %d times, want 1", got)
	}
	if got := p.count("dig|example.com|NS"); got != 1 {
		t.Errorf("NS queries hit the provider %d times, want 1", got)
	}
}

func TestFailureNotCachedAndIsolated(t *testing.T) {
	p := newCountingProvider()
	p.fail = true
	tool := newNetworkStub(p)
	tk := New(log.NewNop(), tool)
	ctx := context.Background()

	res := tk.Execute(ctx, "network", "nslookup", "down.example", nil)
	if res.Success {
		t.Fatal("expected failure")
	}
	if tool.Cache().Len() != 0 {
		t.Errorf("failure must not be cached, cache has %d entries", tool.Cache().Len())
	}

	// The provider recovers; the next call must retry, not replay the
	// failure, and other targets stay unaffected.
	p.fail = false
	res = tk.Execute(ctx, "network", "nslookup", "down.example", nil)
	if !res.Success {
		t.Fatalf("retry after provider recovery failed: %s", res.Error)
	}
	if got := p.count("nslookup|down.example"); got != 2 {
		t.Errorf("provider invoked %d times, want 2 (fail, then retry)", got)
	}

	other := tk.Execute(ctx, "network", "dig", "up.example", Options{"type": "A"})
	if !other.Success {
		t.Errorf("unrelated operation affected by earlier failure: %s", other.Error)
	}
}

func TestConcurrentDispatchSameKey(t *testing.T) {
	p := newCountingProvider()
	tool := newNetworkStub(p)
	tk := New(log.NewNop(), tool)

	const n = 32
	var wg sync.WaitGroup
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = tk.Execute(context.Background(), "network", "nslookup", "example.com", nil)
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		if !res.Success || res.Data != "93.184.216.34" {
			t.Fatalf("call %d: %+v", i, res)
		}
	}
	if got := tool.Cache().Len(); got != 1 {
		t.Errorf("cache holds %d entries, want exactly 1", got)
	}
	if got := p.count("nslookup|example.com"); got != 1 {
		t.Errorf("provider invoked %d times under concurrency, want 1 (singleflight)", got)
	}
}

// recorderFunc adapts a function to the Recorder interface.
type recorderFunc func(ctx context.Context, operation string, details map[string]any)

func (f recorderFunc) Record(ctx context.Context, operation string, details map[string]any) {
	f(ctx, operation, details)
}

func TestAuditRecordedOnSuccessOnly(t *testing.T) {
	var recorded atomic.Int64
	var lastOp atomic.Value
	rec := recorderFunc(func(_ context.Context, op string, details map[string]any) {
		lastOp.Store(op)
		recorded.Add(1)
	})

	fail := true
	tool := NewBase("t", log.NewNop(), rec, querycache.New(0, 0), map[string]Handler{
		"probe": {Call: func(context.Context, string, Options) (any, error) {
			if fail {
				return nil, ProviderFailuref("nope")
			}
			return "ok", nil
		}},
	})

	if res := tool.Dispatch(context.Background(), "probe", "x", nil); res.Success {
		t.Fatal("expected failure")
	}
	if recorded.Load() != 0 {
		t.Errorf("failed dispatch emitted %d audit records", recorded.Load())
	}

	fail = false
	tool.Dispatch(context.Background(), "probe", "x", nil) // miss
	tool.Dispatch(context.Background(), "probe", "x", nil) // hit
	if recorded.Load() != 2 {
		t.Errorf("recorded %d audit entries, want 2 (miss and hit both log)", recorded.Load())
	}
	if op, _ := lastOp.Load().(string); op != "probe" {
		t.Errorf("audit record named operation %q, want probe", op)
	}
}

func TestPanickingRecorderDoesNotAffectResult(t *testing.T) {
	rec := recorderFunc(func(context.Context, string, map[string]any) {
		panic("audit sink down")
	})
	tool := NewBase("t", log.NewNop(), rec, querycache.New(0, 0), map[string]Handler{
		"probe": {Call: func(context.Context, string, Options) (any, error) { return 42, nil }},
	})

	res := tool.Dispatch(context.Background(), "probe", "x", nil)
	if !res.Success || res.Data != 42 {
		t.Fatalf("result corrupted by audit failure: %+v", res)
	}
}

func TestToolTypesSorted(t *testing.T) {
	p := newCountingProvider()
	b := NewBase("zeta", log.NewNop(), nil, querycache.New(0, 0), map[string]Handler{
		"noop": {Call: func(context.Context, string, Options) (any, error) { return nil, nil }},
	})
	tk := New(log.NewNop(), newNetworkStub(p), b)
	types := tk.ToolTypes()
	if len(types) != 2 || types[0] != "network" || types[1] != "zeta" {
		t.Errorf("ToolTypes() = %v", types)
	}
}
