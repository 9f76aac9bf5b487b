package toolkit

import (
	"fmt"
	"sort"
	"strings"
)

// Options carries the free-form per-operation parameters of a request
// ("type" for dig, "query" for ad-hoc search, port bounds for scans).
type Options map[string]any

// String returns the option as a string, or def when absent.
func (o Options) String(key, def string) string {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Int returns the option as an int, or def when absent or not numeric.
func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		var parsed int
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%d", &parsed); err == nil {
			return parsed
		}
	}
	return def
}

// Fingerprint derives the deterministic cache key for an operation.
// Every input that affects the output must be folded in: the operation
// name, the normalized target, and each semantics-affecting option as
// a key=value pair. Pairs are sorted so map iteration order never
// changes the key.
func Fingerprint(op, target string, opts ...string) string {
	parts := make([]string, 0, len(opts)+2)
	parts = append(parts, op, strings.ToLower(strings.TrimSpace(target)))
	if len(opts) > 0 {
		kv := append([]string(nil), opts...)
		sort.Strings(kv)
		parts = append(parts, kv...)
	}
	return strings.Join(parts, "|")
}
