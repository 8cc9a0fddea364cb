// Package cache is the short-TTL read cache in front of commerce-platform
// reads. It stores raw JSON-encoded records keyed by operation + normalized
// arguments; a value is never served past its TTL.
package cache

import (
	"context"
	"strings"
	"time"
)

// ReadCache is the cache contract. Get returns the stored value and true on
// a fresh hit; expired or absent keys report a miss. Set never fails from
// the caller's perspective: a cache write error only costs a future miss.
type ReadCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// Key derives a deterministic cache key from an operation name and its
// normalized arguments. Arguments are lowercased and trimmed so that
// equivalent lookups share an entry.
func Key(op string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, op)
	for _, a := range args {
		parts = append(parts, strings.ToLower(strings.TrimSpace(a)))
	}
	return strings.Join(parts, "|")
}
