// Package cache stores rendered graph artifacts.
//
// Rendering a graph to SVG runs the embedded Graphviz and is by far the most
// expensive export. Artifacts are keyed by the hash of the DOT source, so an
// unchanged graph is rendered once no matter how often it is requested.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: one JSON file per entry, used by the CLI
//   - [RedisCache]: shared cache for the HTTP API
//   - [NullCache]: caching disabled
//
// Wrap a backend with [Instrument] to report hits, misses and writes to the
// observability cache hooks.
package cache

import (
	"context"
	"time"

	"github.com/matzehuels/ecsgraph/pkg/observability"
)

// Cache is a byte-oriented key/value store with optional expiry.
// Get reports a miss as (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// DefaultTTL is how long rendered artifacts stay cached.
const DefaultTTL = 24 * time.Hour

// Keyer derives cache keys for rendered artifacts.
type Keyer interface {
	// ArtifactKey returns the key for source rendered in format.
	ArtifactKey(format string, source []byte) string
}

// DefaultKeyer produces keys of the form "artifact:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(format string, source []byte) string {
	return hashKey("artifact", format, Hash(source))
}

// =============================================================================
// Instrumentation
// =============================================================================

type instrumented struct {
	Cache
	keyType string
}

// Instrument reports every Get and Set on c to [observability.Cache] under
// keyType.
func Instrument(c Cache, keyType string) Cache {
	return &instrumented{Cache: c, keyType: keyType}
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if ok {
		observability.Cache().OnCacheHit(ctx, c.keyType)
	} else {
		observability.Cache().OnCacheMiss(ctx, c.keyType)
	}
	return data, ok, nil
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, c.keyType, len(data))
	return nil
}
