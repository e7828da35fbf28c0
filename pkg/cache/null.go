package cache

import (
	"context"
	"time"
)

// NullCache stores nothing. Builds run with --no-cache, and the server
// uses it when no artifact cache is configured, so every SVG is rendered
// on demand.
type NullCache struct{}

func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error { return nil }
func (NullCache) Close() error { return nil }

var _ Cache = NullCache{}
