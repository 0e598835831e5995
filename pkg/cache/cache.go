// Package cache stores computed layouts and rendered sheets.
//
// Every layout run is deterministic, so its outputs can be keyed by a hash of
// its inputs and reused. Three backends implement [Cache]:
//   - [FileCache]: JSON entry files under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for multi-instance servers
//   - [NullCache]: stores nothing, for --no-cache and tests
//
// Keys come from a [Keyer] so that callers never build key strings by hand.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// Clearer is implemented by caches that can drop every entry at once.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Default entry lifetimes.
const (
	// PlanTTL is how long a computed layout grid is kept.
	PlanTTL = 7 * 24 * time.Hour

	// ArtifactTTL is how long a rendered sheet is kept.
	ArtifactTTL = 24 * time.Hour
)

// Key type labels reported to observability hooks.
const (
	KeyTypePlan     = "plan"
	KeyTypeArtifact = "artifact"
)

// NullCache discards every layout and sheet. The runner falls back to it when
// caching is off (--no-cache or backend "none").
type NullCache struct{}

var _ Cache = (*NullCache)(nil)

// NewNullCache returns a cache that always misses.
func NewNullCache() Cache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (*NullCache) Delete(context.Context, string) error { return nil }

func (*NullCache) Close() error { return nil }
