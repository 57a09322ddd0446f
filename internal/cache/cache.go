// Package cache stores serialized configuration records in front of the
// logic store.
package cache

import (
	"context"
	"strings"
	"time"
)

// Cache is a byte-oriented key/value cache with per-entry expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

const keyPrefix = "radreport"

// Key joins parts under the service prefix, e.g. radreport:base:u1.
func Key(parts ...string) string {
	return keyPrefix + ":" + strings.Join(parts, ":")
}

// DefaultTTL applies when a configuration leaves the TTL unset.
const DefaultTTL = 10 * time.Minute
