// Package cache stores fetched article bodies so repeated runs do not
// re-download pages that rarely change.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the storage interface shared by the memory and disk layers.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a stable cache key from an article URL. The version segment
// invalidates everything when the stored format changes.
func Key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "railwatch:v1:" + hex.EncodeToString(hash[:])
}
