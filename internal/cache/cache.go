package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching fetched pages and search results
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// PageKey generates a cache key for a fetched URL
func PageKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "veridict:page:v1:" + hex.EncodeToString(hash[:])
}

// SearchKey generates a cache key for a search query
func SearchKey(query string, limit int) string {
	hash := sha256.Sum256([]byte(query))
	return "veridict:search:v1:" + hex.EncodeToString(hash[:])
}
