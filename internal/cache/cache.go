package cache

import (
	"regexp"
	"strings"
	"time"
)

// Cache is the byte-level caching interface shared by the memory, disk
// and layered implementations.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// NormalizeName canonicalizes a product name for cache keying, so
// "Sony WH-1000XM5!" and "sony wh1000xm5" collide the way a user
// expects.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = nonAlnum.ReplaceAllString(name, "")
	name = whitespace.ReplaceAllString(name, "_")
	return name
}

// ReportKey is the cache key for a finished report.
func ReportKey(productName string) string {
	return "reviewlens:v1:report:" + NormalizeName(productName)
}

// ReviewsKey is the cache key for a collected review set.
func ReviewsKey(productName string) string {
	return "reviewlens:v1:reviews:" + NormalizeName(productName)
}
