package engine

import "time"

// Cache status values for the X-Cache header.
const (
	CacheHit  = "HIT"
	CacheMiss = "MISS"
)

// Result describes a produced or reused artifact. It is a value type;
// callers never mutate it after the engine returns it.
type Result struct {
	// Path is the absolute location of the artifact on disk.
	Path string `json:"path"`
	// URL is where clients fetch the artifact from.
	URL         string    `json:"url"`
	MimeType    string    `json:"mimeType"`
	ByteSize    int64     `json:"byteSize"`
	FromCache   bool      `json:"fromCache"`
	CacheKey    string    `json:"cacheKey"`
	RawCacheKey string    `json:"rawCacheKey"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CacheStatus returns HIT for reused artifacts and MISS for fresh builds.
func (r Result) CacheStatus() string {
	if r.FromCache {
		return CacheHit
	}
	return CacheMiss
}
