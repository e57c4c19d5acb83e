package cache

import (
	"net/url"
	"path"
	"strings"
)

// URLPrefix is the path under which the HTTP server exposes the cache root.
const URLPrefix = "/cache/"

// NormalizeBaseURL trims trailing slashes and drops a "/default/" store
// segment from a configured public base URL.
func NormalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	base = strings.TrimRight(base, "/")
	if strings.Contains(base+"/", "/default/") {
		base = strings.Replace(base+"/", "/default/", "/", 1)
		base = strings.TrimRight(base, "/")
	}
	return base
}

// PublicURL returns the URL a client fetches the entry at rel (relative to
// the cache root) from. With an empty base the URL is host-relative.
func PublicURL(base, rel string) string {
	escaped := (&url.URL{Path: path.Join(URLPrefix, rel)}).EscapedPath()
	return NormalizeBaseURL(base) + escaped
}

// EmbedHTML returns a <video> snippet for a video URL.
func EmbedHTML(videoURL string) string {
	return `<video controls width="100%" height="auto"><source src="` + videoURL +
		`" type="video/mp4">Your browser does not support the video tag.</video>`
}
