// Package fingerprint derives the deterministic cache keys for transform
// results and video jobs.
package fingerprint

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"image-resize-ai/internal/assets"
	"image-resize-ai/internal/params"
)

// KeyLength is the number of hex characters kept in a cache key.
const KeyLength = 32

// Key is a computed fingerprint. RawCacheKey is the pre-image, kept for
// debugging and stored beside the entry.
type Key struct {
	CacheKey    string
	RawCacheKey string
}

// Compute returns the fingerprint of an image transform. It is pure and
// total: equal inputs always give equal keys.
func Compute(ref assets.Ref, p params.Params) Key {
	var b strings.Builder
	b.WriteString("img:")
	b.WriteString(ref.Path)
	if ref.Digest != "" {
		b.WriteByte('@')
		b.WriteString(ref.Digest)
	}
	b.WriteByte('?')
	b.WriteString(p.Canonical())
	return fromRaw(b.String())
}

// VideoSpec is everything that determines a generated video.
type VideoSpec struct {
	Asset         assets.Ref
	SecondAsset   *assets.Ref
	Prompt        string
	AspectRatio   string
	Silent        bool
	AutoReference bool
}

// ComputeVideo returns the fingerprint of a video generation request.
func ComputeVideo(spec VideoSpec) Key {
	var b strings.Builder
	b.WriteString("video:")
	writeRef(&b, spec.Asset)
	if spec.SecondAsset != nil {
		b.WriteString("|second:")
		writeRef(&b, *spec.SecondAsset)
	}
	b.WriteString("|prompt:")
	b.WriteString(strconv.Quote(spec.Prompt))
	b.WriteString("|aspect:")
	b.WriteString(spec.AspectRatio)
	b.WriteString("|silent:")
	b.WriteString(strconv.FormatBool(spec.Silent))
	b.WriteString("|autoref:")
	b.WriteString(strconv.FormatBool(spec.AutoReference))
	return fromRaw(b.String())
}

// Digest returns a short content digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

func writeRef(b *strings.Builder, ref assets.Ref) {
	b.WriteString(ref.Path)
	if ref.Digest != "" {
		b.WriteByte('@')
		b.WriteString(ref.Digest)
	}
}

func fromRaw(raw string) Key {
	sum := blake3.Sum256([]byte(raw))
	return Key{
		CacheKey:    hex.EncodeToString(sum[:])[:KeyLength],
		RawCacheKey: raw,
	}
}
