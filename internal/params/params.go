package params

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"image-resize-ai/internal/assets"
	"image-resize-ai/internal/mediaerr"
)

// AspectMode selects how an image is fitted into the requested box.
type AspectMode string

const (
	AspectFit     AspectMode = "fit"
	AspectCrop    AspectMode = "crop"
	AspectStretch AspectMode = "stretch"
	AspectPad     AspectMode = "pad"
)

// Canonical parameter keys.
const (
	KeyWidth      = "width"
	KeyHeight     = "height"
	KeyQuality    = "quality"
	KeyAspect     = "aspect"
	KeyFormat     = "format"
	KeyPrompt     = "prompt"
	KeyTrim       = "trim"
	KeyGrayscale  = "grayscale"
	KeyBackground = "background"
	KeyLook       = "look"
)

// DefaultMaxDimension bounds width and height when ParseOptions leaves it unset.
const DefaultMaxDimension = 8192

var aliases = map[string]string{
	"width": KeyWidth, "w": KeyWidth,
	"height": KeyHeight, "h": KeyHeight,
	"quality": KeyQuality, "q": KeyQuality,
	"aspect": KeyAspect, "a": KeyAspect, "aspectmode": KeyAspect,
	"format": KeyFormat, "f": KeyFormat,
	"prompt": KeyPrompt, "p": KeyPrompt,
	"trim": KeyTrim, "t": KeyTrim,
	"grayscale": KeyGrayscale, "g": KeyGrayscale,
	"background": KeyBackground, "bg": KeyBackground,
	"look": KeyLook, "image2": KeyLook, "lookimage": KeyLook, "look_image": KeyLook,
}

var keyOrder = []string{
	KeyAspect, KeyBackground, KeyFormat, KeyGrayscale, KeyHeight,
	KeyLook, KeyPrompt, KeyQuality, KeyTrim, KeyWidth,
}

var formatSynonyms = map[string]string{
	"jpg": "jpeg", "jpeg": "jpeg", "jpe": "jpeg", "jfif": "jpeg",
	"tif": "tiff", "tiff": "tiff",
	"heic": "heif", "heif": "heif",
	"png": "png", "webp": "webp", "gif": "gif", "bmp": "bmp", "avif": "avif",
}

var aspectSynonyms = map[string]AspectMode{
	"fit": AspectFit, "contain": AspectFit, "inside": AspectFit,
	"crop": AspectCrop, "cover": AspectCrop,
	"stretch": AspectStretch, "fill": AspectStretch,
	"pad": AspectPad,
}

var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Params is a validated, canonical set of transform parameters. Zero values
// mean "absent"; Aspect is empty for the default (fit).
type Params struct {
	Width      int
	Height     int
	Quality    int
	Aspect     AspectMode
	Format     string
	Prompt     string
	Trim       bool
	Grayscale  bool
	Background string
	// Look is a second source asset composed in by prompt generation. It
	// is only meaningful together with Prompt.
	Look string
}

// ParseOptions controls Parse.
type ParseOptions struct {
	// Strict rejects keys outside the allow-list instead of ignoring them.
	Strict       bool
	MaxDimension int
}

// Grants records what the caller is permitted to request.
type Grants struct {
	AllowPrompt bool
}

// CanonicalKey maps an accepted key or alias to its canonical name.
func CanonicalKey(key string) (string, bool) {
	k, ok := aliases[strings.ToLower(key)]
	return k, ok
}

// CanonicalFormat maps a format name or synonym to its canonical name.
func CanonicalFormat(name string) (string, bool) {
	f, ok := formatSynonyms[strings.ToLower(strings.TrimPrefix(name, "."))]
	return f, ok
}

// Parse validates raw request values against the allow-list.
func Parse(values map[string][]string, opts ParseOptions) (Params, error) {
	maxDim := opts.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[string]string, len(keys))
	for _, raw := range keys {
		vs := values[raw]
		if len(vs) == 0 {
			continue
		}
		key, ok := CanonicalKey(raw)
		if !ok {
			if opts.Strict {
				return Params{}, invalid("unknown parameter %q", raw)
			}
			continue
		}
		v := strings.TrimSpace(vs[len(vs)-1])
		if prev, dup := seen[key]; dup && prev != v {
			return Params{}, invalid("conflicting values for %s", key)
		}
		seen[key] = v
	}

	var p Params
	var err error
	for _, key := range keyOrder {
		v, ok := seen[key]
		if !ok {
			continue
		}
		switch key {
		case KeyWidth:
			p.Width, err = parseBounded(key, v, 1, maxDim)
		case KeyHeight:
			p.Height, err = parseBounded(key, v, 1, maxDim)
		case KeyQuality:
			p.Quality, err = parseBounded(key, v, 1, 100)
		case KeyAspect:
			mode, ok := aspectSynonyms[strings.ToLower(v)]
			if !ok {
				err = invalid("unsupported aspect %q", v)
			}
			if mode != AspectFit {
				p.Aspect = mode
			}
		case KeyFormat:
			f, ok := CanonicalFormat(v)
			if !ok {
				err = invalid("unsupported format %q", v)
			}
			p.Format = f
		case KeyPrompt:
			p.Prompt = strings.Join(strings.Fields(v), " ")
		case KeyTrim:
			p.Trim, err = parseBool(key, v)
		case KeyGrayscale:
			p.Grayscale, err = parseBool(key, v)
		case KeyBackground:
			p.Background, err = parseColor(v)
		case KeyLook:
			p.Look, err = assets.NormalizePath(v)
			if err != nil {
				err = invalid("invalid look image path %q", v)
			}
		}
		if err != nil {
			return Params{}, err
		}
	}
	return p.normalize(), nil
}

// normalize drops fields that cannot affect the output.
func (p Params) normalize() Params {
	if p.AspectMode() != AspectPad {
		p.Background = ""
	}
	if p.Prompt == "" {
		p.Look = ""
	}
	return p
}

// Validate checks p against the same bounds Parse enforces. It is for
// Params built in code rather than parsed from a request.
func (p Params) Validate(opts ParseOptions) error {
	maxDim := opts.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}

	switch {
	case p.Width < 0 || p.Width > maxDim:
		return invalid("width must be between 1 and %d, got %d", maxDim, p.Width)
	case p.Height < 0 || p.Height > maxDim:
		return invalid("height must be between 1 and %d, got %d", maxDim, p.Height)
	case p.Quality < 0 || p.Quality > 100:
		return invalid("quality must be between 1 and 100, got %d", p.Quality)
	}
	if p.Aspect != "" {
		if mode, ok := aspectSynonyms[string(p.Aspect)]; !ok || mode != p.Aspect {
			return invalid("unsupported aspect %q", p.Aspect)
		}
	}
	if p.Format != "" {
		if f, ok := CanonicalFormat(p.Format); !ok || f != p.Format {
			return invalid("unsupported format %q", p.Format)
		}
	}
	if p.Background != "" {
		if c, err := parseColor(p.Background); err != nil || c != p.Background {
			return invalid("background must be a 6-digit lowercase hex color, got %q", p.Background)
		}
	}
	if p.Look != "" {
		if n, err := assets.NormalizePath(p.Look); err != nil || n != p.Look {
			return invalid("invalid look image path %q", p.Look)
		}
	}
	return nil
}

// ForGrants returns p without the fields the caller may not request.
func (p Params) ForGrants(g Grants) Params {
	if !g.AllowPrompt {
		p.Prompt = ""
		p.Look = ""
	}
	return p
}

// AspectMode returns the effective aspect mode.
func (p Params) AspectMode() AspectMode {
	if p.Aspect == "" {
		return AspectFit
	}
	return p.Aspect
}

// HasPrompt reports whether the request asks for prompt-driven generation.
func (p Params) HasPrompt() bool {
	return p.Prompt != ""
}

// Values returns p as canonical url.Values. Absent fields are omitted.
func (p Params) Values() url.Values {
	v := url.Values{}
	if p.Width > 0 {
		v.Set(KeyWidth, strconv.Itoa(p.Width))
	}
	if p.Height > 0 {
		v.Set(KeyHeight, strconv.Itoa(p.Height))
	}
	if p.Quality > 0 {
		v.Set(KeyQuality, strconv.Itoa(p.Quality))
	}
	if p.Aspect != "" && p.Aspect != AspectFit {
		v.Set(KeyAspect, string(p.Aspect))
	}
	if p.Format != "" {
		v.Set(KeyFormat, p.Format)
	}
	if p.Prompt != "" {
		v.Set(KeyPrompt, p.Prompt)
		if p.Look != "" {
			v.Set(KeyLook, p.Look)
		}
	}
	if p.Trim {
		v.Set(KeyTrim, "1")
	}
	if p.Grayscale {
		v.Set(KeyGrayscale, "1")
	}
	if p.Background != "" && p.Aspect == AspectPad {
		v.Set(KeyBackground, p.Background)
	}
	return v
}

// Canonical returns the sorted key=value encoding of p. Two Params that
// request the same output always produce the same string.
func (p Params) Canonical() string {
	return p.Values().Encode()
}

func (p Params) String() string {
	return p.Canonical()
}

func parseBounded(key, v string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalid("%s must be an integer, got %q", key, v)
	}
	if n < lo || n > hi {
		return 0, invalid("%s must be between %d and %d, got %d", key, lo, hi, n)
	}
	return n, nil
}

func parseBool(key, v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on", "":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, invalid("%s must be a boolean, got %q", key, v)
}

func parseColor(v string) (string, error) {
	if !hexColor.MatchString(v) {
		return "", invalid("background must be a hex color, got %q", v)
	}
	hex := strings.ToLower(strings.TrimPrefix(v, "#"))
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	return hex, nil
}

func invalid(format string, args ...any) error {
	return mediaerr.New(mediaerr.ErrInvalidParams, "parse params", fmt.Sprintf(format, args...), nil)
}
