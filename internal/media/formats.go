package media

import (
	"mime"
	"sort"
	"strings"
)

// Format describes an output encoding.
type Format struct {
	Name      string
	MimeType  string
	Extension string
	// NeedsVips is set for encoders only libvips provides.
	NeedsVips bool
}

var formats = map[string]Format{
	"jpeg": {Name: "jpeg", MimeType: "image/jpeg", Extension: "jpg"},
	"png":  {Name: "png", MimeType: "image/png", Extension: "png"},
	"gif":  {Name: "gif", MimeType: "image/gif", Extension: "gif"},
	"bmp":  {Name: "bmp", MimeType: "image/bmp", Extension: "bmp"},
	"tiff": {Name: "tiff", MimeType: "image/tiff", Extension: "tiff"},
	"webp": {Name: "webp", MimeType: "image/webp", Extension: "webp", NeedsVips: true},
	"avif": {Name: "avif", MimeType: "image/avif", Extension: "avif", NeedsVips: true},
	"heif": {Name: "heif", MimeType: "image/heif", Extension: "heic", NeedsVips: true},
	"mp4":  {Name: "mp4", MimeType: "video/mp4", Extension: "mp4"},
}

// LookupFormat returns the format registered under a canonical name.
func LookupFormat(name string) (Format, bool) {
	f, ok := formats[name]
	return f, ok
}

// FormatFromMime maps a MIME type (parameters allowed) to a canonical format name.
func FormatFromMime(mimeType string) (string, bool) {
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		base = strings.ToLower(strings.TrimSpace(mimeType))
	}
	switch base {
	case "image/jpg", "image/pjpeg":
		return "jpeg", true
	case "image/heic":
		return "heif", true
	case "image/x-ms-bmp":
		return "bmp", true
	}
	for name, f := range formats {
		if f.MimeType == base {
			return name, true
		}
	}
	return "", false
}

// ExtensionFor returns the file extension for a MIME type, or "bin".
func ExtensionFor(mimeType string) string {
	if name, ok := FormatFromMime(mimeType); ok {
		return formats[name].Extension
	}
	return "bin"
}

// MimeTypeForExtension maps a stored file extension back to its MIME type.
func MimeTypeForExtension(ext string) (string, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, f := range formats {
		if f.Extension == ext {
			return f.MimeType, true
		}
	}
	return "", false
}

// ImageFormats lists the image formats that can be requested.
func ImageFormats() []string {
	names := make([]string, 0, len(formats))
	for name, f := range formats {
		if strings.HasPrefix(f.MimeType, "image/") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
