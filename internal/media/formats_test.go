package media

import "testing"

func TestFormatFromMime(t *testing.T) {
	tests := []struct {
		mime   string
		want   string
		wantOK bool
	}{
		{"image/jpeg", "jpeg", true},
		{"image/jpg", "jpeg", true},
		{"image/png", "png", true},
		{"image/webp", "webp", true},
		{"image/heic", "heif", true},
		{"image/x-ms-bmp", "bmp", true},
		{"video/mp4", "mp4", true},
		{"text/plain; charset=utf-8", "", false},
		{"IMAGE/PNG", "png", true},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			got, ok := FormatFromMime(tt.mime)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("FormatFromMime(%q) = %q, %v, want %q, %v", tt.mime, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"image/jpeg", "jpg"},
		{"image/heif", "heic"},
		{"video/mp4", "mp4"},
		{"application/octet-stream", "bin"},
	}

	for _, tt := range tests {
		if got := ExtensionFor(tt.mime); got != tt.want {
			t.Errorf("ExtensionFor(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestImageFormats(t *testing.T) {
	got := ImageFormats()
	for _, name := range got {
		if name == "mp4" {
			t.Error("ImageFormats() includes mp4")
		}
	}
	if len(got) != 8 {
		t.Errorf("ImageFormats() returned %d formats, want 8", len(got))
	}
}

func TestMimeTypeForExtension(t *testing.T) {
	tests := []struct {
		ext    string
		want   string
		wantOK bool
	}{
		{".mp4", "video/mp4", true},
		{"jpg", "image/jpeg", true},
		{".HEIC", "image/heif", true},
		{".bin", "", false},
	}

	for _, tt := range tests {
		got, ok := MimeTypeForExtension(tt.ext)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("MimeTypeForExtension(%q) = %q, %v; want %q, %v", tt.ext, got, ok, tt.want, tt.wantOK)
		}
	}
}
