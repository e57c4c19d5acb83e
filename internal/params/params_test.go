package params

import (
	"errors"
	"net/url"
	"testing"

	"image-resize-ai/internal/mediaerr"
)

func mustQuery(t *testing.T, q string) url.Values {
	t.Helper()
	v, err := url.ParseQuery(q)
	if err != nil {
		t.Fatalf("ParseQuery(%q): %v", q, err)
	}
	return v
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{"empty", "", Params{}},
		{"aliases", "w=300&h=200&q=80", Params{Width: 300, Height: 200, Quality: 80}},
		{"format synonym jpg", "f=jpg", Params{Format: "jpeg"}},
		{"format synonym heic", "format=HEIC", Params{Format: "heif"}},
		{"format synonym tif", "format=tif", Params{Format: "tiff"}},
		{"aspect cover", "a=cover", Params{Aspect: AspectCrop}},
		{"aspect contain is default", "aspect=contain", Params{}},
		{"aspect fill", "aspectMode=fill", Params{Aspect: AspectStretch}},
		{"booleans", "trim=yes&g=1", Params{Trim: true, Grayscale: true}},
		{"bare boolean", "trim", Params{Trim: true}},
		{"short background", "a=pad&bg=%23FFF", Params{Aspect: AspectPad, Background: "ffffff"}},
		{"background without pad dropped", "w=10&bg=fff", Params{Width: 10}},
		{"look with prompt", "p=wear+it&look=pub/media/looks/red.jpg", Params{Prompt: "wear it", Look: "looks/red.jpg"}},
		{"look alias", "p=wear+it&image2=looks/red.jpg", Params{Prompt: "wear it", Look: "looks/red.jpg"}},
		{"look without prompt dropped", "look=looks/red.jpg", Params{}},
		{"prompt whitespace collapsed", "p=++make+it%0A+blue++", Params{Prompt: "make it blue"}},
		{"unknown keys ignored", "w=10&utm_source=mail", Params{Width: 10}},
		{"same value twice", "w=10&width=10", Params{Width: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(mustQuery(t, tt.query), ParseOptions{})
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.query, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.query, got, tt.want)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		query string
		opts  ParseOptions
	}{
		{"width not a number", "w=abc", ParseOptions{}},
		{"width zero", "w=0", ParseOptions{}},
		{"width over max", "w=5000", ParseOptions{MaxDimension: 4096}},
		{"quality over 100", "q=101", ParseOptions{}},
		{"unknown format", "f=psd", ParseOptions{}},
		{"unknown aspect", "a=squish", ParseOptions{}},
		{"bad boolean", "trim=maybe", ParseOptions{}},
		{"bad color", "bg=red", ParseOptions{}},
		{"look traversal", "p=x&look=../secret.jpg", ParseOptions{}},
		{"empty look", "p=x&look=", ParseOptions{}},
		{"conflicting alias", "w=10&width=20", ParseOptions{}},
		{"strict unknown key", "w=10&foo=1", ParseOptions{Strict: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(mustQuery(t, tt.query), tt.opts)
			if !errors.Is(err, mediaerr.ErrInvalidParams) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidParams", tt.query, err)
			}
		})
	}
}

func TestCanonicalIsOrderIndependent(t *testing.T) {
	a, err := Parse(mustQuery(t, "w=300&h=200&f=jpg&a=cover"), ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse(mustQuery(t, "aspect=crop&format=jpeg&height=200&width=300"), ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if a.Canonical() != b.Canonical() {
		t.Errorf("Canonical() differs: %q vs %q", a.Canonical(), b.Canonical())
	}
	want := "aspect=crop&format=jpeg&height=200&width=300"
	if a.Canonical() != want {
		t.Errorf("Canonical() = %q, want %q", a.Canonical(), want)
	}
}

func TestCanonicalRoundTripsThroughParse(t *testing.T) {
	p := Params{Width: 64, Quality: 70, Aspect: AspectPad, Background: "00ff00", Prompt: "a red shoe", Look: "looks/red.jpg", Grayscale: true}
	got, err := Parse(mustQuery(t, p.Canonical()), ParseOptions{})
	if err != nil {
		t.Fatalf("Parse(Canonical()) error: %v", err)
	}
	if got != p {
		t.Errorf("Parse(Canonical()) = %+v, want %+v", got, p)
	}
}

func TestForGrants(t *testing.T) {
	p := Params{Width: 10, Prompt: "add a hat", Look: "looks/hat.jpg"}

	if got := p.ForGrants(Grants{}); got.Prompt != "" || got.Look != "" || got.Width != 10 {
		t.Errorf("ForGrants(deny) = %+v, want prompt and look stripped and width kept", got)
	}
	if got := p.ForGrants(Grants{AllowPrompt: true}); got.Prompt != "add a hat" || got.Look != "looks/hat.jpg" {
		t.Errorf("ForGrants(allow) = %+v, want prompt kept", got)
	}
}

func TestAspectModeDefault(t *testing.T) {
	if got := (Params{}).AspectMode(); got != AspectFit {
		t.Errorf("AspectMode() = %q, want %q", got, AspectFit)
	}
}

func TestCanonicalIgnoresInertFields(t *testing.T) {
	tests := []struct {
		name string
		a, b Params
	}{
		{"background without pad", Params{Width: 10, Background: "ffffff"}, Params{Width: 10}},
		{"background with crop", Params{Aspect: AspectCrop, Background: "000000"}, Params{Aspect: AspectCrop}},
		{"look without prompt", Params{Width: 10, Look: "looks/a.jpg"}, Params{Width: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a.Canonical() != tt.b.Canonical() {
				t.Errorf("Canonical() = %q, want %q", tt.a.Canonical(), tt.b.Canonical())
			}
		})
	}

	padded := Params{Aspect: AspectPad, Background: "ffffff"}
	if padded.Canonical() == (Params{Aspect: AspectPad}).Canonical() {
		t.Error("pad background must be part of the canonical form")
	}
	withLook := Params{Prompt: "wear it", Look: "looks/a.jpg"}
	if withLook.Canonical() == (Params{Prompt: "wear it"}).Canonical() {
		t.Error("look image must be part of the canonical form when a prompt is set")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Params
		opts    ParseOptions
		wantErr bool
	}{
		{"zero value", Params{}, ParseOptions{}, false},
		{"in bounds", Params{Width: 300, Height: 200, Quality: 80, Aspect: AspectPad, Background: "00ff00", Format: "jpeg"}, ParseOptions{}, false},
		{"look", Params{Prompt: "x", Look: "looks/a.jpg"}, ParseOptions{}, false},
		{"negative width", Params{Width: -1}, ParseOptions{}, true},
		{"width over max", Params{Width: 5000}, ParseOptions{MaxDimension: 4096}, true},
		{"height over default max", Params{Height: DefaultMaxDimension + 1}, ParseOptions{}, true},
		{"quality over 100", Params{Quality: 101}, ParseOptions{}, true},
		{"unknown aspect", Params{Aspect: "squish"}, ParseOptions{}, true},
		{"aspect synonym", Params{Aspect: "cover"}, ParseOptions{}, true},
		{"format synonym", Params{Format: "jpg"}, ParseOptions{}, true},
		{"unknown format", Params{Format: "psd"}, ParseOptions{}, true},
		{"short background", Params{Background: "fff"}, ParseOptions{}, true},
		{"look traversal", Params{Prompt: "x", Look: "../a.jpg"}, ParseOptions{}, true},
		{"look not normalized", Params{Prompt: "x", Look: "pub/media/a.jpg"}, ParseOptions{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate(tt.opts)
			if tt.wantErr {
				if !errors.Is(err, mediaerr.ErrInvalidParams) {
					t.Errorf("Validate() error = %v, want ErrInvalidParams", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}
