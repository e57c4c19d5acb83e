package jobs

import "testing"

func TestRewriteReferences(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		names  []string
		want   string
	}{
		{
			name:   "base name",
			prompt: "Animate cat.jpg slowly",
			names:  []string{"photos/cat.jpg"},
			want:   "Animate the first image slowly",
		},
		{
			name:   "full path and trailing punctuation",
			prompt: "Zoom into photos/cat.jpg.",
			names:  []string{"photos/cat.jpg"},
			want:   "Zoom into the first image.",
		},
		{
			name:   "case insensitive",
			prompt: "CAT.JPG waves",
			names:  []string{"cat.jpg"},
			want:   "the first image waves",
		},
		{
			name:   "numbered references",
			prompt: "image 2 fades into img1",
			names:  []string{"a.jpg", "b.jpg"},
			want:   "the second image fades into the first image",
		},
		{
			name:   "numbered with article and hash",
			prompt: "morph the image #1 into picture 2",
			names:  []string{"a.jpg", "b.jpg"},
			want:   "morph the first image into the second image",
		},
		{
			name:   "adjacent mentions",
			prompt: "a.jpg a.jpg",
			names:  []string{"a.jpg"},
			want:   "the first image the first image",
		},
		{
			name:   "longer file name untouched",
			prompt: "show data.jpg next to a.jpg",
			names:  []string{"a.jpg"},
			want:   "show data.jpg next to the first image",
		},
		{
			name:   "number without matching asset untouched",
			prompt: "blend image 3",
			names:  []string{"a.jpg", "b.jpg"},
			want:   "blend image 3",
		},
		{
			name:   "no names",
			prompt: "a.jpg moves",
			names:  nil,
			want:   "a.jpg moves",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RewriteReferences(tt.prompt, tt.names); got != tt.want {
				t.Errorf("RewriteReferences(%q) = %q, want %q", tt.prompt, got, tt.want)
			}
		})
	}
}

func TestEffectivePrompt(t *testing.T) {
	tests := []struct {
		name          string
		prompt        string
		autoReference bool
		silent        bool
		want          string
	}{
		{"collapse whitespace", "  make   it\nmove ", false, false, "make it move"},
		{"silent suffix", "make it move", false, true, "make it move silent video"},
		{"silent suffix once", "make it move silent video", false, true, "make it move silent video"},
		{"references off", "animate cat.jpg", false, false, "animate cat.jpg"},
		{"references on", "animate cat.jpg", true, false, "animate the first image"},
		{"both", "animate cat.jpg", true, true, "animate the first image silent video"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectivePrompt(tt.prompt, []string{"cat.jpg"}, tt.autoReference, tt.silent)
			if got != tt.want {
				t.Errorf("EffectivePrompt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusSubmitted, false},
		{StatusRunning, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
