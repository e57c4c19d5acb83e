package gemini

import (
	"testing"

	"google.golang.org/genai"
)

func TestFirstImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")

	tests := []struct {
		name     string
		resp     *genai.GenerateContentResponse
		wantOK   bool
		wantMime string
		wantText string
	}{
		{"nil response", nil, false, "", ""},
		{"text only", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "I can't do that"}}},
		}}}, false, "", "I can't do that"},
		{"inline image", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "Here you go"},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: png}},
			}},
		}}}, true, "image/png", "Here you go"},
		{"sniffed mime", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{Data: png}}}},
		}}}, true, "image/png", ""},
		{"non-image blob skipped", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: "text/plain", Data: []byte("hello")}}}},
		}}}, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, text, ok := firstImage(tt.resp)
			if ok != tt.wantOK {
				t.Fatalf("firstImage() ok = %v, want %v", ok, tt.wantOK)
			}
			if out.MimeType != tt.wantMime {
				t.Errorf("MimeType = %q, want %q", out.MimeType, tt.wantMime)
			}
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
		})
	}
}

func TestPromptContents(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	jpeg := []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")

	tests := []struct {
		name      string
		look      []byte
		wantParts int
	}{
		{"source only", nil, 2},
		{"source and look", jpeg, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contents := promptContents(png, tt.look, "wear the jacket")
			if len(contents) != 1 {
				t.Fatalf("got %d contents, want 1", len(contents))
			}
			parts := contents[0].Parts
			if len(parts) != tt.wantParts {
				t.Fatalf("got %d parts, want %d", len(parts), tt.wantParts)
			}
			if parts[0].Text != "wear the jacket" {
				t.Errorf("first part text = %q, want the prompt", parts[0].Text)
			}
			if got := parts[1].InlineData.MIMEType; got != "image/png" {
				t.Errorf("source MIME = %q, want image/png", got)
			}
			if tt.look != nil {
				if got := parts[2].InlineData.MIMEType; got != "image/jpeg" {
					t.Errorf("look MIME = %q, want image/jpeg", got)
				}
				if string(parts[2].InlineData.Data) != string(tt.look) {
					t.Error("look bytes were not sent")
				}
			}
		})
	}
}
