package jobs

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var ordinals = []string{"first", "second", "third", "fourth", "fifth", "sixth", "seventh", "eighth", "ninth", "tenth"}

// SilentSuffix is appended to the prompt of silent videos.
const SilentSuffix = "silent video"

// RewriteReferences makes image references in prompt explicit. Mentions of
// an asset's path or file name, or of "image N" / "imgN", become "the first
// image", "the second image" and so on, in the order names are given.
func RewriteReferences(prompt string, names []string) string {
	out := prompt
	for i, name := range names {
		if i >= len(ordinals) {
			break
		}
		phrase := "the " + ordinals[i] + " image"

		for _, candidate := range referenceNames(name) {
			out = replaceMentions(out, candidate, phrase)
		}

		n := strconv.Itoa(i + 1)
		numbered := regexp.MustCompile(`(?i)\b(?:the\s+)?(?:image|img|picture|photo)\s*#?` + n + `\b`)
		out = numbered.ReplaceAllString(out, phrase)
	}
	return out
}

// replaceMentions replaces whole-token, case-insensitive occurrences of
// name in s. A mention is whole when it is not part of a longer file name
// or path.
func replaceMentions(s, name, phrase string) string {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name))
	var b strings.Builder
	last := 0
	for _, m := range re.FindAllStringIndex(s, -1) {
		if m[0] > 0 {
			r, _ := utf8.DecodeLastRuneInString(s[:m[0]])
			if isNameRune(r) || r == '.' {
				continue
			}
		}
		if m[1] < len(s) {
			r, _ := utf8.DecodeRuneInString(s[m[1]:])
			if isNameRune(r) {
				continue
			}
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(phrase)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '/' || r == '-'
}

// referenceNames returns the spellings of an asset a prompt may use: the
// full path and the base name.
func referenceNames(asset string) []string {
	asset = strings.TrimSpace(asset)
	if asset == "" {
		return nil
	}
	names := []string{asset}
	if base := path.Base(asset); base != asset {
		names = append(names, base)
	}
	return names
}

// EffectivePrompt is the prompt sent to the provider: whitespace collapsed,
// references rewritten when autoReference is set, and the silent suffix
// appended when silent is set.
func EffectivePrompt(prompt string, names []string, autoReference, silent bool) string {
	p := strings.Join(strings.Fields(prompt), " ")
	if autoReference {
		p = RewriteReferences(p, names)
	}
	if silent && !strings.HasSuffix(strings.ToLower(p), SilentSuffix) {
		p = strings.TrimSpace(p + " " + SilentSuffix)
	}
	return p
}
