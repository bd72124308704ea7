package speech

import (
	"regexp"
	"strings"
)

// Regex patterns for speech text preparation.
const (
	htmlTagRegexPattern    = `<[^>]+>`
	urlRegexPattern        = `https?://\S+`
	footnoteRegexPattern   = `(?:\[\d+\]|\(\d+\)|\*+)`
	whitespaceRegexPattern = `\s+`
)

// Punctuation the synthesizer reads better without.
const (
	gershayimChar = "״"
	gereshChar    = "׳"
)

// Preprocessor normalizes halacha text before synthesis: markup and deep
// links that read fine on screen become noise when spoken aloud.
type Preprocessor struct {
	htmlTagPattern    *regexp.Regexp
	urlPattern        *regexp.Regexp
	footnotePattern   *regexp.Regexp
	whitespacePattern *regexp.Regexp
}

// NewPreprocessor creates a preprocessor with compiled patterns.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		htmlTagPattern:    regexp.MustCompile(htmlTagRegexPattern),
		urlPattern:        regexp.MustCompile(urlRegexPattern),
		footnotePattern:   regexp.MustCompile(footnoteRegexPattern),
		whitespacePattern: regexp.MustCompile(whitespaceRegexPattern),
	}
}

// PrepareForSpeech strips markup, links and footnote markers, then collapses
// whitespace. Hebrew quote marks inside acronyms are dropped so the voice
// does not pause mid-word.
func (p *Preprocessor) PrepareForSpeech(text string) string {
	if text == "" {
		return text
	}

	prepared := p.htmlTagPattern.ReplaceAllString(text, " ")
	prepared = p.urlPattern.ReplaceAllString(prepared, " ")
	prepared = p.footnotePattern.ReplaceAllString(prepared, " ")

	prepared = strings.ReplaceAll(prepared, gershayimChar, "")
	prepared = strings.ReplaceAll(prepared, gereshChar, "")

	prepared = p.whitespacePattern.ReplaceAllString(prepared, " ")

	return strings.TrimSpace(prepared)
}
