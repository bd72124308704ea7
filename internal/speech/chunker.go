// Package speech implements the text-to-speech pipeline: chunking Hebrew text
// under the synthesis backend's request-size limit, synthesizing each chunk,
// concatenating the audio with short silence gaps, and caching the result on
// disk per content item and date.
package speech

import (
	"regexp"
	"strings"
)

// The Google TTS request limit is 5000 bytes. Vowelized Hebrew runs about
// 4 bytes per character, so 1200 characters stays safely under the limit.
// The configured ceiling defaults to this value.

// sentenceEndPattern matches the gap after sentence-ending punctuation:
// period, colon, or sof pasuk (׃) followed by whitespace.
var sentenceEndPattern = regexp.MustCompile(`(?:[.:׃])\s+`)

// ChunkText splits text into chunks of at most maxChars runes, preferring
// sentence boundaries and falling back to word boundaries for oversized
// sentences. Joining all chunks with single spaces reproduces the original
// word sequence exactly.
func ChunkText(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if runeLen(text) <= maxChars {
		return []string{text}
	}

	sentences := splitSentences(text)

	var (
		chunks  []string
		current string
	)

	for _, sentence := range sentences {
		candidate := join(current, sentence)
		if runeLen(candidate) <= maxChars {
			current = candidate

			continue
		}

		if current != "" {
			chunks = append(chunks, current)
		}

		if runeLen(sentence) > maxChars {
			chunks, current = splitWords(sentence, maxChars, chunks)
		} else {
			current = sentence
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

// splitSentences splits at sentence-ending punctuation followed by
// whitespace, keeping the punctuation with the preceding sentence.
func splitSentences(text string) []string {
	boundaries := sentenceEndPattern.FindAllStringIndex(text, -1)
	if len(boundaries) == 0 {
		return []string{text}
	}

	var (
		sentences []string
		start     int
	)

	for _, boundary := range boundaries {
		// boundary[0]+1 is past the punctuation rune; punctuation here
		// is always a single-rune mark so byte arithmetic is safe for
		// '.' and ':' and handled via the matched prefix for '׃'.
		end := boundary[0] + punctLen(text[boundary[0]:])
		sentences = append(sentences, text[start:end])
		start = boundary[1]
	}

	if start < len(text) {
		sentences = append(sentences, text[start:])
	}

	return sentences
}

// splitWords splits one oversized sentence at word boundaries, appending full
// chunks to chunks and returning the trailing partial chunk as current.
func splitWords(sentence string, maxChars int, chunks []string) ([]string, string) {
	var current string

	for _, word := range strings.Fields(sentence) {
		candidate := join(current, word)
		if runeLen(candidate) <= maxChars {
			current = candidate

			continue
		}

		if current != "" {
			chunks = append(chunks, current)
			current = ""
		}

		// A single word above the budget is cut at the hard budget
		// position; the synthesis backend rejects oversized requests
		// outright, which is worse than an awkward mid-word pause.
		for runeLen(word) > maxChars {
			runes := []rune(word)
			chunks = append(chunks, string(runes[:maxChars]))
			word = string(runes[maxChars:])
		}

		current = word
	}

	return chunks, current
}

func join(current, next string) string {
	if current == "" {
		return next
	}

	return current + " " + next
}

func runeLen(s string) int {
	return len([]rune(s))
}

// punctLen returns the byte length of the leading punctuation rune.
func punctLen(s string) int {
	if strings.HasPrefix(s, "׃") {
		return len("׃")
	}

	return 1
}
