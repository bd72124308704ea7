// Package speech_test tests the speech chunker and synthesis pipeline.
package speech_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/naorbrown/likutei-yomi/internal/speech"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_Empty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, speech.ChunkText("", 1200))
	assert.Nil(t, speech.ChunkText("   \n ", 1200))
}

func TestChunkText_ShortTextSingleChunk(t *testing.T) {
	t.Parallel()

	text := "ברוך אתה בבואך וברוך אתה בצאתך."

	chunks := speech.ChunkText(text, 1200)
	assert.Equal(t, []string{text}, chunks)
}

func TestChunkText_SplitsAtSentenceBoundaries(t *testing.T) {
	t.Parallel()

	text := "המשפט הראשון כאן. המשפט השני כאן: והמשפט השלישי כאן׃ סוף הטקסט"

	chunks := speech.ChunkText(text, 25)
	require.Greater(t, len(chunks), 1)

	// Sentence-ending punctuation stays with its sentence.
	assert.True(t, strings.HasSuffix(chunks[0], ".") ||
		strings.HasSuffix(chunks[0], ":") ||
		strings.HasSuffix(chunks[0], "׃"))
}

func TestChunkText_LengthBound(t *testing.T) {
	t.Parallel()

	inputs := []string{
		strings.Repeat("מלה קצרה ", 400) + ".",
		"משפט ארוך מאוד בלי שום סימן פיסוק " + strings.Repeat("עוד מלים ", 300),
		strings.Repeat("x", 5000), // pathological single word
	}

	for _, input := range inputs {
		for _, maxChars := range []int{30, 100, 1200} {
			for _, chunk := range speech.ChunkText(input, maxChars) {
				assert.LessOrEqual(t, utf8.RuneCountInString(chunk), maxChars)
				assert.NotEmpty(t, chunk)
			}
		}
	}
}

func TestChunkText_PreservesWordSequence(t *testing.T) {
	t.Parallel()

	text := "כי צריך כל אדם לקום בבוקר. ואחר כך יתפלל: ואחר כך ילמד תורה׃ " +
		"וכן בכל יום ויום תמיד כל ימי חייו ולא יפסיק מזה כלל"

	for _, maxChars := range []int{20, 35, 60, 1200} {
		chunks := speech.ChunkText(text, maxChars)
		joined := strings.Join(chunks, " ")

		assert.Equal(t,
			strings.Fields(text),
			strings.Fields(joined),
			"word sequence must survive chunking at maxChars=%d", maxChars,
		)
	}
}

func TestChunkText_OversizedSentenceFallsBackToWords(t *testing.T) {
	t.Parallel()

	// One long sentence with no punctuation at all.
	sentence := strings.TrimSpace(strings.Repeat("מלים בלי פיסוק ", 50))

	chunks := speech.ChunkText(sentence, 40)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 40)
	}

	assert.Equal(t,
		strings.Fields(sentence),
		strings.Fields(strings.Join(chunks, " ")),
	)
}
