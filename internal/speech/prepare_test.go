package speech_test

import (
	"testing"

	"github.com/naorbrown/likutei-yomi/internal/speech"
	"github.com/stretchr/testify/assert"
)

func TestPrepareForSpeech(t *testing.T) {
	t.Parallel()

	prep := speech.NewPreprocessor()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Empty",
			input: "",
			want:  "",
		},
		{
			name:  "PlainTextUnchanged",
			input: "וזה כלל גדול בעבודת השם",
			want:  "וזה כלל גדול בעבודת השם",
		},
		{
			name:  "StripsHTMLTags",
			input: "טקסט <b>מודגש</b> עם <i>הדגשה</i>",
			want:  "טקסט מודגש עם הדגשה",
		},
		{
			name:  "RemovesLinks",
			input: "המשך בספריא https://www.sefaria.org/some_ref כאן",
			want:  "המשך בספריא כאן",
		},
		{
			name:  "RemovesFootnoteMarkers",
			input: "כמבואר שם [1] ובמקום אחר (2)",
			want:  "כמבואר שם ובמקום אחר",
		},
		{
			name:  "DropsGershayim",
			input: "כמו שכתוב בשו״ע ובפרט בחו״ל",
			want:  "כמו שכתוב בשוע ובפרט בחול",
		},
		{
			name:  "CollapsesWhitespace",
			input: "שורה ראשונה\n\nשורה   שניה\tסוף",
			want:  "שורה ראשונה שורה שניה סוף",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.want,
				prep.PrepareForSpeech(testCase.input))
		})
	}
}
