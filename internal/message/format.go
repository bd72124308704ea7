// Package message renders daily pairs into Telegram-ready HTML messages,
// splitting bodies so every outgoing message stays under the transport's
// size ceiling.
package message

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/naorbrown/likutei-yomi/internal/halacha"
)

// Rendering constants.
const (
	// safetyMargin is subtracted from the body budget to absorb HTML
	// markup overhead that is hard to account for exactly.
	safetyMargin = 100

	firstLabel  = "א"
	secondLabel = "ב"
	firstEmoji  = "📜"
	secondEmoji = "📖"

	signature = "\n\n<i>נ נח נחמ נחמן מאומן</i>"
)

// Formatter renders halachot as Telegram HTML.
type Formatter struct {
	maxLength int
}

// NewFormatter creates a Formatter with the given per-message length ceiling.
func NewFormatter(maxLength int) *Formatter {
	return &Formatter{maxLength: maxLength}
}

// SplitText splits text into chunks of at most maxLen runes, cutting at the
// last whitespace at or before the budget. A single word longer than the
// budget is cut at the hard budget position, so the function always makes
// forward progress and never emits an empty chunk.
func SplitText(text string, maxLen int) []string {
	if maxLen < 1 {
		maxLen = 1
	}

	runes := []rune(text)
	if len(runes) <= maxLen {
		return []string{text}
	}

	var chunks []string

	for len(runes) > 0 {
		if len(runes) <= maxLen {
			chunks = append(chunks, string(runes))

			break
		}

		cut := lastSpaceBefore(runes, maxLen)
		if cut <= 0 {
			// No usable boundary: cut at the hard budget position.
			cut = maxLen
		}

		chunks = append(chunks, string(runes[:cut]))
		runes = trimLeadingSpace(runes[cut:])
	}

	return chunks
}

// DailyMessages renders the full message sequence for a pair: the first
// halacha with the dated header, the second without, and the closing
// signature appended to the final message.
func (f *Formatter) DailyMessages(pair halacha.DailyPair, day time.Time) []string {
	dateLabel := day.Format("02/01/2006")

	messages := f.HalachaMessages(pair.First, 1, dateLabel)
	messages = append(messages, f.HalachaMessages(pair.Second, 2, "")...)
	messages[len(messages)-1] += signature

	return messages
}

// HalachaMessages renders one halacha as one or more messages. The body
// budget is the message ceiling minus the header, footer, and safety margin;
// continuation messages repeat a short title header so each one is
// self-describing, and only the last message carries the deep-link footer.
func (f *Formatter) HalachaMessages(item halacha.Halacha, ordinal int, dateLabel string) []string {
	label, emoji := firstLabel, firstEmoji
	if ordinal != 1 {
		label, emoji = secondLabel, secondEmoji
	}

	title := fmt.Sprintf(
		`%s <a href="%s"><b>%s. %s</b></a>`,
		emoji, item.SefariaURL, label, item.Section.NameHebrew,
	)
	volume := fmt.Sprintf("<i>%s</i>", item.Section.VolumeHebrew())
	link := fmt.Sprintf(`<a href="%s">המשך בספריא →</a>`, item.SefariaURL)

	header := ""
	if dateLabel != "" {
		header = fmt.Sprintf("<b>📚 ליקוטי הלכות יומי</b> | %s\n\n", dateLabel)
	}

	base := header + title + "\n" + volume + "\n\n"
	footer := "\n\n" + link

	available := f.maxLength -
		utf8.RuneCountInString(base) -
		utf8.RuneCountInString(footer) -
		safetyMargin

	chunks := SplitText(EscapeHTML(item.HebrewText), available)

	messages := make([]string, 0, len(chunks))

	for i, chunk := range chunks {
		var msg string
		if i == 0 {
			msg = base + chunk
		} else {
			msg = title + " (המשך)\n\n" + chunk
		}

		if i == len(chunks)-1 {
			msg += footer
		}

		messages = append(messages, msg)
	}

	return messages
}

// Welcome returns the canned welcome/subscription message.
func Welcome() string {
	return `<b>📚 ברוכים הבאים לליקוטי הלכות יומי!</b>

שתי הלכות יומיות מספר ליקוטי הלכות של רבי נתן מברסלב.

<b>פקודות:</b>
/today - 📖 הלכות היום
/about - ℹ️ אודות
/help - ❓ עזרה

<i>נ נח נחמ נחמן מאומן</i>`
}

// About returns the canned about message.
func About() string {
	return `<b>ℹ️ אודות ליקוטי הלכות יומי</b>

<b>ליקוטי הלכות</b> - ספר יסוד בחסידות ברסלב מאת רבי נתן מברסלב, תלמידו הגדול של רבי נחמן מאומן.

הספר מכיל ביאורים עמוקים על השולחן ערוך לפי תורת רבי נחמן.

<b>קישורים:</b>
📚 <a href="https://www.sefaria.org/Likutei_Halakhot">ספריא</a>

<i>נ נח נחמ נחמן מאומן</i>`
}

// Help returns the canned help message.
func Help() string {
	return `<b>❓ עזרה</b>

<b>פקודות זמינות:</b>

/start - התחלה והרשמה
/today - קבלת הלכות היום
/about - מידע על הבוט
/help - הודעה זו

<b>איך זה עובד?</b>
כל יום מתפרסמות שתי הלכות חדשות משני חלקים שונים של ליקוטי הלכות.

<i>נ נח נחמ נחמן מאומן</i>`
}

// Error returns the fixed apology message shown to end recipients when
// resolution fails. Raw errors never reach a recipient.
func Error() string {
	return `<b>😔 שגיאה</b>

אירעה שגיאה. אנא נסו שוב מאוחר יותר.

<i>נ נח נחמ נחמן מאומן</i>`
}

// EscapeHTML escapes the characters Telegram's HTML parse mode reserves.
func EscapeHTML(text string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

	return replacer.Replace(text)
}

// lastSpaceBefore returns the index of the last whitespace rune at or before
// limit, or -1 when none exists. The caller guarantees len(runes) > limit.
func lastSpaceBefore(runes []rune, limit int) int {
	for i := limit; i >= 0; i-- {
		if isSpace(runes[i]) {
			return i
		}
	}

	return -1
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t'
}

func trimLeadingSpace(runes []rune) []rune {
	start := 0
	for start < len(runes) && isSpace(runes[start]) {
		start++
	}

	return runes[start:]
}
