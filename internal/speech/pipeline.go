package speech

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/naorbrown/likutei-yomi/internal/halacha"
)

// Caption labels for the two daily voice messages.
const (
	captionPrefix = "\U0001f509"
)

// Log formats.
const (
	logFmtSynthesizing    = "Synthesizing %d chunk(s), %d chars total"
	logFmtAudioCacheHit   = "Audio cache hit: %s"
	logFmtAudioCached     = "Cached audio: %s (%d bytes)"
	logFmtSynthesisFailed = "TTS failed for halacha %s, skipping voice"
	logFmtFallbackSkipped = "Halacha %s is fallback content, skipping voice"
	logFmtVoiceSent       = "Voice message %s sent to %s"
	logFmtVoiceSendFailed = "Voice send to %s failed: %v"
)

// ErrSynthesisFailed wraps every failure inside the synthesis pipeline.
// Voice delivery is best-effort: callers log it and move on, they never
// surface it to recipients.
var ErrSynthesisFailed = errors.New("speech synthesis failed")

// Synthesizer converts one bounded text chunk into encoded audio.
type Synthesizer interface {
	SynthesizeChunk(ctx context.Context, text string) ([]byte, error)
}

// Concatenator joins audio segments with a silence gap between them.
type Concatenator interface {
	Concatenate(ctx context.Context, segments [][]byte, silence time.Duration) ([]byte, error)
}

// VoiceSender delivers one voice message to one recipient.
type VoiceSender interface {
	SendVoice(ctx context.Context, chatID string, audio []byte, caption string) error
}

// Pipeline orchestrates chunking, synthesis, concatenation, caching, and
// delivery of voice renditions of daily pairs.
type Pipeline struct {
	synth         Synthesizer
	concat        Concatenator
	cache         *AudioCache
	prep          *Preprocessor
	maxChunkChars int
	silence       time.Duration
	log           *logger.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(
	synth Synthesizer,
	concat Concatenator,
	cache *AudioCache,
	maxChunkChars int,
	silence time.Duration,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		synth:         synth,
		concat:        concat,
		cache:         cache,
		prep:          NewPreprocessor(),
		maxChunkChars: maxChunkChars,
		silence:       silence,
		log:           log,
	}
}

// Synthesize prepares the text for speech, chunks it, synthesizes every
// chunk, and concatenates the results with silence gaps. A single-chunk
// input skips concatenation.
func (p *Pipeline) Synthesize(ctx context.Context, text string) ([]byte, error) {
	chunks := ChunkText(p.prep.PrepareForSpeech(text), p.maxChunkChars)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrSynthesisFailed)
	}

	p.log.Info(logFmtSynthesizing, len(chunks), len([]rune(text)))

	segments := make([][]byte, 0, len(chunks))

	for i, chunk := range chunks {
		audio, err := p.synth.SynthesizeChunk(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %w", ErrSynthesisFailed, i+1, err)
		}

		segments = append(segments, audio)
	}

	combined, err := p.concat.Concatenate(ctx, segments, p.silence)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}

	return combined, nil
}

// GetOrSynthesize serves audio from the disk cache when present, otherwise
// synthesizes and stores it under the cache key. Entries are immutable: the
// same key is never re-synthesized.
func (p *Pipeline) GetOrSynthesize(ctx context.Context, text, cacheKey string) ([]byte, error) {
	if audio, ok := p.cache.Get(cacheKey); ok {
		p.log.Info(logFmtAudioCacheHit, cacheKey)

		return audio, nil
	}

	audio, err := p.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}

	putErr := p.cache.Put(cacheKey, audio)
	if putErr != nil {
		// Cache failure only costs a re-synthesis next time.
		p.log.Warn("Failed to cache audio %s: %v", cacheKey, putErr)
	} else {
		p.log.Info(logFmtAudioCached, cacheKey, len(audio))
	}

	return audio, nil
}

// DeliverForPair synthesizes (or retrieves) the voice rendition of both
// halachot of a pair and sends one voice message per halacha to every
// recipient. Failures are isolated per halacha and per recipient: a failed
// synthesis skips that halacha's voice, a failed send to one recipient never
// blocks the remaining ones, and nothing is ever raised to the caller.
func (p *Pipeline) DeliverForPair(
	ctx context.Context,
	pair halacha.DailyPair,
	day time.Time,
	recipients []string,
	sender VoiceSender,
) {
	dateSeed := day.Format("2006-01-02")

	items := []struct {
		item  halacha.Halacha
		key   string
		label string
	}{
		{pair.First, dateSeed + "_1", "א"},
		{pair.Second, dateSeed + "_2", "ב"},
	}

	for _, entry := range items {
		// Fallback text is a placeholder, not content worth speaking, and
		// caching it would pin the date's audio to the outage.
		if entry.item.IsFallback() {
			p.log.Warn(logFmtFallbackSkipped, entry.label)

			continue
		}

		audio, err := p.GetOrSynthesize(ctx, entry.item.HebrewText, entry.key)
		if err != nil {
			p.log.Warn(logFmtSynthesisFailed, entry.label)

			continue
		}

		caption := fmt.Sprintf("%s %s. %s",
			captionPrefix, entry.label, entry.item.Section.NameHebrew)

		for _, recipient := range recipients {
			sendErr := sender.SendVoice(ctx, recipient, audio, caption)
			if sendErr != nil {
				p.log.Warn(logFmtVoiceSendFailed, recipient, sendErr)

				continue
			}

			p.log.Info(logFmtVoiceSent, entry.label, recipient)
		}
	}
}
