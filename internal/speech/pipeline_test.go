package speech_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/naorbrown/likutei-yomi/internal/halacha"
	"github.com/naorbrown/likutei-yomi/internal/speech"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSynthBroken = errors.New("backend unavailable")

// stubSynth returns a fixed payload per chunk, or fails when broken.
type stubSynth struct {
	broken bool
	calls  int
}

func (s *stubSynth) SynthesizeChunk(_ context.Context, text string) ([]byte, error) {
	s.calls++

	if s.broken {
		return nil, errSynthBroken
	}

	return []byte("audio:" + text[:min(len(text), 8)]), nil
}

// stubConcat joins segments with a marker byte so tests can see the joins.
type stubConcat struct {
	calls int
}

func (s *stubConcat) Concatenate(
	_ context.Context,
	segments [][]byte,
	_ time.Duration,
) ([]byte, error) {
	s.calls++

	if len(segments) == 1 {
		return segments[0], nil
	}

	var joined []byte
	for i, segment := range segments {
		if i > 0 {
			joined = append(joined, '|')
		}

		joined = append(joined, segment...)
	}

	return joined, nil
}

// recordingSender records every send and optionally fails for one chat ID.
type recordingSender struct {
	failFor string
	sent    []string
}

func (s *recordingSender) SendVoice(
	_ context.Context,
	chatID string,
	_ []byte,
	_ string,
) error {
	s.sent = append(s.sent, chatID)

	if chatID == s.failFor {
		return errSynthBroken
	}

	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	return log
}

func newPipeline(t *testing.T, synth speech.Synthesizer) (*speech.Pipeline, *speech.AudioCache) {
	t.Helper()

	cache := speech.NewAudioCache(t.TempDir())
	pipeline := speech.NewPipeline(
		synth, &stubConcat{}, cache, 1200, 300*time.Millisecond, testLogger(t))

	return pipeline, cache
}

func testPair(t *testing.T) halacha.DailyPair {
	t.Helper()

	first := halacha.Halacha{
		Section: halacha.Section{
			Volume:     "Orach Chaim",
			NameHebrew: "הלכות ציצית",
			RefBase:    "Likutei_Halakhot,_Orach_Chaim,_Tzitzit",
		},
		Chapter:    1,
		Siman:      1,
		HebrewText: "טקסט ההלכה הראשונה",
		SefariaURL: "https://www.sefaria.org/x",
	}
	second := first
	second.Section.Volume = "Yoreh Deah"
	second.Section.NameHebrew = "הלכות בשר בחלב"
	second.HebrewText = "טקסט ההלכה השניה"

	pair, err := halacha.NewDailyPair(first, second, "2024-01-27")
	require.NoError(t, err)

	return pair
}

func TestSynthesize_SingleChunkSkipsConcat(t *testing.T) {
	t.Parallel()

	synth := &stubSynth{}
	concat := &stubConcat{}
	pipeline := speech.NewPipeline(
		synth, concat, speech.NewAudioCache(t.TempDir()),
		1200, 300*time.Millisecond, testLogger(t))

	audio, err := pipeline.Synthesize(context.Background(), "טקסט קצר")
	require.NoError(t, err)

	assert.Equal(t, 1, synth.calls)
	assert.NotEmpty(t, audio)
}

func TestSynthesize_MultiChunk(t *testing.T) {
	t.Parallel()

	synth := &stubSynth{}
	pipeline := speech.NewPipeline(
		synth, &stubConcat{}, speech.NewAudioCache(t.TempDir()),
		30, 300*time.Millisecond, testLogger(t))

	long := strings.TrimSpace(strings.Repeat("עוד משפט אחד כאן. ", 10))

	audio, err := pipeline.Synthesize(context.Background(), long)
	require.NoError(t, err)

	assert.Greater(t, synth.calls, 1)
	assert.Contains(t, string(audio), "|")
}

func TestSynthesize_BackendFailure(t *testing.T) {
	t.Parallel()

	pipeline, _ := newPipeline(t, &stubSynth{broken: true})

	_, err := pipeline.Synthesize(context.Background(), "טקסט")
	require.ErrorIs(t, err, speech.ErrSynthesisFailed)
}

func TestGetOrSynthesize_CachesResult(t *testing.T) {
	t.Parallel()

	synth := &stubSynth{}
	pipeline, cache := newPipeline(t, synth)
	ctx := context.Background()

	first, err := pipeline.GetOrSynthesize(ctx, "טקסט כלשהו", "2024-01-27_1")
	require.NoError(t, err)

	cached, ok := cache.Get("2024-01-27_1")
	require.True(t, ok)
	assert.Equal(t, first, cached)

	// Second call must not re-synthesize.
	again, err := pipeline.GetOrSynthesize(ctx, "טקסט כלשהו", "2024-01-27_1")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, synth.calls)
}

func TestAudioCache_PutIsWriteOnce(t *testing.T) {
	t.Parallel()

	cache := speech.NewAudioCache(t.TempDir())

	require.NoError(t, cache.Put("k", []byte("original")))
	require.NoError(t, cache.Put("k", []byte("replacement")))

	data, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("original"), data)
}

func TestDeliverForPair_PerRecipientIsolation(t *testing.T) {
	t.Parallel()

	pipeline, _ := newPipeline(t, &stubSynth{})
	sender := &recordingSender{failFor: "@second"}
	recipients := []string{"@first", "@second", "@third"}

	pipeline.DeliverForPair(
		context.Background(),
		testPair(t),
		time.Date(2024, 1, 27, 0, 0, 0, 0, time.UTC),
		recipients,
		sender,
	)

	// Two halachot, three recipients each, the failing one included.
	assert.Len(t, sender.sent, 6)
}

func TestDeliverForPair_SynthesisFailureSkipsVoice(t *testing.T) {
	t.Parallel()

	pipeline, _ := newPipeline(t, &stubSynth{broken: true})
	sender := &recordingSender{}

	pipeline.DeliverForPair(
		context.Background(),
		testPair(t),
		time.Date(2024, 1, 27, 0, 0, 0, 0, time.UTC),
		[]string{"@channel"},
		sender,
	)

	assert.Empty(t, sender.sent)
}

func TestDeliverForPair_FallbackContentSkipsVoice(t *testing.T) {
	t.Parallel()

	synth := &stubSynth{}
	pipeline, cache := newPipeline(t, synth)
	sender := &recordingSender{}

	pair := testPair(t)
	pair.First.HebrewText = halacha.FallbackText
	pair.Second.HebrewText = halacha.FallbackText

	pipeline.DeliverForPair(
		context.Background(),
		pair,
		time.Date(2024, 1, 27, 0, 0, 0, 0, time.UTC),
		[]string{"@channel"},
		sender,
	)

	assert.Empty(t, sender.sent)
	assert.Equal(t, 0, synth.calls)

	_, ok := cache.Get("2024-01-27_1")
	assert.False(t, ok)
}

func TestHTTPClient_SynthesizeChunk(t *testing.T) {
	t.Parallel()

	const rawAudio = "fake-ogg-opus-bytes"

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/text:synthesize", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))

			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			voice, ok := req["voice"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "he-IL-Wavenet-D", voice["name"])
			assert.Equal(t, "he-IL", voice["languageCode"])

			response := map[string]string{
				"audioContent": base64.StdEncoding.EncodeToString([]byte(rawAudio)),
			}
			require.NoError(t, json.NewEncoder(w).Encode(response))
		}))
	t.Cleanup(server.Close)

	client := speech.NewHTTPClient(
		server.URL, "test-key", "he-IL-Wavenet-D", "he-IL", 5*time.Second)

	audio, err := client.SynthesizeChunk(context.Background(), "שלום")
	require.NoError(t, err)
	assert.Equal(t, []byte(rawAudio), audio)
}

func TestHTTPClient_SynthesizeChunk_EmptyText(t *testing.T) {
	t.Parallel()

	client := speech.NewHTTPClient(
		"http://localhost:1", "", "v", "he-IL", time.Second)

	_, err := client.SynthesizeChunk(context.Background(), "")
	require.ErrorIs(t, err, speech.ErrTextEmpty)
}

func TestHTTPClient_SynthesizeChunk_NonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
	t.Cleanup(server.Close)

	client := speech.NewHTTPClient(server.URL, "k", "v", "he-IL", time.Second)

	_, err := client.SynthesizeChunk(context.Background(), "שלום")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-OK status")
}
