// Package cache_test tests the two-tier pair cache.
package cache_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/naorbrown/likutei-yomi/internal/cache"
	"github.com/naorbrown/likutei-yomi/internal/halacha"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	return log
}

func testPair(t *testing.T) halacha.DailyPair {
	t.Helper()

	first := halacha.Halacha{
		Section: halacha.Section{
			Volume:     "Orach Chaim",
			Name:       "Tzitzit",
			NameHebrew: "ציצית",
			RefBase:    "Likutei_Halakhot,_Orach_Chaim,_Tzitzit",
			HasEnglish: true,
		},
		Chapter:     2,
		Siman:       3,
		HebrewText:  "כי הציצית הם בחינת מקיפים",
		EnglishText: "For the tzitzit are an aspect of surrounding lights",
		SefariaURL:  "https://www.sefaria.org/Likutei_Halakhot,_Orach_Chaim,_Tzitzit.2.3",
	}
	second := halacha.Halacha{
		Section: halacha.Section{
			Volume:     "Yoreh Deah",
			Name:       "Basar BeChalav",
			NameHebrew: "בשר בחלב",
			RefBase:    "Likutei_Halakhot,_Yoreh_Deah,_Basar_BeChalav",
		},
		Chapter:    1,
		Siman:      4,
		HebrewText: "ענין איסור בשר בחלב",
		SefariaURL: "https://www.sefaria.org/Likutei_Halakhot,_Yoreh_Deah,_Basar_BeChalav.1.4",
	}

	pair, err := halacha.NewDailyPair(first, second, "2024-01-27")
	require.NoError(t, err)

	return pair
}

func renderStub(pair halacha.DailyPair, _ time.Time) []string {
	return []string{"rendered:" + pair.DateSeed}
}

func TestCache_MissOnEmpty(t *testing.T) {
	t.Parallel()

	c := cache.New(t.TempDir(), renderStub, testLogger(t))

	_, ok := c.Get("2024-01-27")
	assert.False(t, ok)

	_, ok = c.GetMessages("2024-01-27")
	assert.False(t, ok)
}

func TestCache_PutGetRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := cache.New(dir, renderStub, testLogger(t))
	pair := testPair(t)
	messages := []string{"message one", "message two"}

	require.NoError(t, c.Put("2024-01-27", pair, messages))

	got, ok := c.Get("2024-01-27")
	require.True(t, ok)
	assert.Equal(t, pair, got)

	gotMessages, ok := c.GetMessages("2024-01-27")
	require.True(t, ok)
	assert.Equal(t, messages, gotMessages)

	// A fresh cache over the same directory must reproduce the pair
	// field-for-field from the disk JSON encoding.
	fresh := cache.New(dir, renderStub, testLogger(t))

	reloaded, ok := fresh.Get("2024-01-27")
	require.True(t, ok)
	assert.Equal(t, pair, reloaded)

	reloadedMessages, ok := fresh.GetMessages("2024-01-27")
	require.True(t, ok)
	assert.Equal(t, messages, reloadedMessages)
}

func TestCache_DiskLayout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := cache.New(dir, renderStub, testLogger(t))

	require.NoError(t, c.Put("2024-01-27", testPair(t), []string{"chunk"}))

	data, err := os.ReadFile(filepath.Join(dir, "pair_2024-01-27.json"))
	require.NoError(t, err)

	var document map[string]any
	require.NoError(t, json.Unmarshal(data, &document))

	assert.Equal(t, "2024-01-27", document["date_seed"])
	assert.Contains(t, document, "formatted_messages")
	assert.Contains(t, document, "first")
	assert.Contains(t, document, "second")

	first, ok := document["first"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, first, "section")
	assert.Contains(t, first, "chapter")
	assert.Contains(t, first, "siman")
	assert.Contains(t, first, "hebrew_text")
	assert.Contains(t, first, "sefaria_url")

	section, ok := first["section"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Orach Chaim", section["volume"])
	assert.Contains(t, section, "section_he")
	assert.Contains(t, section, "ref_base")
	assert.Contains(t, section, "has_english")
}

func TestCache_LegacyEntryWithoutMessages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seed := cache.New(dir, renderStub, testLogger(t))
	require.NoError(t, seed.Put("2024-01-27", testPair(t), []string{"x"}))

	// Rewrite the file without formatted_messages to simulate the old format.
	path := filepath.Join(dir, "pair_2024-01-27.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var document map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &document))
	delete(document, "formatted_messages")

	legacy, err := json.Marshal(document)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, legacy, 0o600))

	c := cache.New(dir, renderStub, testLogger(t))

	messages, ok := c.GetMessages("2024-01-27")
	require.True(t, ok)
	assert.Equal(t, []string{"rendered:2024-01-27"}, messages)

	// Lazy upgrade is read-only: the disk file stays in the legacy format.
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(after), "formatted_messages")
}

func TestCache_CorruptFileIsMiss(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "pair_2024-01-27.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	c := cache.New(dir, renderStub, testLogger(t))

	_, ok := c.Get("2024-01-27")
	assert.False(t, ok)
}

func TestCache_SameVolumeEntryIsMiss(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pair := testPair(t)

	// Corrupt the business rule on disk: both halves from one volume.
	broken := map[string]any{
		"date_seed": "2024-01-27",
		"first":     pair.First,
		"second":    pair.First,
	}
	data, err := json.Marshal(broken)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "pair_2024-01-27.json"), data, 0o600))

	c := cache.New(dir, renderStub, testLogger(t))

	_, ok := c.Get("2024-01-27")
	assert.False(t, ok)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := cache.New(t.TempDir(), renderStub, testLogger(t))
	pair := testPair(t)

	done := make(chan struct{})

	go func() {
		defer close(done)

		for i := 0; i < 100; i++ {
			_ = c.Put("2024-01-27", pair, []string{"chunk"})
		}
	}()

	for i := 0; i < 100; i++ {
		c.Get("2024-01-27")
		c.GetMessages("2024-01-27")
	}

	<-done
}
