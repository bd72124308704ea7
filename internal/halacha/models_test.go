// Package halacha_test tests the domain model invariants.
package halacha_test

import (
	"testing"

	"github.com/naorbrown/likutei-yomi/internal/halacha"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHalacha(volume, section string) halacha.Halacha {
	return halacha.Halacha{
		Section: halacha.Section{
			Volume:     volume,
			Name:       section,
			NameHebrew: "הלכות השכמת הבוקר",
			RefBase:    "Likutei_Halakhot,_" + volume + ",_" + section,
			HasEnglish: false,
		},
		Chapter:    3,
		Siman:      2,
		HebrewText: "כי עיקר ההתחלה היא בבוקר",
		SefariaURL: "https://www.sefaria.org/Likutei_Halakhot",
	}
}

func TestNewDailyPair_DifferentVolumes(t *testing.T) {
	t.Parallel()

	first := sampleHalacha("Orach Chaim", "Hashkamat_HaBoker")
	second := sampleHalacha("Yoreh Deah", "Shiluach_HaKen")

	pair, err := halacha.NewDailyPair(first, second, "2024-01-27")
	require.NoError(t, err)

	assert.Equal(t, "Orach Chaim", pair.First.Section.Volume)
	assert.Equal(t, "Yoreh Deah", pair.Second.Section.Volume)
	assert.Equal(t, "2024-01-27", pair.DateSeed)
}

func TestNewDailyPair_SameVolumeFails(t *testing.T) {
	t.Parallel()

	first := sampleHalacha("Orach Chaim", "Hashkamat_HaBoker")
	second := sampleHalacha("Orach Chaim", "Tzitzit")

	_, err := halacha.NewDailyPair(first, second, "2024-01-27")
	require.Error(t, err)
	require.ErrorIs(t, err, halacha.ErrSameVolume)
}

func TestHalacha_Reference(t *testing.T) {
	t.Parallel()

	h := sampleHalacha("Orach Chaim", "Tzitzit")

	assert.Equal(t, "Likutei_Halakhot,_Orach Chaim,_Tzitzit.3.2", h.Reference())
}

func TestHalacha_IsFallback(t *testing.T) {
	t.Parallel()

	real := sampleHalacha("Orach Chaim", "Tzitzit")
	assert.False(t, real.IsFallback())

	placeholder := real
	placeholder.HebrewText = halacha.FallbackText
	assert.True(t, placeholder.IsFallback())
}

func TestDailyPair_HasFallback(t *testing.T) {
	t.Parallel()

	first := sampleHalacha("Orach Chaim", "Tzitzit")
	second := sampleHalacha("Yoreh Deah", "Basar_BeChalav")
	second.HebrewText = halacha.FallbackText

	pair, err := halacha.NewDailyPair(first, second, "2024-01-27")
	require.NoError(t, err)
	assert.True(t, pair.HasFallback())
}

func TestSection_VolumeHebrew(t *testing.T) {
	t.Parallel()

	s := halacha.Section{Volume: "Choshen Mishpat"}
	assert.Equal(t, "חושן משפט", s.VolumeHebrew())

	unknown := halacha.Section{Volume: "Some Volume"}
	assert.Equal(t, "Some Volume", unknown.VolumeHebrew())
}
