// Package halacha defines the domain model for daily Likutei Halachot content.
//
// All types here are immutable value objects: they are constructed once, either
// from the Sefaria API or from a cache entry, and never mutated afterwards.
package halacha

import (
	"errors"
	"fmt"
	"strings"
)

// Top-level volumes of Likutei Halachot. The daily pair always draws from two
// different entries of this list.
var Volumes = []string{
	"Orach Chaim",
	"Yoreh Deah",
	"Even HaEzer",
	"Choshen Mishpat",
}

// hebrewVolumeNames maps English volume names to their Hebrew rendering.
var hebrewVolumeNames = map[string]string{
	"Orach Chaim":    "אורח חיים",
	"Yoreh Deah":     "יורה דעה",
	"Even HaEzer":    "אבן העזר",
	"Choshen Mishpat": "חושן משפט",
}

// FallbackMarker is the prefix carried by every fallback body text. Its
// presence distinguishes placeholder content from real content, which is how
// the selector decides whether a pair may be persisted.
const FallbackMarker = "לא ניתן לטעון"

// FallbackText is the full placeholder body used when the Sefaria fetch fails.
const FallbackText = "לא ניתן לטעון את הטקסט כרגע. לחץ על הקישור לקריאה בספריא."

// ErrSameVolume indicates an attempt to build a daily pair from a single volume.
var ErrSameVolume = errors.New("daily pair must contain halachot from different volumes")

// Section identifies one named subdivision of Likutei Halachot. Sections are
// loaded once per process from the pre-built catalog and treated as read-only
// reference data.
type Section struct {
	// Volume is the English top-level volume name (e.g. "Orach Chaim").
	Volume string `json:"volume"`

	// Name is the English section name.
	Name string `json:"section"`

	// NameHebrew is the Hebrew section name.
	NameHebrew string `json:"section_he"`

	// RefBase is the base Sefaria reference without chapter/siman numbers.
	RefBase string `json:"ref_base"`

	// HasEnglish reports whether an English rendering exists on Sefaria.
	HasEnglish bool `json:"has_english"`
}

// VolumeHebrew returns the Hebrew name of the section's volume, falling back
// to the English name for unknown volumes.
func (s Section) VolumeHebrew() string {
	if name, ok := hebrewVolumeNames[s.Volume]; ok {
		return name
	}

	return s.Volume
}

// Halacha is one resolved unit of content: a section plus chapter/siman
// coordinates and the fetched body text.
type Halacha struct {
	Section Section `json:"section"`

	// Chapter is the halakha number within the section.
	Chapter int `json:"chapter"`

	// Siman is the subsection within the halakha.
	Siman int `json:"siman"`

	// HebrewText is the primary body text.
	HebrewText string `json:"hebrew_text"`

	// EnglishText is the optional secondary body text, empty when absent.
	EnglishText string `json:"english_text,omitempty"`

	// SefariaURL is the canonical deep link for this halacha.
	SefariaURL string `json:"sefaria_url"`
}

// Reference returns the full Sefaria reference string for this halacha.
func (h Halacha) Reference() string {
	return fmt.Sprintf("%s.%d.%d", h.Section.RefBase, h.Chapter, h.Siman)
}

// HebrewReference returns a Hebrew display reference.
func (h Halacha) HebrewReference() string {
	return fmt.Sprintf(
		"ליקוטי הלכות, %s, %s %d:%d",
		h.Section.VolumeHebrew(),
		h.Section.NameHebrew,
		h.Chapter,
		h.Siman,
	)
}

// IsFallback reports whether this halacha carries placeholder content
// substituted because the remote fetch failed.
func (h Halacha) IsFallback() bool {
	return strings.Contains(h.HebrewText, FallbackMarker)
}

// DailyPair holds the two halachot selected for one calendar day, together
// with the ISO date string that seeded the selection.
type DailyPair struct {
	First    Halacha `json:"first"`
	Second   Halacha `json:"second"`
	DateSeed string  `json:"date_seed"`
}

// NewDailyPair constructs a DailyPair, enforcing the one hard business rule of
// the selection algorithm: the two halachot must come from different volumes.
func NewDailyPair(first, second Halacha, dateSeed string) (DailyPair, error) {
	if first.Section.Volume == second.Section.Volume {
		return DailyPair{}, fmt.Errorf(
			"%w: both from %q",
			ErrSameVolume,
			first.Section.Volume,
		)
	}

	return DailyPair{
		First:    first,
		Second:   second,
		DateSeed: dateSeed,
	}, nil
}

// HasFallback reports whether either halacha of the pair is placeholder
// content. Pairs with fallback content are served but never persisted.
func (p DailyPair) HasFallback() bool {
	return p.First.IsFallback() || p.Second.IsFallback()
}
